package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
	"github.com/specialistvlad/yunosbridge/internal/host"
	"github.com/specialistvlad/yunosbridge/internal/taskqueue"
)

// BridgeModule is the web runtime module that receives results.
const BridgeModule = "cordova/yunos/bridgeimpl"

// Script renders the program text that hands d to the web runtime. The
// envelope and callback id are embedded as JSON string literals and the
// handoff runs from a fresh timer task.
func Script(d taskqueue.Delivery) (string, error) {
	env, err := d.Envelope.Marshal()
	if err != nil {
		return "", fmt.Errorf("encoding envelope: %w", err)
	}
	resultLit, err := json.Marshal(string(env))
	if err != nil {
		return "", err
	}
	idLit, err := json.Marshal(d.CallbackID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"var result = %s;"+
			"var callbackId = %s;"+
			"setTimeout(function() {"+
			"    var bridgeImpl = cordova.require(%q);"+
			"    bridgeImpl.onNodeMessageReceivedAgilWebView(result, callbackId);"+
			"}, 0);",
		resultLit, idLit, BridgeModule), nil
}

// WebViewDeliverer delivers results by evaluating Script in wv. The next
// delivery starts once the webview reports the evaluation finished.
func WebViewDeliverer(ctx context.Context, wv host.WebView) taskqueue.Deliver {
	logger := ctxlog.FromContext(ctx).With("component", "webview_delivery")
	return func(d taskqueue.Delivery, done func()) {
		script, err := Script(d)
		if err != nil {
			logger.Error("Failed to render result script.", "callbackID", d.CallbackID, "error", err)
			done()
			return
		}
		wv.EvaluateJavaScript(script, func(err error) {
			if err != nil {
				logger.Error("Result script evaluation failed.", "callbackID", d.CallbackID, "error", err)
			}
			done()
		})
	}
}
