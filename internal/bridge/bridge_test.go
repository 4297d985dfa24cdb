package bridge

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/specialistvlad/yunosbridge/internal/callback"
	"github.com/specialistvlad/yunosbridge/internal/host"
	"github.com/specialistvlad/yunosbridge/internal/plugin"
	"github.com/specialistvlad/yunosbridge/internal/registry"
	"github.com/specialistvlad/yunosbridge/internal/result"
	"github.com/specialistvlad/yunosbridge/internal/scheduler"
	"github.com/specialistvlad/yunosbridge/internal/taskqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptWebView records evaluated scripts and holds their completions.
type scriptWebView struct {
	host.WebView
	scripts []string
	pending []func(error)
}

func (w *scriptWebView) EvaluateJavaScript(script string, done func(error)) {
	w.scripts = append(w.scripts, script)
	w.pending = append(w.pending, done)
}

func (w *scriptWebView) finishNext() {
	done := w.pending[0]
	w.pending = w.pending[1:]
	done(nil)
}

var scriptRE = regexp.MustCompile(`^var result = (".*?[^\\]");var callbackId = (".*?");setTimeout`)

// parseScript pulls the envelope and callback id back out of a script.
func parseScript(t *testing.T, script string) (result.Envelope, string) {
	t.Helper()
	m := scriptRE.FindStringSubmatch(script)
	require.NotNil(t, m, "unexpected script shape: %s", script)

	var envText, id string
	require.NoError(t, json.Unmarshal([]byte(m[1]), &envText))
	require.NoError(t, json.Unmarshal([]byte(m[2]), &id))
	env, err := result.Decode([]byte(envText))
	require.NoError(t, err)
	return env, id
}

type echo struct{ plugin.Base }

func (e *echo) Actions() plugin.Actions {
	return plugin.Actions{
		"ping": func(_ context.Context, cb *callback.Context, args plugin.Args) error {
			cb.Success(result.String(args.String(0)))
			return nil
		},
		"bytes": func(_ context.Context, cb *callback.Context, _ plugin.Args) error {
			cb.Success(result.Binary([]byte{0, 1, 2, 0xff}))
			return nil
		},
	}
}

func newStack(t *testing.T) (*Bridge, *scheduler.Manual, *scriptWebView) {
	t.Helper()
	ctx := context.Background()
	sched := scheduler.NewManual()
	wv := &scriptWebView{}
	reg := registry.New(ctx, registry.Options{})
	reg.RegisterFactory("plugins/echo", func(context.Context) (plugin.Plugin, error) { return &echo{}, nil })
	reg.AddService(ctx, "Echo", "plugins/echo", false)

	b := New(ctx, sched, reg, WebViewDeliverer(ctx, wv))
	b.Attach(ctx)
	return b, sched, wv
}

func TestBridge_EchoRoundTrip(t *testing.T) {
	// --- Arrange ---
	b, sched, wv := newStack(t)

	// --- Act ---
	require.NoError(t, b.Exec(context.Background(), "Echo", "ping", "cb1", `["hello \"quoted\" </script>"]`))
	assert.Empty(t, wv.scripts, "dispatch waits for the scheduler")
	sched.RunUntilIdle()

	// --- Assert ---
	require.Len(t, wv.scripts, 1)
	assert.Contains(t, wv.scripts[0], `cordova.require("cordova/yunos/bridgeimpl")`)
	env, id := parseScript(t, wv.scripts[0])
	assert.Equal(t, "cb1", id)
	assert.Equal(t, result.StatusOK, env.Status)
	assert.Equal(t, result.MessageTypeString, env.MessageType)
	v, err := env.Value()
	require.NoError(t, err)
	assert.Equal(t, `hello "quoted" </script>`, string(v))
}

func TestBridge_BinaryPayloadSurvives(t *testing.T) {
	b, sched, wv := newStack(t)

	require.NoError(t, b.Exec(context.Background(), "Echo", "bytes", "cb1", "[]"))
	sched.RunUntilIdle()

	require.Len(t, wv.scripts, 1)
	env, _ := parseScript(t, wv.scripts[0])
	assert.Equal(t, result.MessageTypeArrayBuffer, env.MessageType)
	v, err := env.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 0xff}, v)
}

func TestBridge_DeliveriesWaitForPreviousEvaluation(t *testing.T) {
	b, sched, wv := newStack(t)
	ctx := context.Background()

	require.NoError(t, b.Exec(ctx, "Echo", "ping", "cb1", `["one"]`))
	require.NoError(t, b.Exec(ctx, "Echo", "ping", "cb2", `["two"]`))
	require.NoError(t, b.Exec(ctx, "Missing", "x", "cb3", `[]`))
	sched.RunUntilIdle()

	require.Len(t, wv.scripts, 1, "second delivery must wait")
	assert.Equal(t, 2, b.Queue().Len())

	wv.finishNext()
	sched.RunUntilIdle()
	wv.finishNext()
	sched.RunUntilIdle()

	require.Len(t, wv.scripts, 3)
	var ids []string
	for _, s := range wv.scripts {
		env, id := parseScript(t, s)
		ids = append(ids, id)
		if id == "cb3" {
			assert.Equal(t, result.StatusClassNotFound, env.Status)
		}
	}
	assert.Equal(t, []string{"cb1", "cb2", "cb3"}, ids)
}

func TestBridge_ParseFaultIsDropped(t *testing.T) {
	b, sched, wv := newStack(t)

	err := b.Exec(context.Background(), "Echo", "ping", "cb1", `{"not": "an array"`)
	require.ErrorIs(t, err, ErrParseFault)
	assert.ErrorIs(t, err, plugin.ErrMalformedArgs)

	assert.Zero(t, sched.RunUntilIdle())
	assert.Empty(t, wv.scripts)
}

func TestScript_EscapesCallbackID(t *testing.T) {
	s, err := Script(taskqueue.Delivery{
		CallbackID: `x";alert(1);"`,
		Envelope:   result.Envelope{Status: result.StatusOK},
	})
	require.NoError(t, err)
	_, id := parseScript(t, s)
	assert.Equal(t, `x";alert(1);"`, id)
	assert.NotContains(t, s, `"x";alert(1)`)
}
