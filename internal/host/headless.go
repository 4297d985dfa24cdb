package host

import (
	"log/slog"
	"sync"
)

// Headless implements Page, WebView and Audio without a device. Every call is
// logged; scripts are "evaluated" by handing them to Eval when set.
type Headless struct {
	logger *slog.Logger
	// Eval receives scripts passed to EvaluateJavaScript.
	Eval func(script string) error

	mu      sync.Mutex
	stream  StreamType
	hasAdj  bool
	keyDown func(string) bool
	stopped bool
}

// NewHeadless creates a headless host logging to logger.
func NewHeadless(logger *slog.Logger) *Headless {
	return &Headless{logger: logger.With("component", "headless_host"), hasAdj: true}
}

func (h *Headless) SetAdjustableAudioStream(stream StreamType) {
	h.mu.Lock()
	h.stream, h.hasAdj = stream, true
	h.mu.Unlock()
	h.logger.Debug("Adjustable audio stream set.", "stream", stream)
}

func (h *Headless) ClearAdjustableAudioStream() {
	h.mu.Lock()
	h.hasAdj = false
	h.mu.Unlock()
	h.logger.Debug("Volume keys taken over by the app.")
}

func (h *Headless) AdjustableAudioStream() (StreamType, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stream, h.hasAdj
}

func (h *Headless) OnKeyDown(handler func(code string) bool) {
	h.mu.Lock()
	h.keyDown = handler
	h.mu.Unlock()
}

// PressKey feeds a key code to the installed key handler.
func (h *Headless) PressKey(code string) bool {
	h.mu.Lock()
	handler := h.keyDown
	h.mu.Unlock()
	if handler == nil {
		return false
	}
	return handler(code)
}

func (h *Headless) Stop() {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
	h.logger.Info("Page stopped.")
}

// Stopped reports whether Stop was called.
func (h *Headless) Stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

func (h *Headless) EvaluateJavaScript(script string, done func(error)) {
	var err error
	if h.Eval != nil {
		err = h.Eval(script)
	} else {
		h.logger.Debug("Evaluating script.", "bytes", len(script))
	}
	if done != nil {
		done(err)
	}
}

func (h *Headless) SetButtonPlumbedToJS(button string, override bool) {
	h.logger.Debug("Button plumbing changed.", "button", button, "override", override)
}

func (h *Headless) ClearBoundButtons() { h.logger.Debug("Bound buttons cleared.") }

func (h *Headless) DispatchKeyEventToDOM(button string) {
	h.logger.Debug("Key event dispatched to DOM.", "button", button)
}

func (h *Headless) ClearHistory() { h.logger.Debug("History cleared.") }

func (h *Headless) GoBack() { h.logger.Debug("History back.") }

func (h *Headless) ShowWebPage(url string, opts LoadOptions) {
	h.logger.Info("Show web page.", "url", url, "openExternal", opts.OpenExternal,
		"clearHistory", opts.ClearHistory, "timeout", opts.Timeout)
}

func (h *Headless) AdjustStreamVolume(stream StreamType, dir AdjustDirection, showUI bool) {
	h.logger.Debug("Adjust stream volume.", "stream", stream, "raise", dir == AdjustRaise, "showUI", showUI)
}
