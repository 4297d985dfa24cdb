package testutil

import (
	"fmt"
	"sync"

	"github.com/specialistvlad/yunosbridge/internal/host"
)

// FakeHost implements host.Page, host.WebView and host.Audio and records
// every call as a short string, e.g. "show:https://x open=true clear=false".
type FakeHost struct {
	mu      sync.Mutex
	calls   []string
	scripts []string
	stream  host.StreamType
	hasAdj  bool
	keyDown func(string) bool

	// EvalErr is returned to EvaluateJavaScript callers when set.
	EvalErr error
}

// NewFakeHost creates a host whose audio stream starts system-controlled.
func NewFakeHost() *FakeHost {
	return &FakeHost{hasAdj: true}
}

func (h *FakeHost) record(format string, args ...any) {
	h.mu.Lock()
	h.calls = append(h.calls, fmt.Sprintf(format, args...))
	h.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (h *FakeHost) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

// Scripts returns a copy of the evaluated scripts.
func (h *FakeHost) Scripts() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.scripts...)
}

// Reset forgets recorded calls and scripts.
func (h *FakeHost) Reset() {
	h.mu.Lock()
	h.calls, h.scripts = nil, nil
	h.mu.Unlock()
}

// PressKey feeds code to the installed key handler.
func (h *FakeHost) PressKey(code string) bool {
	h.mu.Lock()
	handler := h.keyDown
	h.mu.Unlock()
	if handler == nil {
		return false
	}
	return handler(code)
}

func (h *FakeHost) SetAdjustableAudioStream(stream host.StreamType) {
	h.mu.Lock()
	h.stream, h.hasAdj = stream, true
	h.mu.Unlock()
	h.record("stream:%s", stream)
}

func (h *FakeHost) ClearAdjustableAudioStream() {
	h.mu.Lock()
	h.hasAdj = false
	h.mu.Unlock()
	h.record("stream:cleared")
}

func (h *FakeHost) AdjustableAudioStream() (host.StreamType, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stream, h.hasAdj
}

func (h *FakeHost) OnKeyDown(handler func(code string) bool) {
	h.mu.Lock()
	h.keyDown = handler
	h.mu.Unlock()
	h.record("keydown:installed")
}

func (h *FakeHost) Stop() { h.record("stop") }

func (h *FakeHost) EvaluateJavaScript(script string, done func(error)) {
	h.mu.Lock()
	h.scripts = append(h.scripts, script)
	err := h.EvalErr
	h.mu.Unlock()
	if done != nil {
		done(err)
	}
}

func (h *FakeHost) SetButtonPlumbedToJS(button string, override bool) {
	h.record("plumb:%s=%t", button, override)
}

func (h *FakeHost) ClearBoundButtons() { h.record("buttons:cleared") }

func (h *FakeHost) DispatchKeyEventToDOM(button string) { h.record("dom:%s", button) }

func (h *FakeHost) ClearHistory() { h.record("history:clear") }

func (h *FakeHost) GoBack() { h.record("history:back") }

func (h *FakeHost) ShowWebPage(url string, opts host.LoadOptions) {
	h.record("show:%s open=%t clear=%t timeout=%s", url, opts.OpenExternal, opts.ClearHistory, opts.Timeout)
}

func (h *FakeHost) AdjustStreamVolume(stream host.StreamType, dir host.AdjustDirection, showUI bool) {
	d := "lower"
	if dir == host.AdjustRaise {
		d = "raise"
	}
	h.record("volume:%s:%s ui=%t", stream, d, showUI)
}
