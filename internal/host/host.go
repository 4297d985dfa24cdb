// Package host declares the native services the bridge talks to: the page
// that owns the webview, the webview itself and the audio manager. The real
// implementations live in the embedding shell; Headless is used when running
// without a device.
package host

import "time"

// StreamType selects which audio stream the hardware volume keys adjust.
type StreamType int

const (
	StreamVoiceCall StreamType = iota
	StreamMusic
)

func (s StreamType) String() string {
	if s == StreamMusic {
		return "music"
	}
	return "voice_call"
}

// AdjustDirection is the direction of a volume adjustment.
type AdjustDirection int

const (
	AdjustLower AdjustDirection = iota
	AdjustRaise
)

// Button names shared with the web runtime.
const (
	BackButton       = "backbutton"
	VolumeUpButton   = "volumeupbutton"
	VolumeDownButton = "volumedownbutton"
)

// LoadOptions are the knobs of a page load requested from the web side.
type LoadOptions struct {
	OpenExternal bool
	ClearHistory bool
	Timeout      time.Duration
}

// Page is the host page owning the webview.
type Page interface {
	// SetAdjustableAudioStream hands the volume keys to the system for stream.
	SetAdjustableAudioStream(stream StreamType)
	// ClearAdjustableAudioStream takes the volume keys away from the system.
	ClearAdjustableAudioStream()
	// AdjustableAudioStream reports the stream the system adjusts, if any.
	AdjustableAudioStream() (StreamType, bool)
	// OnKeyDown installs a key handler. Returning true consumes the key.
	OnKeyDown(handler func(code string) bool)
	// Stop finishes the page.
	Stop()
}

// WebView is the view that runs the web content.
type WebView interface {
	EvaluateJavaScript(script string, done func(error))
	SetButtonPlumbedToJS(button string, override bool)
	ClearBoundButtons()
	DispatchKeyEventToDOM(button string)
	ClearHistory()
	GoBack()
	ShowWebPage(url string, opts LoadOptions)
}

// Audio is the system audio manager.
type Audio interface {
	AdjustStreamVolume(stream StreamType, dir AdjustDirection, showUI bool)
}
