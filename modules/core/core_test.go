package core

import (
	"context"
	"testing"
	"time"

	"github.com/specialistvlad/yunosbridge/internal/callback"
	"github.com/specialistvlad/yunosbridge/internal/config"
	"github.com/specialistvlad/yunosbridge/internal/host"
	"github.com/specialistvlad/yunosbridge/internal/plugin"
	"github.com/specialistvlad/yunosbridge/internal/registry"
	"github.com/specialistvlad/yunosbridge/internal/result"
	"github.com/specialistvlad/yunosbridge/internal/scheduler"
	"github.com/specialistvlad/yunosbridge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink struct{ results []*result.PluginResult }

func (s *sink) SendPluginResult(r *result.PluginResult, _ string) { s.results = append(s.results, r) }

func newCore(t *testing.T, cfg *config.Config) (*Plugin, *testutil.FakeHost) {
	t.Helper()
	h := testutil.NewFakeHost()
	p := New()
	env := plugin.Env{Config: cfg, Page: h, WebView: h, Audio: h, Scheduler: scheduler.NewManual()}
	require.NoError(t, plugin.PrivateInitialize(context.Background(), p, ServiceName, env))
	h.Reset()
	return p, h
}

func call(t *testing.T, p *Plugin, action string, args ...any) (plugin.Outcome, *sink) {
	t.Helper()
	s := &sink{}
	cb := callback.New(context.Background(), "cb", s)
	outcome, err := plugin.Execute(context.Background(), p.Actions(), action, cb, plugin.MustArgs(args...))
	if outcome == plugin.Handled {
		require.NoError(t, err)
	}
	return outcome, s
}

func TestInitialize_SelectsVolumeStream(t *testing.T) {
	testCases := []struct {
		pref string
		want host.StreamType
	}{
		{"", host.StreamVoiceCall},
		{"media", host.StreamMusic},
		{"MEDIA", host.StreamMusic},
		{"call", host.StreamVoiceCall},
	}
	for _, tc := range testCases {
		t.Run(tc.pref, func(t *testing.T) {
			cfg := &config.Config{Preferences: []config.Preference{{Name: PrefVolumeStream, Value: tc.pref}}}
			_, h := newCore(t, cfg)
			stream, ok := h.AdjustableAudioStream()
			assert.True(t, ok)
			assert.Equal(t, tc.want, stream)
		})
	}
}

func TestInitialize_RequiresHost(t *testing.T) {
	err := plugin.PrivateInitialize(context.Background(), New(), ServiceName, plugin.Env{})
	assert.ErrorContains(t, err, "needs a page and a webview")
}

func TestActions_History(t *testing.T) {
	p, h := newCore(t, nil)

	call(t, p, "clearHistory")
	call(t, p, "backHistory")
	call(t, p, "overrideBackbutton", true)
	call(t, p, "overrideBackbutton")
	call(t, p, "exitApp")
	call(t, p, "clearCache")
	call(t, p, "cancelLoadUrl")

	assert.Equal(t, []string{
		"history:clear",
		"history:back",
		"plumb:backbutton=true",
		"stop",
	}, h.Calls())
}

func TestMessageChannel_FireDOMEvent(t *testing.T) {
	ctx := context.Background()
	p, _ := newCore(t, nil)

	assert.False(t, p.FireDOMEvent(ctx, "backbutton"), "no channel yet")

	_, s := call(t, p, "messageChannel")
	assert.Empty(t, s.results, "opening the channel sends nothing")

	require.True(t, p.FireDOMEvent(ctx, "backbutton"))
	require.True(t, p.FireDOMEvent(ctx, "backbutton"))
	require.Len(t, s.results, 2)
	res := s.results[1]
	assert.Equal(t, result.StatusOK, res.Status)
	assert.True(t, res.KeepCallback)
	env, err := res.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"backbutton"}`, env.RetValue)
}

func TestOverrideButton_VolumeKeys(t *testing.T) {
	p, h := newCore(t, nil)

	// --- Act: take over volume up ---
	call(t, p, "overrideButton", "volumeup", true)

	// --- Assert ---
	_, systemOwned := h.AdjustableAudioStream()
	assert.False(t, systemOwned)
	assert.True(t, h.PressKey("VolumeUp"))
	assert.True(t, h.PressKey("VolumeDown"))
	assert.False(t, h.PressKey("Enter"))
	assert.Equal(t, []string{
		"stream:cleared",
		"keydown:installed",
		"plumb:volumeupbutton=true",
		"dom:volumeupbutton",
		"volume:voice_call:lower ui=true",
	}, h.Calls())

	// --- Act: release it again ---
	h.Reset()
	call(t, p, "overrideButton", "volumeup", false)

	// --- Assert ---
	_, systemOwned = h.AdjustableAudioStream()
	assert.True(t, systemOwned)
	assert.Equal(t, []string{"stream:voice_call", "plumb:volumeupbutton=false"}, h.Calls())
}

func TestOverrideButton_IgnoresOtherButtons(t *testing.T) {
	p, h := newCore(t, nil)
	call(t, p, "overrideButton", "menubutton", true)
	call(t, p, "overrideButton", "volumeup")
	assert.Empty(t, h.Calls())
}

func TestLoadURL(t *testing.T) {
	t.Run("immediate with props", func(t *testing.T) {
		p, h := newCore(t, nil)
		outcome, _ := call(t, p, "loadUrl", "https://example.com",
			map[string]any{"OpenExternal": true, "clearhistory": "yes", "loadUrlTimeoutValue": 1500})
		assert.Equal(t, plugin.Handled, outcome)
		assert.Equal(t, []string{"show:https://example.com open=true clear=false timeout=1.5s"}, h.Calls())
	})

	t.Run("null props", func(t *testing.T) {
		p, h := newCore(t, nil)
		call(t, p, "loadUrl", "page://index.html", nil)
		assert.Equal(t, []string{"show:page://index.html open=false clear=false timeout=0s"}, h.Calls())
	})

	t.Run("wrong arity is invalid", func(t *testing.T) {
		p, h := newCore(t, nil)
		outcome, _ := call(t, p, "loadUrl", "https://example.com")
		assert.Equal(t, plugin.InvalidAction, outcome)
		assert.Empty(t, h.Calls())
	})

	t.Run("delayed load runs on the scheduler", func(t *testing.T) {
		// --- Arrange ---
		p, h := newCore(t, nil)
		sched := p.Scheduler().(*scheduler.Manual)

		// --- Act ---
		call(t, p, "loadUrl", "https://later.example", map[string]any{"wait": 10})

		// --- Assert ---
		assert.Empty(t, h.Calls())
		require.Eventually(t, func() bool { return sched.Pending() == 1 }, time.Second, 5*time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		assert.Empty(t, h.Calls(), "the timer must not touch the webview itself")

		require.True(t, sched.Step())
		assert.Equal(t, []string{"show:https://later.example open=false clear=false timeout=0s"}, h.Calls())
	})

	t.Run("cancelled", func(t *testing.T) {
		p, h := newCore(t, nil)
		sched := p.Scheduler().(*scheduler.Manual)
		call(t, p, "loadUrl", "https://never.example", map[string]any{"wait": 50})
		call(t, p, "cancelLoadUrl")
		time.Sleep(100 * time.Millisecond)
		sched.RunUntilIdle()
		assert.Empty(t, h.Calls())
	})

	t.Run("cancelled after the timer fired", func(t *testing.T) {
		p, h := newCore(t, nil)
		sched := p.Scheduler().(*scheduler.Manual)
		call(t, p, "loadUrl", "https://stale.example", map[string]any{"wait": 1})
		require.Eventually(t, func() bool { return sched.Pending() == 1 }, time.Second, 5*time.Millisecond)

		call(t, p, "cancelLoadUrl")
		sched.RunUntilIdle()

		assert.Empty(t, h.Calls())
	})
}

func TestOnReset(t *testing.T) {
	cfg := &config.Config{Preferences: []config.Preference{{Name: PrefVolumeStream, Value: "media"}}}
	p, h := newCore(t, cfg)
	call(t, p, "overrideButton", "volumedown", true)
	h.Reset()

	p.OnReset(context.Background())

	assert.Equal(t, []string{"buttons:cleared", "stream:music"}, h.Calls())
	assert.False(t, p.boundDown)
}

func TestPolicies_UseWhitelist(t *testing.T) {
	cfg := &config.Config{
		AllowNavigation: []string{"https://app.example.com/*"},
		AllowIntent:     []string{"tel:*"},
		Access:          []string{"https://api.example.com"},
	}
	p, _ := newCore(t, cfg)
	ctx := context.Background()

	assert.Equal(t, plugin.Allow, p.ShouldAllowNavigation(ctx, "https://app.example.com/x"))
	assert.Equal(t, plugin.NoOpinion, p.ShouldAllowNavigation(ctx, "https://api.example.com/x"))
	assert.Equal(t, plugin.Allow, p.ShouldAllowRequest(ctx, "https://api.example.com/x"))
	assert.Equal(t, plugin.Allow, p.ShouldOpenExternalURL(ctx, "tel:555"))
}

func TestModule_RegistersWithRegistry(t *testing.T) {
	ctx := context.Background()
	h := testutil.NewFakeHost()
	reg := registry.New(ctx, registry.Options{Env: plugin.Env{Page: h, WebView: h, Audio: h, Scheduler: scheduler.NewManual()}})
	Module{}.Register(reg)
	reg.AddService(ctx, ServiceName, ModulePath, true)

	reg.Init(ctx)

	assert.Equal(t, registry.Initialized, reg.State(ServiceName))
	assert.IsType(t, &Plugin{}, reg.GetPlugin(ctx, ServiceName))
	assert.False(t, reg.ShouldAllowNavigation(ctx, "https://elsewhere.example"))
}
