package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/yunosbridge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appHCL = `
name    = "demo"
content = "index.html"

preference "LogLevel" {
  value = "DEBUG"
}

preference "Fullscreen" {
  value = true
}

feature "Echo" {
  param "yunos-package" {
    value = "plugins/echo"
  }
  param "onload" {
    value = true
  }
}

allow_navigation = ["*"]
allow_intent     = ["tel:*", "sms:*"]
access           = ["https://*.example.com/*"]
`

func TestLoadBytes_TranslatesModel(t *testing.T) {
	cfg, err := NewLoader().LoadBytes(context.Background(), []byte(appHCL), "app.hcl")
	require.NoError(t, err)

	want := &config.Config{
		Name:       "demo",
		ContentSrc: "index.html",
		Preferences: []config.Preference{
			{Name: "LogLevel", Value: "DEBUG"},
			{Name: "Fullscreen", Value: "true"},
		},
		Features: []config.Feature{{
			Name: "Echo",
			Params: []config.Param{
				{Name: "yunos-package", Value: "plugins/echo"},
				{Name: "onload", Value: "true"},
			},
		}},
		AllowNavigation: []string{"*"},
		AllowIntent:     []string{"tel:*", "sms:*"},
		Access:          []string{"https://*.example.com/*"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []config.Service{{ID: "Echo", ModulePath: "plugins/echo", AutoStart: true}}, cfg.Services())
}

func TestLoadBytes_RejectsNonPrimitiveValues(t *testing.T) {
	src := `
preference "Bad" {
  value = ["a", "b"]
}
`
	_, err := NewLoader().LoadBytes(context.Background(), []byte(src), "bad.hcl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `preference "Bad"`)
}

func TestLoadBytes_RejectsInvalidSyntax(t *testing.T) {
	_, err := NewLoader().LoadBytes(context.Background(), []byte(`feature "x" {`), "broken.hcl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse HCL")
}

func TestLoad_MergesDirectoryInLexicalOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "10-app.hcl"), []byte(`
name = "demo"
feature "A" {}
access = ["*"]
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20-extra.hcl"), []byte(`
feature "B" {}
`), 0644))

	cfg, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, cfg.Features, 2)
	assert.Equal(t, "A", cfg.Features[0].Name)
	assert.Equal(t, "B", cfg.Features[1].Name)
	assert.Equal(t, "demo", cfg.Name)
}

func TestLoad_NoFilesIsAnError(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), t.TempDir())
	require.Error(t, err)
}
