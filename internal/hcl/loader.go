// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It is responsible for file parsing and HCL-to-model translation,
// including the cty conversion of preference and parameter values.
package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/yunosbridge/internal/config"
	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
	"github.com/specialistvlad/yunosbridge/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot is the schema of one configuration file.
type fileRoot struct {
	Name            string           `hcl:"name,optional"`
	Content         string           `hcl:"content,optional"`
	Preferences     []*hclPreference `hcl:"preference,block"`
	Features        []*hclFeature    `hcl:"feature,block"`
	AllowNavigation []string         `hcl:"allow_navigation,optional"`
	AllowIntent     []string         `hcl:"allow_intent,optional"`
	Access          []string         `hcl:"access,optional"`
}

type hclPreference struct {
	Name  string    `hcl:"name,label"`
	Value cty.Value `hcl:"value"`
}

type hclFeature struct {
	Name   string      `hcl:"name,label"`
	Params []*hclParam `hcl:"param,block"`
}

type hclParam struct {
	Name  string    `hcl:"name,label"`
	Value cty.Value `hcl:"value"`
}

// Load parses every .hcl file found under paths and merges them, in order,
// into a single config.Config.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Config, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.CollectFiles(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no configuration files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	cfg := &config.Config{}

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		part, err := l.decodeFile(ctx, hclFile)
		if err != nil {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, err)
		}
		cfg.Merge(part)
	}

	logger.Debug("HCL loading complete.",
		"preferences", len(cfg.Preferences),
		"features", len(cfg.Features),
		"allow_navigation", len(cfg.AllowNavigation),
		"allow_intent", len(cfg.AllowIntent),
		"access", len(cfg.Access))
	return cfg, nil
}

// LoadBytes decodes a single in-memory configuration document. filename is
// only used in diagnostics.
func (l *Loader) LoadBytes(ctx context.Context, src []byte, filename string) (*config.Config, error) {
	hclFile, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL %s: %w", filename, diags)
	}
	return l.decodeFile(ctx, hclFile)
}

func (l *Loader) decodeFile(ctx context.Context, file *hcl.File) (*config.Config, error) {
	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, diags
	}
	return translate(ctx, &root)
}
