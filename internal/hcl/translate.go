package hcl

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/yunosbridge/internal/config"
	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// translate converts the HCL-specific schema into the agnostic model.
func translate(ctx context.Context, root *fileRoot) (*config.Config, error) {
	logger := ctxlog.FromContext(ctx)
	var errs []error

	cfg := &config.Config{
		Name:            root.Name,
		ContentSrc:      root.Content,
		AllowNavigation: root.AllowNavigation,
		AllowIntent:     root.AllowIntent,
		Access:          root.Access,
	}

	for _, p := range root.Preferences {
		v, err := valueString(p.Value)
		if err != nil {
			errs = append(errs, fmt.Errorf("preference %q: %w", p.Name, err))
			continue
		}
		cfg.Preferences = append(cfg.Preferences, config.Preference{Name: p.Name, Value: v})
	}

	for _, f := range root.Features {
		feature := config.Feature{Name: f.Name}
		for _, p := range f.Params {
			v, err := valueString(p.Value)
			if err != nil {
				errs = append(errs, fmt.Errorf("feature %q param %q: %w", f.Name, p.Name, err))
				continue
			}
			feature.Params = append(feature.Params, config.Param{Name: p.Name, Value: v})
		}
		logger.Debug("Found plugin feature.", "name", feature.Name, "params", len(feature.Params))
		cfg.Features = append(cfg.Features, feature)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// valueString renders a primitive cty value as text. Booleans become
// "true"/"false".
func valueString(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", nil
	}
	if !v.IsKnown() {
		return "", errors.New("value is not known")
	}
	if !v.Type().IsPrimitiveType() {
		return "", fmt.Errorf("expected a string, number or bool, got %s", v.Type().FriendlyName())
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", err
	}
	return s.AsString(), nil
}
