package config

import "strings"

// Names of feature parameters understood by the plugin loader.
const (
	ParamPackage = "yunos-package"
	ParamOnload  = "onload"
)

// Config is the unified, format-agnostic representation of an application's
// configuration.
type Config struct {
	Name        string
	ContentSrc  string
	Preferences []Preference
	Features    []Feature

	// AllowNavigation, AllowIntent and Access are the raw whitelist patterns.
	AllowNavigation []string
	AllowIntent     []string
	Access          []string
}

// Preference is a single name/value preference.
type Preference struct {
	Name  string
	Value string
}

// Feature declares a plugin service and its parameters.
type Feature struct {
	Name   string
	Params []Param
}

// Param is a feature parameter.
type Param struct {
	Name  string
	Value string
}

// Service is the descriptor a feature translates into.
type Service struct {
	ID         string
	ModulePath string
	AutoStart  bool
}

// GetPreferenceValue returns the value of the first preference whose name
// matches case-insensitively, or def when there is none.
func (c *Config) GetPreferenceValue(name, def string) string {
	if c == nil {
		return def
	}
	for _, p := range c.Preferences {
		if strings.EqualFold(p.Name, name) {
			return p.Value
		}
	}
	return def
}

// Services translates the declared features into service descriptors, in
// declaration order.
func (c *Config) Services() []Service {
	if c == nil {
		return nil
	}
	services := make([]Service, 0, len(c.Features))
	for _, f := range c.Features {
		svc := Service{ID: f.Name}
		for _, p := range f.Params {
			switch p.Name {
			case ParamPackage:
				svc.ModulePath = p.Value
			case ParamOnload:
				svc.AutoStart = p.Value == "true"
			}
		}
		services = append(services, svc)
	}
	return services
}

// Merge appends other's entries to c. Scalar fields from other win when set.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.Name != "" {
		c.Name = other.Name
	}
	if other.ContentSrc != "" {
		c.ContentSrc = other.ContentSrc
	}
	c.Preferences = append(c.Preferences, other.Preferences...)
	c.Features = append(c.Features, other.Features...)
	c.AllowNavigation = append(c.AllowNavigation, other.AllowNavigation...)
	c.AllowIntent = append(c.AllowIntent, other.AllowIntent...)
	c.Access = append(c.Access, other.Access...)
}
