// Package config defines the format-agnostic configuration model consumed by
// the bridge core (preferences, plugin features and the three URL allow
// lists), along with the Loader interface concrete formats implement.
//
// The `config.Config` is the single source of truth for the registry and the
// built-in plugins. The HCL implementation lives in internal/hcl.
package config
