// Package app is the host shell. It loads the app configuration, builds the
// run loop, registry, bridge and worker pool, and drives the page lifecycle,
// decoupled from any specific entrypoint like a CLI or an embedding host.
package app
