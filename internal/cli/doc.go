// Package cli parses the host shell's command line: config paths, plugin
// root, logging, worker count and the optional remote bridge endpoint. Usage
// and validation failures surface as an ExitError carrying the process exit
// code.
package cli
