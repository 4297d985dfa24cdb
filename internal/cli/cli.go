package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/specialistvlad/yunosbridge/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("yunosbridge", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
yunosbridge - host shell for hybrid web apps and their native plugins.

Usage:
  yunosbridge [options] [CONFIG_PATH...]

Arguments:
  CONFIG_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the app config file or directory.")
	cFlag := flagSet.String("c", "", "Path to the app config file or directory (shorthand).")
	pluginRootFlag := flagSet.String("plugins", "", "Root directory for Lua plugins and task sources. Defaults to the config location.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'. Empty uses the LogLevel preference.")
	workersFlag := flagSet.Int("workers", 2, "Number of background task workers.")
	remoteFlag := flagSet.String("remote", "", "Socket.IO URL of web content running outside the process.")
	namespaceFlag := flagSet.String("remote-namespace", "/", "Socket.IO namespace for the remote bridge.")
	insecureFlag := flagSet.Bool("remote-insecure", false, "Skip TLS certificate verification for the remote bridge.")
	timeoutFlag := flagSet.Duration("remote-timeout", 15*time.Second, "Connect timeout for the remote bridge.")
	faultsFlag := flagSet.Bool("report-faults", false, "Answer failing plugin actions with an ERROR result.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	var paths []string
	for _, p := range []string{*configFlag, *cFlag} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	paths = append(paths, flagSet.Args()...)
	slog.Debug("Config paths determined.", "paths", paths)

	if len(paths) == 0 {
		slog.Debug("No config path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if *workersFlag < 1 {
		return nil, false, &ExitError{Code: 2, Message: "invalid workers: must be at least 1"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ConfigPaths:           paths,
		PluginRoot:            *pluginRootFlag,
		HealthcheckPort:       *healthPortFlag,
		LogFormat:             logFormat,
		LogLevel:              logLevel,
		WorkerCount:           *workersFlag,
		RemoteURL:             *remoteFlag,
		RemoteNamespace:       *namespaceFlag,
		RemoteInsecure:        *insecureFlag,
		RemoteConnectTimeout:  *timeoutFlag,
		ReportExecutionFaults: *faultsFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
