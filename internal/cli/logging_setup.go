package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/nutricount/internal/config"
	"github.com/rshade/nutricount/internal/logging"
)

// setupLogging configures logging from config and the --debug flag, stores
// the logger and a trace id in the command context and returns a cleanup
// function for the log file.
func setupLogging(cmd *cobra.Command) func() error {
	loggingCfg := config.GetLoggingConfig()

	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		loggingCfg.Level = "debug"
		loggingCfg.Format = logging.FormatConsole
		loggingCfg.File = ""
	}

	if loggingCfg.File != "" {
		if err := config.EnsureLogDir(); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not create log directory: %v\n", err)
		}
	}

	base, closer, err := logging.NewLogger(loggingCfg.ToLoggingConfig())
	if err != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v, logging to stderr\n", err)
		fallback := loggingCfg
		fallback.File = ""
		base, closer, _ = logging.NewLogger(fallback.ToLoggingConfig())
	}
	logger = logging.ComponentLogger(base, "cli")

	ctx := cmd.Context()
	traceID := logging.GetOrGenerateTraceID(ctx)
	ctx = logging.WithTraceID(ctx, logger, traceID)
	cmd.SetContext(ctx)

	logger.Debug().Str("trace_id", traceID).Str("command", cmd.CommandPath()).Msg("command started")
	return closer.Close
}
