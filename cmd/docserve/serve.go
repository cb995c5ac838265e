package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/docserve"
	"github.com/jpalmerr/docserve/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	// shutdownTimeout bounds the wait after a signal; the server itself
	// drains within 5s but a browser launch may still be running.
	shutdownTimeout = 15 * time.Second
)

// newLogger creates a JSON logger for CLI use.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// serveCmd starts the documentation server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the documentation (default command)",
	Long: `Serve the built documentation on localhost.

The server will:
  - Resolve the documentation layout from --base-dir, the config file,
    DOCSERVE_* environment variables, or the directory of this binary
  - Bind the port, failing at once if it is already taken
  - Open the default page in your browser
  - Run until ENTER is pressed, Ctrl+C, or SIGTERM

Settings are applied in order: defaults, config file, environment, flags.

Example:
  docserve serve --base-dir ./docs
  docserve serve -c docserve.yaml --port 8000 --no-browser`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("config", "c", "", "path to config file")
	flags.String("host", "", "interface to bind (default localhost)")
	flags.Int("port", 0, "port to listen on (default 5009)")
	flags.String("base-dir", "", "directory containing build/html and switcher.json")
	flags.Bool("no-browser", false, "do not open a browser")
	flags.Bool("no-prompt", false, "do not wait for ENTER; stop on SIGINT/SIGTERM only")
}

// loadConfig builds the configuration from the config file, environment and
// flags, in increasing precedence, and resolves it.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg := config.Default()
	if configFile, _ := flags.GetString("config"); configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if err := config.FromEnv(cfg); err != nil {
		return nil, err
	}

	if flags.Changed("host") {
		cfg.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("base-dir") {
		cfg.BaseDir, _ = flags.GetString("base-dir")
	}
	if noBrowser, _ := flags.GetBool("no-browser"); noBrowser {
		cfg.OpenBrowser = false
	}
	if noPrompt, _ := flags.GetBool("no-prompt"); noPrompt {
		cfg.Prompt = false
	}

	if err := cfg.Resolve(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Level())
	logger.Info("config loaded",
		"doc_root", cfg.DocRoot,
		"switcher", cfg.Switcher,
	)

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger, cmd.InOrStdin(), cmd.OutOrStdout())
}

// serve prints the banner and runs docserve until it shuts down.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, in io.Reader, out io.Writer) error {
	opts, err := config.BuildOptions(cfg)
	if err != nil {
		return err
	}
	opts = append(opts, docserve.WithLogger(logger), docserve.WithOutput(out))
	if cfg.Prompt {
		opts = append(opts, docserve.WithPrompt(in, out))
	}

	ds, err := docserve.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create docserve: %w", err)
	}

	fmt.Fprintf(out, "Starting server on port %d...\n", cfg.Port)
	fmt.Fprintf(out, "Visit %s to see documentation\n", cfg.DefaultURL())

	logger.Info("starting server",
		"addr", ds.Config().Addr(),
		"open_browser", cfg.OpenBrowser,
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- ds.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
