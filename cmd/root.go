// Package cmd defines the kraken CLI.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/kraken/internal/app"
	"github.com/JakeFAU/kraken/internal/config"
	"github.com/JakeFAU/kraken/internal/kraken"
	"github.com/JakeFAU/kraken/internal/logging"
	"github.com/JakeFAU/kraken/internal/metrics"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	cfgFile     string
	dev         bool
	logLevel    string
	metricsAddr string

	// app is set once PersistentPreRunE has built the services.
	app *app.App
}

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. It is a variable so tests can swap it.
var newApp = func(cmd *cobra.Command, opts *rootOptions) (*app.App, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return nil, err
	}
	if opts.dev {
		cfg.Logging.Development = true
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Metrics.Addr = opts.metricsAddr
	}
	logger, err := logging.New(logging.Options{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
	if err != nil {
		return nil, kraken.Configf("logging.level", "%v", err)
	}
	metrics.Init()
	return app.New(cfg, logger), nil
}

func newRootCmd() *cobra.Command {
	return newRoot(&rootOptions{})
}

func newRoot(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kraken",
		Short: "Harvest League of Legends matches and build datasets from them.",
		Long: `kraken crawls the Riot match-v5 API from a set of seed players, keeps
every downloaded match as raw JSON, and turns the corpus into CSV, Parquet
and machine-learning tables.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			opts.app = a
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (YAML, TOML or JSON)")
	flags.BoolVar(&opts.dev, "dev", false, "human-friendly development logging")
	flags.StringVar(&opts.logLevel, "log-level", "info", "minimum log level")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /healthz, /metrics and /v1/progress on this address during harvests")

	cmd.AddCommand(
		newAbsorbCmd(),
		newEatCmd(),
		newResolveCmd(),
		newExtractCmd(),
		newPrepareMLCmd(),
		newSummaryCmd(),
	)
	return cmd
}

func resolveApp(ctx context.Context) (*app.App, error) {
	a, ok := ctx.Value(appKey).(*app.App)
	if !ok || a == nil {
		return nil, errors.New("application services not initialized")
	}
	return a, nil
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

// run executes one command line. The application is closed whether or not
// the command succeeded.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &rootOptions{}
	root := newRoot(opts)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if opts.app != nil {
		defer opts.app.Close()
	}
	if err == nil {
		return 0
	}
	report(opts.app, stderr, err)
	return exitCode(err)
}

// report logs a failed command at fatal level through the configured
// logger, or to stderr when the command failed before one existed.
func report(a *app.App, stderr io.Writer, err error) {
	if a == nil {
		_, _ = fmt.Fprintln(stderr, "kraken:", err)
		return
	}
	a.Logger().WithOptions(zap.WithFatalHook(returnHook{})).Fatal("command failed", zap.Error(err))
}

// returnHook lets a fatal entry return to the caller, which still has to
// close the application and pick the exit code.
type returnHook struct{}

func (returnHook) OnWrite(*zapcore.CheckedEntry, []zapcore.Field) {}

// exitCode maps configuration mistakes to 2 and every other failure to 1.
func exitCode(err error) int {
	if errors.Is(err, kraken.ErrConfiguration) {
		return 2
	}
	return 1
}
