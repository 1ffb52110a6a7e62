package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/pthm/hxembed/internal/config"
)

const version = "0.2.0"

type envKey struct{}

// env is the per-run state shared by commands.
type env struct {
	cfg *config.Config
	log *zap.Logger
}

func envFromContext(ctx context.Context) *env {
	if e, ok := ctx.Value(envKey{}).(*env); ok {
		return e
	}
	return &env{log: zap.NewNop()}
}

// initializeAppContext loads configuration and the logger after the command
// line has been parsed.
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	e := envFromContext(ctx)

	configFile := cmd.String("config")
	cfg, err := config.LoadConfiguration(configFile)
	if err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		cfg.Logging.ConsoleLogger.Level = "debug"
	}
	e.cfg = cfg
	if e.log, err = cfg.Logging.Prepare(); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}

	e.log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", version), zap.String("runtime", runtime.Version()))
	if len(configFile) == 0 {
		e.log.Debug("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, _ *cli.Command) error {
	e := envFromContext(ctx)
	// stdout/stderr sync errors are expected on terminals
	_ = e.log.Sync()
	return nil
}

var errWasHandled bool

func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	e := envFromContext(ctx)
	if e.cfg != nil {
		e.log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.WithValue(context.Background(), envKey{}, &env{log: zap.NewNop()}),
		os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            "hxembed",
		Usage:           "composes remote Edge Delivery content into host pages",
		Version:         version + " (" + runtime.Version() + ")",
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		ExitErrHandler:  exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log at debug level"},
		},
		Commands: []*cli.Command{
			{
				Name:      "compose",
				Usage:     "Composes one embed and writes the rendered host element",
				Action:    runCompose,
				ArgsUsage: "TARGET [DESTINATION]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "main", Usage: "composition `MODE` (main, header, footer)"},
					&cli.BoolFlag{Name: "strict", Usage: "fail when any block failed to load"},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serves embeds over HTTP for htmx hosts",
				Action: runServe,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Usage: "listen on `ADDR` instead of the configured address"},
				},
			},
			{
				Name:      "dumpconfig",
				Usage:     "Dumps either default or actual configuration (YAML)",
				Action:    runDumpConfig,
				ArgsUsage: "DESTINATION",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
			},
		},
	}

	err := app.Run(ctx, os.Args)
	stop()
	if err != nil {
		if !errWasHandled {
			fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
		}
		os.Exit(1)
	}
}

func runDumpConfig(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)

	var (
		data  []byte
		err   error
		state string
	)
	if cmd.Bool("default") {
		state = "default"
		data = config.Default()
	} else {
		state = "actual"
		if data, err = config.Dump(e.cfg); err != nil {
			return fmt.Errorf("unable to get configuration: %w", err)
		}
	}

	fname := cmd.Args().Get(0)
	e.log.Debug("Outputting configuration", zap.String("state", state), zap.String("file", fname))
	return writeOutput(fname, data)
}

func writeOutput(fname string, data []byte) error {
	if len(fname) == 0 {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(fname, data, 0o644); err != nil {
		return fmt.Errorf("unable to write '%s': %w", fname, err)
	}
	return nil
}
