package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"retailbot/internal/config"
	"retailbot/internal/logger"
)

// env is what every subcommand needs: the loaded config and a logger.
type env struct {
	cfgPath string
	verbose bool
	cfg     *config.AppConfig
	log     *zap.Logger
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "retailbot",
		Short:         "Supermarket customer-service chatbot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// the terminal chat owns stdout, so it logs to the file only
			return e.load(cmd.Name() != "chat")
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if e.log != nil {
				_ = e.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&e.cfgPath, "config", "", "path to YAML config (default ./config.yaml or ~/.config/retailbot/config.yaml)")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newChatCmd(e),
		newServeCmd(e),
		newIngestCmd(e),
		newResetCacheCmd(e),
		newUsersCmd(e),
		newStatsCmd(e),
	)
	return root
}

func (e *env) load(console bool) error {
	var (
		cfg  *config.AppConfig
		path = e.cfgPath
		err  error
	)
	if path == "" {
		cfg, path, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	level := cfg.Log.Level
	if e.verbose {
		level = "debug"
	}
	l, err := logger.New(logger.Config{
		Level:      level,
		File:       cfg.Log.File,
		Production: cfg.Log.Production,
		Console:    console,
	})
	if err != nil {
		return err
	}
	l.Debug("config loaded", zap.String("path", path))
	e.cfg = cfg
	e.log = l
	return nil
}
