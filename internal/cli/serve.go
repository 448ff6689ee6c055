package cli

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"warchief/server/internal/app"
	"warchief/server/internal/config"
	"warchief/server/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the simulation loop and the websocket server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.String("addr", "", "listen address (overrides WARCHIEF_ADDR)")
	flags.Int("tick-rate", 0, "ticks per second (overrides WARCHIEF_TICK_RATE)")
	flags.String("store", "", "macro store: memory, yaml or sqlite (overrides WARCHIEF_STORE)")
	flags.String("store-path", "", "directory or database file for the store (overrides WARCHIEF_STORE_PATH)")
	flags.StringSlice("log-sinks", nil, "event sinks: console, json, memory (overrides WARCHIEF_LOG_SINKS)")
	flags.Bool("no-seed", false, "skip the demo characters and macros")
	flags.Bool("pprof", false, "mount /debug/pprof/ (overrides WARCHIEF_PPROF)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := serveConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := telemetry.WrapLogger(log.New(cmd.ErrOrStderr(), "", log.LstdFlags))
	return app.Run(ctx, app.Options{Config: cfg, Logger: logger, Stdout: cmd.OutOrStdout()})
}

// serveConfig loads the environment and applies flags the user set.
func serveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.ListenAddr, _ = flags.GetString("addr")
	}
	if flags.Changed("tick-rate") {
		cfg.TickRate, _ = flags.GetInt("tick-rate")
	}
	if flags.Changed("store") {
		cfg.StoreDriver, _ = flags.GetString("store")
	}
	if flags.Changed("store-path") {
		cfg.StorePath, _ = flags.GetString("store-path")
	}
	if flags.Changed("log-sinks") {
		cfg.LogSinks, _ = flags.GetStringSlice("log-sinks")
	}
	if flags.Changed("no-seed") {
		noSeed, _ := flags.GetBool("no-seed")
		cfg.SeedDemo = !noSeed
	}
	if flags.Changed("pprof") {
		cfg.EnablePprof, _ = flags.GetBool("pprof")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
