package main

import (
	"errors"
	stdLog "log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/Astemirdum/libsys/library/app"
	"github.com/Astemirdum/libsys/library/config"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		stdLog.Fatal("load envs from .env ", err)
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		debug   bool
		storage string
	)
	load := func() config.Config {
		ops := []config.Option{config.WithWriteTimeout(time.Minute)}
		if debug {
			ops = append(ops, config.WithLogLevel(zapcore.DebugLevel))
		}
		if storage != "" {
			ops = append(ops, config.WithStorage(storage))
		}
		return config.NewConfig(ops...)
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the library HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(load())
		},
	}
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and print their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Migrate(load())
		},
	}

	root := &cobra.Command{
		Use:          "libsys",
		Short:        "Library management service",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "debug log level")
	root.PersistentFlags().StringVar(&storage, "storage", "", "storage driver: postgres or memory (overrides STORAGE_DRIVER)")
	root.AddCommand(serve, migrate)
	return root
}
