package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"todo-api/internal/worker"
)

var watchGroup string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tail todo change events from Kafka and log them",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		return worker.Run(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, watchGroup, worker.LogHandler)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchGroup, "group", "todo-watchers", "Kafka consumer group id")
}
