package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"todo-api/internal/config"
	"todo-api/pkg/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "todo-api",
	Short: "Category-scoped todo service",
	Long: `todo-api stores todos in an embedded SQLite file, or in PostgreSQL when
DATABASE_URL is set, and serves them over a JSON API at /api/todos.

Running without a subcommand is the same as "todo-api serve".`,
	SilenceUsage: true,
	RunE:         runServe,
}

func main() {
	loadEnvFile(".env")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (environment overrides it)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(watchCmd)
}

// loadConfig resolves the config once for the running command.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.LogLevel)
	logger.Debug(ctx, "Config loaded", "backend", cfg.Backend(), "events", cfg.EventsBackend)
	return cfg, nil
}

// loadEnvFile reads a .env file and sets env vars (only if not already set).
func loadEnvFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, val, ok := parseEnvLine(scanner.Text())
		if ok && os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}
}

func parseEnvLine(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	key, val, found := strings.Cut(line, "=")
	key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
	if !found || key == "" {
		return "", "", false
	}
	val = strings.TrimSpace(val)
	if len(val) >= 2 && (val[0] == '"' || val[0] == '\'') && val[len(val)-1] == val[0] {
		val = val[1 : len(val)-1]
	}
	return key, val, true
}
