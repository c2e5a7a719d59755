// Seed adds a few todos to every category. Run from project root: go run ./scripts/seed
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"todo-api/internal/config"
	"todo-api/internal/models"
	"todo-api/internal/repository"
)

var samples = []string{"Buy groceries", "Call the plumber", "Plan the weekend", "Pay the bills"}

func main() {
	ctx := context.Background()
	cfg, err := config.Load(os.Getenv("TODO_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Config failed:", err)
		os.Exit(1)
	}

	store, err := repository.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Database not available:", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Initialize(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Schema failed:", err)
		os.Exit(1)
	}

	start := time.Now()
	n := 0
	for _, c := range models.Categories {
		for _, title := range samples {
			if _, err := store.Add(ctx, title, c); err != nil {
				fmt.Fprintln(os.Stderr, "Insert failed:", err)
				os.Exit(1)
			}
			n++
		}
	}
	fmt.Printf("Done: %d todos in %v (%s)\n", n, time.Since(start), cfg.Backend())
}
