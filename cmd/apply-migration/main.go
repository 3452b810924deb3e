package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gol43/test-moon/common/database"
	"github.com/gol43/test-moon/internal/config"
	"github.com/gol43/test-moon/internal/repository"
)

// Applies the embedded schema, or a SQL file given as the first argument.
func main() {
	cfg := config.Load()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer database.Close(db)

	fmt.Printf("Connected to database: %s@%s:%d/%s\n", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if len(os.Args) < 2 {
		if err := repository.ApplySchema(ctx, db); err != nil {
			log.Fatalf("Failed to apply schema: %v", err)
		}
		fmt.Println("Schema applied successfully")
		return
	}

	migrationFile := os.Args[1]
	sqlContent, err := os.ReadFile(migrationFile)
	if err != nil {
		log.Fatalf("Failed to read migration file: %v", err)
	}
	if _, err := db.ExecContext(ctx, string(sqlContent)); err != nil {
		log.Fatalf("Failed to execute %s: %v", migrationFile, err)
	}
	fmt.Printf("Migration %s applied successfully\n", migrationFile)
}
