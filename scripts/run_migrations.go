package main

import (
	"database/sql"
	"flag"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"
	"github.com/techzone/commerce/internal/config"
)

func main() {
	dir := flag.String("dir", "migrations", "directory holding .up.sql/.down.sql files")
	flag.Parse()

	direction := flag.Arg(0)
	if direction != "up" && direction != "down" {
		log.Fatal("Usage: go run scripts/run_migrations.go [-dir migrations] up|down")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Ping database: %v", err)
	}

	entries, err := os.ReadDir(*dir)
	if err != nil {
		log.Fatalf("Read migration directory: %v", err)
	}

	var files []string
	suffix := "." + direction + ".sql"
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), suffix) {
			files = append(files, entry.Name())
		}
	}

	// Up migrations apply oldest first, down migrations unwind newest first.
	sort.Strings(files)
	if direction == "down" {
		for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
			files[i], files[j] = files[j], files[i]
		}
	}

	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(*dir, name))
		if err != nil {
			log.Fatalf("Read migration file %s: %v", name, err)
		}

		log.Printf("Running migration: %s", name)
		tx, err := db.Begin()
		if err != nil {
			log.Fatalf("Begin transaction for %s: %v", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			log.Fatalf("Execute migration %s: %v", name, err)
		}
		if err := tx.Commit(); err != nil {
			log.Fatalf("Commit migration %s: %v", name, err)
		}
	}

	log.Printf("Successfully ran %d migration(s) %s", len(files), direction)
}
