// Command migrate applies the SQL files in migrations/ in lexical order.
// Each file runs in its own transaction and is recorded in
// schema_migrations, so reruns only apply what is new.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"
)

func main() {
	dir := flag.String("dir", "migrations", "directory containing .sql migration files")
	list := flag.Bool("list", false, "list applied migrations and exit")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("ping: %v", err)
	}

	if err := ensureMigrationsTable(db); err != nil {
		log.Fatalf("prepare schema_migrations: %v", err)
	}

	applied, err := appliedMigrations(db)
	if err != nil {
		log.Fatalf("read schema_migrations: %v", err)
	}

	if *list {
		names := make([]string, 0, len(applied))
		for name := range applied {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Println(name)
		}
		fmt.Printf("%d applied\n", len(names))
		return
	}

	pending, err := pendingMigrations(*dir, applied)
	if err != nil {
		log.Fatalf("scan %s: %v", *dir, err)
	}
	if len(pending) == 0 {
		log.Println("Nothing to apply")
		return
	}

	for _, name := range pending {
		if err := applyMigration(db, *dir, name); err != nil {
			log.Fatalf("apply %s: %v", name, err)
		}
		log.Printf("Applied %s", name)
	}
	log.Printf("Done: %d applied", len(pending))
}

func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	return err
}

func appliedMigrations(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query(`SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// pendingMigrations returns the .sql files in dir not yet applied, in
// lexical order. Ordering is the contract: files are named NNN_*.sql.
func pendingMigrations(dir string, applied map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var pending []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") || applied[name] {
			continue
		}
		pending = append(pending, name)
	}
	sort.Strings(pending)
	return pending, nil
}

func applyMigration(db *sql.DB, dir, name string) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(data)) == "" {
		return fmt.Errorf("migration file is empty")
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(string(data)); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
