package main

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	_ "github.com/lib/pq"
)

// Migration represents a single migration file
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration represents a migration that has already been applied
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

var (
	databaseURL   = flag.String("db", os.Getenv("DATABASE_URL"), "Postgres connection string (defaults to DATABASE_URL)")
	appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	migrationsDir = flag.String("migrations", "migrations/postgres", "Path to migrations directory")
)

func main() {
	flag.Parse()

	ctx := context.Background()

	if *databaseURL == "" {
		log.Fatal("Error: -db flag or DATABASE_URL is required.")
	}

	db, err := sql.Open("postgres", *databaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Connected to Postgres")

	// Ensure schema_migrations table exists
	if err := ensureSchemaMigrationsTable(ctx, db); err != nil {
		log.Fatalf("Failed to ensure schema_migrations table: %v", err)
	}

	// Read migration files
	dir, err := resolveMigrationsDir(*migrationsDir)
	if err != nil {
		log.Fatalf("Failed to locate migrations: %v", err)
	}

	migrations, err := readMigrations(dir)
	if err != nil {
		log.Fatalf("Failed to read migrations: %v", err)
	}

	log.Printf("Found %d migration files", len(migrations))

	// Get applied migrations
	appliedMigrations, err := getAppliedMigrations(ctx, db)
	if err != nil {
		log.Fatalf("Failed to get applied migrations: %v", err)
	}

	log.Printf("Found %d already applied migrations", len(appliedMigrations))

	// Build map of applied versions with their recorded checksums
	appliedChecksums := make(map[int]string)
	for _, am := range appliedMigrations {
		appliedChecksums[am.Version] = am.Checksum
	}

	// Apply pending migrations
	appliedCount := 0
	for _, migration := range migrations {
		if checksum, ok := appliedChecksums[migration.Version]; ok {
			if checksum != "" && checksum != migration.Checksum {
				log.Printf("  [WARN] %04d_%s file changed after it was applied", migration.Version, migration.Name)
			}
			log.Printf("  [SKIP] %04d_%s (already applied)", migration.Version, migration.Name)
			continue
		}

		log.Printf("  [RUN]  %04d_%s", migration.Version, migration.Name)

		if err := applyMigration(ctx, db, migration); err != nil {
			log.Fatalf("Failed to apply migration %04d_%s: %v", migration.Version, migration.Name, err)
		}

		log.Printf("  [OK]   %04d_%s", migration.Version, migration.Name)
		appliedCount++
	}

	if appliedCount == 0 {
		log.Println("No new migrations to apply. Database is up to date.")
	} else {
		log.Printf("Successfully applied %d migration(s)", appliedCount)
	}
}

// ensureSchemaMigrationsTable creates the schema_migrations table if it doesn't exist
func ensureSchemaMigrationsTable(ctx context.Context, db *sql.DB) error {
	const query = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			name        TEXT NOT NULL,
			applied_at  TIMESTAMPTZ NOT NULL,
			checksum    TEXT,
			applied_by  TEXT
		)
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("creating table: %w", err)
	}

	return nil
}

// resolveMigrationsDir finds the migrations directory relative to the
// current directory, falling back to the repository root in case the tool
// runs from cmd/migrate.
func resolveMigrationsDir(dir string) (string, error) {
	if _, err := os.Stat(dir); err == nil {
		return dir, nil
	}

	fallback := filepath.Join("..", "..", dir)
	if _, err := os.Stat(fallback); err == nil {
		return fallback, nil
	}

	return "", fmt.Errorf("migrations directory not found: %s", dir)
}

// readMigrations reads all migration files from the migrations directory
func readMigrations(dir string) ([]Migration, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	// Pattern to match migration files: 0001_name.sql
	pattern := regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

	var migrations []Migration
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		matches := pattern.FindStringSubmatch(file.Name())
		if matches == nil {
			log.Printf("Skipping file with invalid format: %s", file.Name())
			continue
		}

		version, err := strconv.Atoi(matches[1])
		if err != nil {
			log.Printf("Skipping file with invalid version: %s", file.Name())
			continue
		}

		name := matches[2]

		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", file.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			Filename: file.Name(),
			SQL:      string(content),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	// Sort by version
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// getAppliedMigrations retrieves the list of already applied migrations
func getAppliedMigrations(ctx context.Context, db *sql.DB) ([]AppliedMigration, error) {
	const query = `
		SELECT version, name, applied_at, checksum, applied_by
		FROM schema_migrations
		ORDER BY version ASC
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var am AppliedMigration
		var checksum, by sql.NullString
		if err := rows.Scan(&am.Version, &am.Name, &am.AppliedAt, &checksum, &by); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		am.Checksum = checksum.String
		am.AppliedBy = by.String
		applied = append(applied, am)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating results: %w", err)
	}

	return applied, nil
}

// applyMigration executes a single migration and records it in
// schema_migrations inside one transaction, so a failed migration leaves
// no record behind.
func applyMigration(ctx context.Context, db *sql.DB, migration Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		return fmt.Errorf("executing SQL: %w", err)
	}

	const record = `
		INSERT INTO schema_migrations (version, name, applied_at, checksum, applied_by)
		VALUES ($1, $2, NOW(), $3, $4)
	`
	if _, err := tx.ExecContext(ctx, record, migration.Version, migration.Name, migration.Checksum, *appliedBy); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}

	return nil
}
