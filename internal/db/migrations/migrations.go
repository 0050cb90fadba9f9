// Package migrations embeds the goose SQL migrations for every supported driver
// and applies them.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// goose keeps its dialect and base FS in package globals.
var gooseMu sync.Mutex

// Dialect returns the goose dialect name for a configured driver.
func Dialect(driver string) (string, error) {
	switch driver {
	case "postgres":
		return "postgres", nil
	case "sqlite":
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("in internal/db/migrations/migrations.go/Dialect(): unsupported driver %q", driver)
	}
}

// Up applies all pending migrations for the driver.
func Up(db *sql.DB, driver string) error {
	return run(db, driver, goose.Up)
}

// Down rolls back the most recent migration.
func Down(db *sql.DB, driver string) error {
	return run(db, driver, goose.Down)
}

// Reset rolls back every applied migration.
func Reset(db *sql.DB, driver string) error {
	return run(db, driver, goose.Reset)
}

// Status logs the state of every migration.
func Status(db *sql.DB, driver string) error {
	return run(db, driver, goose.Status)
}

func run(
	db *sql.DB,
	driver string,
	command func(db *sql.DB, dir string, opts ...goose.OptionsFunc) error,
) error {
	dialect, err := Dialect(driver)
	if err != nil {
		return err
	}

	sub, err := fs.Sub(files, driver)
	if err != nil {
		return fmt.Errorf("in internal/db/migrations/migrations.go/run(): error while `fs.Sub()` calling: %w", err)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("in internal/db/migrations/migrations.go/run(): error while `goose.SetDialect()` calling: %w", err)
	}

	goose.SetBaseFS(sub)
	defer goose.SetBaseFS(nil)

	if err := command(db, "."); err != nil {
		return fmt.Errorf("in internal/db/migrations/migrations.go/run(): error while running goose command: %w", err)
	}

	return nil
}
