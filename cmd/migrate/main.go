// Command migrate applies or rolls back database migrations.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/bpmflow/bpmflow/pkg/common/config"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	down := flag.Bool("down", false, "roll back one migration instead of applying all")
	flag.Parse()

	if err := run(*configPath, *down); err != nil && err != migrate.ErrNoChange {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, down bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	m, err := migrate.New("file://"+cfg.Database.MigrationsPath, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer m.Close()

	if down {
		return m.Steps(-1)
	}
	return m.Up()
}
