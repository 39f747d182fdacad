package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"

	"brokerlink/internal/infrastructure/postgres"
)

type migrateCmd struct {
	steps int
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply, roll back, or inspect database migrations" }
func (*migrateCmd) Usage() string {
	return `admin migrate [-steps N] [up | down | version]

  Applies every pending migration (up, the default), rolls back N
  migrations (down), or prints the current schema version.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.steps, "steps", 1, "Number of migrations to roll back with down.")
}

func (c *migrateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	action := "up"
	if f.NArg() > 0 {
		action = f.Arg(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	db, err := openDB(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	switch action {
	case "up":
		err = postgres.Migrate(db.DB)
	case "down":
		if c.steps < 1 {
			fmt.Fprintln(os.Stderr, "-steps must be at least 1")
			return subcommands.ExitUsageError
		}
		err = postgres.MigrateDown(db.DB, c.steps)
	case "version":
		var version uint
		var dirty bool
		version, dirty, err = postgres.MigrationVersion(db.DB)
		if err == nil {
			fmt.Printf("version %d (dirty: %t)\n", version, dirty)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown migrate action %q\n", action)
		return subcommands.ExitUsageError
	}

	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Migration failed")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
