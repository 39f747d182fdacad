package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"

	"brokerlink/internal/domain/holdings"
	"brokerlink/internal/interfaces/jobs"
)

type syncCmd struct {
	userIDs  string
	all      bool
	workers  int
	timeout  time.Duration
	jobDelay time.Duration
}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "import current brokerage holdings as asset rows" }
func (*syncCmd) Usage() string {
	return `admin sync (-user-id=a,b | -all) [-workers=N] [-timeout=30m]

  Runs the holdings write path for the given users, or for every user with
  an active brokerage connection. Each run appends rows under a new sync run id.

Examples:
  admin sync -user-id=user-1
  admin sync -all -workers=8 -timeout=1h
`
}

func (c *syncCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.userIDs, "user-id", "", "User ID(s) to sync (comma-separated for multiple)")
	f.BoolVar(&c.all, "all", false, "Sync every user with an active connection")
	f.IntVar(&c.workers, "workers", 4, "Number of concurrent workers")
	f.DurationVar(&c.timeout, "timeout", 30*time.Minute, "Timeout for the whole operation")
	f.DurationVar(&c.jobDelay, "delay", 0, "Pause between jobs per worker to stay under vendor rate limits")
}

func (c *syncCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.userIDs == "" && !c.all {
		fmt.Fprintln(os.Stderr, "Error: must specify -user-id or -all")
		return subcommands.ExitUsageError
	}

	e, err := openEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	userIDs := splitIDs(c.userIDs)
	if c.all {
		conns, err := e.secrets.ListActive(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list active connections")
			return subcommands.ExitFailure
		}
		userIDs = nil
		for _, conn := range conns {
			userIDs = append(userIDs, conn.UserID)
		}
		log.Info().Int("users", len(userIDs)).Msg("Found users with active connections")
	}
	if len(userIDs) == 0 {
		log.Info().Msg("No users to process")
		return subcommands.ExitSuccess
	}

	syncer := e.syncService()

	var mu sync.Mutex
	results := make(map[string]*holdings.SyncResult)
	record := func(r *holdings.SyncResult) {
		mu.Lock()
		results[r.UserID] = r
		mu.Unlock()
	}

	pool := jobs.NewWorkerPool(ctx, c.workers, c.jobDelay, 0, len(userIDs))
	pool.Start()

	batch := make([]jobs.Job, 0, len(userIDs))
	for _, id := range userIDs {
		batch = append(batch, jobs.NewHoldingsSyncJob(id, syncer, record))
	}

	start := time.Now()
	pool.SubmitBatch(batch)
	stats := pool.Shutdown(c.timeout)

	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		printResult(results[id])
	}

	log.Info().
		Int64("succeeded", stats.Succeeded).
		Int64("failed", stats.Failed).
		Int64("dropped", stats.Dropped).
		Dur("elapsed", time.Since(start)).
		Msg("Holdings sync completed")

	if stats.Failed > 0 || stats.Dropped > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printResult(result *holdings.SyncResult) {
	fmt.Printf("\n=== User %s ===\n", result.UserID)
	fmt.Printf("  Sync run:         %s\n", result.RunID)
	fmt.Printf("  Accounts found:   %d\n", result.AccountsFound)
	fmt.Printf("  Holdings found:   %d\n", result.HoldingsFound)
	fmt.Printf("  Rows inserted:    %d\n", result.Inserted)

	if len(result.Errors) > 0 {
		fmt.Printf("  Errors:           %d\n", len(result.Errors))
		for i, e := range result.Errors {
			if i >= 5 {
				fmt.Printf("    ... and %d more errors\n", len(result.Errors)-5)
				break
			}
			fmt.Printf("    - %s\n", e)
		}
	}
}
