package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/google/subcommands"

	"brokerlink/internal/domain/connection"
)

type statusCmd struct {
	userIDs string
}

func (*statusCmd) Name() string     { return "status" }
func (*statusCmd) Synopsis() string { return "show the stored brokerage connection of users" }
func (*statusCmd) Usage() string {
	return `admin status -user-id=a,b

  Prints the connection row and its metadata. Secrets are never printed.
`
}

func (c *statusCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.userIDs, "user-id", "", "User ID(s) to inspect (comma-separated for multiple)")
}

func (c *statusCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ids := splitIDs(c.userIDs)
	if len(ids) == 0 {
		fmt.Fprintln(os.Stderr, "Error: must specify -user-id")
		return subcommands.ExitUsageError
	}

	e, err := openEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	status := subcommands.ExitSuccess
	for _, id := range ids {
		conn, err := e.secrets.ForUser(ctx, id)
		if errors.Is(err, connection.ErrConnectionNotFound) {
			fmt.Printf("\n=== User %s ===\n  not registered\n", id)
			continue
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "user %s: %v\n", id, err)
			status = subcommands.ExitFailure
			continue
		}
		printConnection(conn)
	}
	return status
}

func printConnection(conn *connection.BrokerConnection) {
	fmt.Printf("\n=== User %s ===\n", conn.UserID)
	fmt.Printf("  Connection:   %s\n", conn.ID)
	fmt.Printf("  Provider:     %s\n", conn.BrokerID)
	fmt.Printf("  Active:       %t\n", conn.IsActive)
	fmt.Printf("  Has secret:   %t\n", conn.UserSecret != "")
	fmt.Printf("  Created:      %s\n", conn.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Updated:      %s\n", conn.UpdatedAt.Format("2006-01-02 15:04:05"))

	keys := make([]string, 0, len(conn.Metadata))
	for k := range conn.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("    %s: %v\n", k, conn.Metadata[k])
	}
}
