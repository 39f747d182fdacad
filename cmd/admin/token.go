package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"brokerlink/internal/shared/auth"
)

type tokenCmd struct {
	userID string
	email  string
}

func (*tokenCmd) Name() string     { return "token" }
func (*tokenCmd) Synopsis() string { return "mint a session token for calling the API as a user" }
func (*tokenCmd) Usage() string {
	return `admin token -user-id=ID [-email=addr]

  Prints a signed session token for the user, valid for 24 hours. Use it as
  "Authorization: Bearer <token>".
`
}

func (c *tokenCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.userID, "user-id", "", "User ID to issue the token for")
	f.StringVar(&c.email, "email", "", "Optional email claim")
}

func (c *tokenCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.userID == "" {
		fmt.Fprintln(os.Stderr, "Error: must specify -user-id")
		return subcommands.ExitUsageError
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	token, err := auth.NewJWT(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience).Generate(c.userID, c.email)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Println(token)
	return subcommands.ExitSuccess
}
