// Copyright 2026 Peter Edge
//
// All rights reserved.

package main

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ldvctl/cmd/ldvctl/internal/command/config"
	"github.com/bufdev/ldvctl/cmd/ldvctl/internal/command/ldv"
	"github.com/bufdev/ldvctl/cmd/ldvctl/internal/command/ledger"
	"github.com/bufdev/ldvctl/cmd/ldvctl/internal/command/tax"
)

func main() {
	appcmd.Main(context.Background(), newRootCommand("ldvctl"))
}

// newRootCommand creates the root ldvctl command with all sub-commands.
func newRootCommand(name string) *appcmd.Command {
	builder := appext.NewBuilder(name)
	return &appcmd.Command{
		Use:                 name,
		Short:               "Report Russian capital gains and long-duration holding (LDV) exemptions from a ledger",
		BindPersistentFlags: builder.BindRoot,
		SubCommands: []*appcmd.Command{
			config.NewCommand("config", builder),
			ledger.NewCommand("ledger", builder),
			tax.NewCommand("tax", builder),
			ldv.NewCommand("ldv", builder),
		},
	}
}
