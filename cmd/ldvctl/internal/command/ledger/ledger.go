// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ledger implements the "ledger" command group.
package ledger

import (
	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ldvctl/cmd/ldvctl/internal/command/ledger/ledgerexport"
	"github.com/bufdev/ldvctl/cmd/ldvctl/internal/command/ledger/ledgerimport"
)

// NewCommand returns a new ledger command group with import and export sub-commands.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	return &appcmd.Command{
		Use:   name,
		Short: "Manage the ledger",
		SubCommands: []*appcmd.Command{
			ledgerimport.NewCommand("import", builder),
			ledgerexport.NewCommand("export", builder),
		},
	}
}
