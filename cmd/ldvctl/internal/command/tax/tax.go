// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package tax implements the "tax" command group.
package tax

import (
	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ldvctl/cmd/ldvctl/internal/command/tax/taxcurrent"
	"github.com/bufdev/ldvctl/cmd/ldvctl/internal/command/tax/taxreport"
)

// NewCommand returns a new tax command group.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	return &appcmd.Command{
		Use:   name,
		Short: "Capital gains tax reports",
		SubCommands: []*appcmd.Command{
			taxreport.NewCommand("report", builder),
			taxcurrent.NewCommand("current", builder),
		},
	}
}
