// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ldv implements the "ldv" command group.
package ldv

import (
	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ldvctl/cmd/ldvctl/internal/command/ldv/ldvfuture"
)

// NewCommand returns a new ldv command group.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	return &appcmd.Command{
		Use:   name,
		Short: "Long-duration holding (LDV) projections",
		SubCommands: []*appcmd.Command{
			ldvfuture.NewCommand("future", builder),
		},
	}
}
