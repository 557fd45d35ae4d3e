// Copyright 2026 Peter Edge
//
// All rights reserved.

package ldvfuture

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestFlagsYears(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		desc      string
		args      []string
		wantYears int
		wantErr   bool
	}{
		{desc: "unset uses default", args: nil, wantYears: 3},
		{desc: "explicit", args: []string{"--years", "2"}, wantYears: 2},
		{desc: "explicit zero", args: []string{"--years", "0"}, wantErr: true},
		{desc: "negative", args: []string{"--years=-1"}, wantErr: true},
	} {
		flags := newFlags()
		flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.Bind(flagSet)
		require.NoError(t, flagSet.Parse(test.args), test.desc)
		years, err := flags.years(3)
		if test.wantErr {
			require.Error(t, err, test.desc)
			continue
		}
		require.NoError(t, err, test.desc)
		require.Equal(t, test.wantYears, years, test.desc)
	}
}
