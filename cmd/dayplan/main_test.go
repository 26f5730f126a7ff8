package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"serve", "notify", "expand"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestExpandRejectsBadDates(t *testing.T) {
	expandStart, expandEnd = "2026-13-01", "2026-01-31"
	t.Cleanup(func() { expandStart, expandEnd = "", "" })
	assert.Error(t, runExpand(expandCmd, nil))
}

func TestExpandRejectsOversizedWindow(t *testing.T) {
	expandStart, expandEnd = "2026-01-01", "2027-06-30"
	t.Cleanup(func() { expandStart, expandEnd = "", "" })
	assert.ErrorContains(t, runExpand(expandCmd, nil), "exceeds 366")
}

func TestExpandRejectsInvertedWindow(t *testing.T) {
	expandStart, expandEnd = "2026-02-01", "2026-01-01"
	t.Cleanup(func() { expandStart, expandEnd = "", "" })
	assert.ErrorContains(t, runExpand(expandCmd, nil), "before start")
}

func TestRequiredFlags(t *testing.T) {
	for _, tc := range []struct {
		cmd   string
		flags []string
	}{
		{"notify", []string{"user"}},
		{"expand", []string{"user", "start", "end"}},
	} {
		cmd, _, err := rootCmd.Find([]string{tc.cmd})
		require.NoError(t, err)
		for _, name := range tc.flags {
			f := cmd.Flags().Lookup(name)
			require.NotNil(t, f, "%s --%s", tc.cmd, name)
			assert.Equal(t, []string{"true"}, f.Annotations[cobra.BashCompOneRequiredFlag])
		}
	}
}
