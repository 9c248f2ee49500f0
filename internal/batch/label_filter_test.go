// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package batch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLabelFilterEmptyIncludesEverything(t *testing.T) {
	f, err := NewLabelFilter("")
	require.NoError(t, err)
	require.True(t, f.Filter("anything"))
}

func TestLabelFilterExplicitInclude(t *testing.T) {
	f, err := NewLabelFilter("nmap,pcap")
	require.NoError(t, err)
	require.True(t, f.Filter("nmap"))
	require.True(t, f.Filter("pcap"))
	require.False(t, f.Filter("other"))
}

func TestLabelFilterExclude(t *testing.T) {
	f, err := NewLabelFilter("^nmap")
	require.NoError(t, err)
	require.False(t, f.Filter("nmap"))
	require.True(t, f.Filter("other"))
}

func TestLabelFilterConflict(t *testing.T) {
	_, err := NewLabelFilter("nmap,^nmap")
	require.Error(t, err)
}
