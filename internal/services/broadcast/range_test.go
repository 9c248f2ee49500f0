// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package broadcast

import (
	"testing"

	"github.com/stretchr/testify/require"

	"toolsaf.dev/toolsaf/internal/address"
)

func TestAddressRangeWildcard(t *testing.T) {
	r, err := ParseRange("239.255.*.*")
	require.NoError(t, err)

	in, err := address.NewIPAddr("239.255.1.2")
	require.NoError(t, err)
	require.True(t, r.IsMatch(in))

	out, err := address.NewIPAddr("239.254.1.2")
	require.NoError(t, err)
	require.False(t, r.IsMatch(out))
}

func TestAddressRangeBadSpec(t *testing.T) {
	_, err := ParseRange("239.255.1")
	require.Error(t, err)
	_, err = ParseRange("239.255.1.999")
	require.Error(t, err)
}

func TestMulticastTargetFixed(t *testing.T) {
	a, err := address.NewIPAddr("224.0.0.251")
	require.NoError(t, err)
	target := NewFixedTarget(a)
	require.True(t, target.IsMatch(a))

	b, err := address.NewIPAddr("224.0.0.252")
	require.NoError(t, err)
	require.False(t, target.IsMatch(b))
}

func TestMulticastTargetRange(t *testing.T) {
	r, err := ParseRange("224.0.0.*")
	require.NoError(t, err)
	target := NewRangeTarget(r)

	a, err := address.NewIPAddr("224.0.0.251")
	require.NoError(t, err)
	require.True(t, target.IsMatch(a))
}
