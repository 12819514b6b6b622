package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	require.Equal(t, "2026-08-28", parseDate("2026-08-28"))
	require.Equal(t, "2026-08-28", parseDate("  2026-08-28  "))
	require.Equal(t, "", parseDate("2026-8-28"))
	require.Equal(t, "", parseDate("2026-08-28T00:00:00Z"))
	require.Equal(t, "", parseDate("yesterday"))
	require.Equal(t, "", parseDate(""))
}

func TestClampInt(t *testing.T) {
	require.Equal(t, 20, clampInt("", 20, 100))
	require.Equal(t, 20, clampInt("abc", 20, 100))
	require.Equal(t, 20, clampInt("-5", 20, 100))
	require.Equal(t, 20, clampInt("0", 20, 100))
	require.Equal(t, 42, clampInt("42", 20, 100))
	require.Equal(t, 100, clampInt("4000", 20, 100))
}
