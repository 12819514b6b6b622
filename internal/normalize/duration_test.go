package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vidpipe/internal/normalize"
)

func TestHumanDuration(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"PT15M33S", "15m 33s"},
		{"PT1H2M3S", "1h 2m 3s"},
		{"PT1H", "1h"},
		{"PT45S", "45s"},
		{"PT2M", "2m"},
		{"P1DT2H", "26h"},
		{"PT0S", "0s"},
		{"1h 2m 3s", "1h 2m 3s"}, // already human, untouched
		{"  PT3M  ", "3m"},
		{"", ""},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, normalize.HumanDuration(tc.raw), "input %q", tc.raw)
	}
}
