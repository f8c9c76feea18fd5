package timezone

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	loc, ok := Resolve("America/Chicago")
	require.True(t, ok)
	require.Equal(t, "America/Chicago", loc.String())

	loc, ok = Resolve("Not/AZone")
	require.False(t, ok)
	require.Equal(t, Default, loc)

	loc, ok = Resolve("")
	require.False(t, ok)
	require.Equal(t, Default, loc)
}
