package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry(nil)
	names := r.Names()
	assert.ElementsMatch(t, []string{
		"ema_crossover", "rsi_reversion", "composite_score",
		"macd_momentum", "bollinger_breakout", "multi_factor",
	}, names)

	for _, name := range names {
		s, err := r.Get(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
		assert.NotEmpty(t, s.Description())
	}
}
