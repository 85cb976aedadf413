package solana

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectRandomEndpoint(t *testing.T) {
	endpoints := []string{
		"https://api.mainnet-beta.solana.com",
		"https://mainnet.helius-rpc.com/?api-key=test",
		"https://solana-rpc.publicnode.com",
	}

	t.Run("picks one of the configured endpoints", func(t *testing.T) {
		selected, err := SelectRandomEndpoint(endpoints)
		require.NoError(t, err)
		assert.Contains(t, endpoints, selected)
	})

	t.Run("single endpoint", func(t *testing.T) {
		selected, err := SelectRandomEndpoint(endpoints[:1])
		require.NoError(t, err)
		assert.Equal(t, endpoints[0], selected)
	})

	t.Run("empty and nil slices error", func(t *testing.T) {
		_, err := SelectRandomEndpoint([]string{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no RPC endpoints configured")

		_, err = SelectRandomEndpoint(nil)
		require.Error(t, err)
	})

	t.Run("spreads load across endpoints", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 50; i++ {
			selected, err := SelectRandomEndpoint(endpoints)
			require.NoError(t, err)
			seen[selected] = true
		}
		// 50 draws from 3 endpoints lands on at least 2 of them.
		assert.GreaterOrEqual(t, len(seen), 2)
	})
}

func TestNewRPCClient(t *testing.T) {
	client := NewRPCClient("https://api.mainnet-beta.solana.com")
	require.NotNil(t, client)
}
