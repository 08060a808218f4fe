package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Fingerprint:
// - Same config twice yields the same fingerprint (stability, spec.md §8)
// - Different configs yield different fingerprints
// - Server order is load-bearing: reordering servers changes the fingerprint

func sampleConfig() Config {
	return Config{
		Servers: []ServerConfig{
			{Name: "fs", Transport: TransportStdio, Command: "fs-server", Args: []string{"--root", "."}},
			{Name: "remote", Transport: TransportHTTP, URL: "https://example.test/mcp"},
		},
		ConcurrencyLimit: 4,
		RetryMax:         3,
	}
}

func TestFingerprint_Stable(t *testing.T) {
	t.Parallel()

	cfg := sampleConfig()
	f1, err := Fingerprint(cfg)
	require.NoError(t, err)
	f2, err := Fingerprint(cfg)
	require.NoError(t, err)

	assert.Equal(t, f1, f2)
}

func TestFingerprint_DiffersOnContentChange(t *testing.T) {
	t.Parallel()

	cfg1 := sampleConfig()
	cfg2 := sampleConfig()
	cfg2.Servers[0].Command = "fs-server-v2"

	f1, err := Fingerprint(cfg1)
	require.NoError(t, err)
	f2, err := Fingerprint(cfg2)
	require.NoError(t, err)

	assert.NotEqual(t, f1, f2)
}

func TestFingerprint_DiffersOnServerOrder(t *testing.T) {
	t.Parallel()

	cfg1 := sampleConfig()
	cfg2 := sampleConfig()
	cfg2.Servers[0], cfg2.Servers[1] = cfg2.Servers[1], cfg2.Servers[0]

	f1, err := Fingerprint(cfg1)
	require.NoError(t, err)
	f2, err := Fingerprint(cfg2)
	require.NoError(t, err)

	assert.NotEqual(t, f1, f2)
}
