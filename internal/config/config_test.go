package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "DATABASE_URL",
		"WRAPPER_URL", "WRAPPER_TIMEOUT_SECS", "DETECTOR_URL", "DETECTOR_INTERVAL_SECS",
		"RPC_URL", "CHAIN_ID", "PRIVATE_KEY", "THREAT_CONTRACT",
		"THREAT_RECORDS_PATH", "NOTARY_DEDUP", "RATE_LIMIT_RPM",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultWrapperURL, cfg.WrapperURL)
	assert.Equal(t, DefaultDetectorURL, cfg.DetectorURL)
	assert.Equal(t, 10*time.Second, cfg.WrapperTimeout)
	assert.Equal(t, 60*time.Second, cfg.DetectorInterval)
	assert.Equal(t, DefaultThreatRecordsPath, cfg.ThreatRecordsPath)
	assert.False(t, cfg.NotaryDedup)
	assert.False(t, cfg.NotaryEnabled())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("WRAPPER_URL", "http://wrappers:9000/noisy")
	t.Setenv("WRAPPER_TIMEOUT_SECS", "5")
	t.Setenv("DETECTOR_INTERVAL_SECS", "30")
	t.Setenv("NOTARY_DEDUP", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://wrappers:9000/noisy", cfg.WrapperURL)
	assert.Equal(t, 5*time.Second, cfg.WrapperTimeout)
	assert.Equal(t, 30*time.Second, cfg.DetectorInterval)
	assert.True(t, cfg.NotaryDedup)
}

func TestValidatePrivateKey(t *testing.T) {
	cfg := &Config{
		WrapperURL:       DefaultWrapperURL,
		DetectorURL:      DefaultDetectorURL,
		WrapperTimeout:   DefaultWrapperTimeout,
		DetectorInterval: DefaultDetectorInterval,
		RPCURL:           DefaultRPCURL,
		PrivateKey:       "too-short",
	}
	assert.Error(t, cfg.Validate())

	key := "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

	cfg.PrivateKey = key
	// Missing contract address should fail
	assert.Error(t, cfg.Validate())

	cfg.ThreatContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.NotaryEnabled())

	// 0x prefix accepted
	cfg.PrivateKey = "0x" + key
	assert.NoError(t, cfg.Validate())
}

func TestValidateRequiredURLs(t *testing.T) {
	cfg := &Config{
		DetectorURL:      DefaultDetectorURL,
		WrapperTimeout:   DefaultWrapperTimeout,
		DetectorInterval: DefaultDetectorInterval,
	}
	assert.Error(t, cfg.Validate())

	cfg.WrapperURL = DefaultWrapperURL
	cfg.DetectorURL = ""
	assert.Error(t, cfg.Validate())
}
