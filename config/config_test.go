package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("RPC_URL", "http://127.0.0.1:8545")
	t.Setenv("PRIVATE_KEY", "0xabc")
	t.Setenv("CONTRACT_ADDRESS", "0x000000000000000000000000000000000000dEaD")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "8787", cfg.App.Port)
	require.Equal(t, 5*time.Second, cfg.Drain.Interval)
	require.Equal(t, 60*time.Second, cfg.Ledger.Timeout)
	require.Equal(t, time.Second, cfg.Ledger.ReceiptPollInterval)
	require.Zero(t, cfg.Ledger.ChainID)
	require.Equal(t, JournalDriverNone, cfg.Journal.Driver)
	require.False(t, cfg.Auth.AuthEnabled())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_PORT", "9000")
	t.Setenv("CHAIN_ID", "11155111")
	t.Setenv("DRAIN_INTERVAL", "250ms")
	t.Setenv("LEDGER_TIMEOUT", "2m")
	t.Setenv("JOURNAL_DRIVER", "Redis")
	t.Setenv("AUTH_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "9000", cfg.App.Port)
	require.EqualValues(t, 11155111, cfg.Ledger.ChainID)
	require.Equal(t, 250*time.Millisecond, cfg.Drain.Interval)
	require.Equal(t, 2*time.Minute, cfg.Ledger.Timeout)
	require.Equal(t, JournalDriverRedis, cfg.Journal.Driver)
	require.True(t, cfg.Auth.AuthEnabled())
}

func TestLoadRejectsMalformedChainID(t *testing.T) {
	setRequired(t)
	t.Setenv("CHAIN_ID", "mainnet")

	_, err := Load()
	require.ErrorContains(t, err, "CHAIN_ID")
}

func TestValidate(t *testing.T) {
	t.Run("missing ledger parameters", func(t *testing.T) {
		t.Setenv("RPC_URL", "")
		t.Setenv("PRIVATE_KEY", "")
		t.Setenv("CONTRACT_ADDRESS", "")

		cfg, err := Load()
		require.NoError(t, err)
		require.EqualError(t, cfg.Validate(), "missing RPC_URL, PRIVATE_KEY, CONTRACT_ADDRESS in environment")
	})

	t.Run("non positive interval", func(t *testing.T) {
		setRequired(t)
		cfg, err := Load()
		require.NoError(t, err)

		cfg.Drain.Interval = 0
		require.Error(t, cfg.Validate())
	})

	t.Run("unknown journal driver", func(t *testing.T) {
		setRequired(t)
		t.Setenv("JOURNAL_DRIVER", "kafka")

		cfg, err := Load()
		require.NoError(t, err)
		require.ErrorContains(t, cfg.Validate(), "kafka")
	})
}
