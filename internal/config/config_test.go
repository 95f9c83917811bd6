package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.FeeRate.Equal(decimal.RequireFromString("0.005")))
	assert.True(t, cfg.CardSurcharge.Equal(decimal.RequireFromString("2")))
	assert.True(t, cfg.TransferMinAmount.Equal(decimal.NewFromInt(1)))
	assert.True(t, cfg.TransferMaxAmount.Equal(decimal.NewFromInt(100000)))
	assert.Equal(t, 3, cfg.StepMaxAttempts)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "postgres without database url",
			env:  map[string]string{"STORAGE_DRIVER": "postgres", "DATABASE_URL": ""},
		},
		{
			name: "unknown driver",
			env:  map[string]string{"STORAGE_DRIVER": "mongo"},
		},
		{
			name: "zero attempts",
			env:  map[string]string{"STORAGE_DRIVER": "memory", "STEP_MAX_ATTEMPTS": "0"},
		},
		{
			name: "max below min",
			env:  map[string]string{"STORAGE_DRIVER": "memory", "TRANSFER_MIN_AMOUNT": "10", "TRANSFER_MAX_AMOUNT": "5"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "secret")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
		})
	}
}
