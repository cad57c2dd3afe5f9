package app

import (
	"testing"
	"time"

	"token-vending-service/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNew_RejectsTimeoutLongerThanStaleClaim(t *testing.T) {
	cfg := &config.Config{
		DatabaseURL: "sqlite::memory:",
		Vending:     config.Vending{Timeout: 5 * time.Minute, StaleClaim: 2 * time.Minute},
	}

	a, err := New(cfg, zaptest.NewLogger(t))

	require.Error(t, err)
	assert.Nil(t, a)
	assert.Contains(t, err.Error(), "VENDING_TIMEOUT")
}

func TestNew_WiresServices(t *testing.T) {
	cfg := &config.Config{
		DatabaseURL: "sqlite::memory:",
		Vending:     config.Vending{Timeout: 30 * time.Second, StaleClaim: 2 * time.Minute},
	}

	a, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	assert.NotNil(t, a.Services.Notification)
	assert.NotNil(t, a.Services.Settlement)
	assert.Nil(t, a.Redis)
}
