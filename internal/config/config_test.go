package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOOKING_APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, NotifierKafka, cfg.NotifierDriver)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Booking.Location.String())
	assert.Equal(t, "VND", cfg.Booking.Currency)
	assert.Equal(t, []string{"01-01-2024", "21-01-2024"}, cfg.Booking.Holidays)
	assert.True(t, cfg.Booking.ReleaseOnCancel)
	assert.Equal(t, 24*time.Hour, cfg.Sweeper.TTL)
	assert.Equal(t, time.Hour, cfg.Sweeper.Interval)
	assert.False(t, cfg.Sweeper.IncludeConfirmed)
	assert.Zero(t, cfg.Sweeper.PurgeAfter)
	assert.Equal(t, 500, cfg.Sweeper.BatchSize)
	assert.Equal(t, "booking", cfg.DBConfig.DBName)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BOOKING_APP_ENV", "development")
	t.Setenv("BOOKING_STORE_DRIVER", "Memory")
	t.Setenv("BOOKING_NOTIFIER_DRIVER", "log")
	t.Setenv("BOOKING_TIMEZONE", "UTC")
	t.Setenv("BOOKING_CURRENCY", "usd")
	t.Setenv("BOOKING_HOLIDAYS", "25-12-2024, 31-12-2024")
	t.Setenv("BOOKING_RELEASE_ON_CANCEL", "false")
	t.Setenv("BOOKING_TTL", "2h")
	t.Setenv("BOOKING_SWEEP_INTERVAL", "0s")
	t.Setenv("BOOKING_SWEEP_INCLUDE_CONFIRMED", "true")
	t.Setenv("BOOKING_PURGE_AFTER", "720h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, NotifierLog, cfg.NotifierDriver)
	assert.Equal(t, time.UTC, cfg.Booking.Location)
	assert.Equal(t, "USD", cfg.Booking.Currency)
	assert.Equal(t, []string{"25-12-2024", "31-12-2024"}, cfg.Booking.Holidays)
	assert.False(t, cfg.Booking.ReleaseOnCancel)
	assert.Equal(t, 2*time.Hour, cfg.Sweeper.TTL)
	assert.Zero(t, cfg.Sweeper.Interval)
	assert.True(t, cfg.Sweeper.IncludeConfirmed)
	assert.Equal(t, 720*time.Hour, cfg.Sweeper.PurgeAfter)
}

func TestLoad_RejectsBadSettings(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "store driver", key: "BOOKING_STORE_DRIVER", value: "sqlite"},
		{name: "notifier driver", key: "BOOKING_NOTIFIER_DRIVER", value: "sms"},
		{name: "timezone", key: "BOOKING_TIMEZONE", value: "Mars/Olympus"},
		{name: "holiday format", key: "BOOKING_HOLIDAYS", value: "2024-01-01"},
		{name: "ttl", key: "BOOKING_TTL", value: "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BOOKING_APP_ENV", "development")
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
