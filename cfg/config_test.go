package cfg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("FLIGHT_API_BASE_URL", "http://localhost:5000")
	for _, key := range []string{
		"REDIS_HOST", "MULTIDATE_WINDOW", "MULTIDATE_RPS", "DEFAULT_CURRENCY", "SESSION_TTL_MINUTES",
		"FLIGHT_API_TIMEOUT_SECONDS", "SUGGEST_DEBOUNCE_MS", "SNOWFLAKE_NODE_ID", "OTEL_SERVICE_NAME",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	setRequired(t)

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, 15*time.Second, c.FlightAPIConfig.Timeout)
	assert.Equal(t, time.Hour, c.SessionTTL)
	assert.Equal(t, 6, c.MultiDateConfig.Window)
	assert.Equal(t, 10.0, c.MultiDateConfig.RequestsPerSecond)
	assert.Equal(t, 250*time.Millisecond, c.SuggestDebounce)
	assert.Equal(t, "PKR", c.OfferConfig.DefaultCurrency)
	assert.Equal(t, "30", c.OfferConfig.DefaultBaggageKg)
	assert.Equal(t, "storefront", c.OtelConfig.ServiceName)
	assert.Equal(t, int64(1), c.SnowflakeNodeID)
	assert.False(t, c.RedisConfig.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	setRequired(t)
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("MULTIDATE_WINDOW", "3")
	t.Setenv("MULTIDATE_RPS", "2.5")
	t.Setenv("DEFAULT_CURRENCY", "AED")

	c, err := Load()
	require.NoError(t, err)

	assert.True(t, c.RedisConfig.Enabled())
	assert.Equal(t, "cache.internal:6379", c.RedisConfig.Addr())
	assert.Equal(t, 3, c.MultiDateConfig.Window)
	assert.Equal(t, 2.5, c.MultiDateConfig.RequestsPerSecond)
	assert.Equal(t, "AED", c.OfferConfig.DefaultCurrency)
}

func TestLoad_ReportsEveryProblem(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("FLIGHT_API_BASE_URL", "")
	t.Setenv("SESSION_TTL_MINUTES", "an hour")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorContains(t, err, "missing env: APP_ENV")
	assert.ErrorContains(t, err, "missing env: APP_PORT")
	assert.ErrorContains(t, err, "missing env: FLIGHT_API_BASE_URL")
	assert.ErrorContains(t, err, "conversion failed env: SESSION_TTL_MINUTES")
}
