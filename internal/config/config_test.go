package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, BackendMemory, cfg.ChallengeStore)
	assert.Equal(t, 5*time.Minute, cfg.ChallengeTTL)
	assert.Equal(t, time.Minute, cfg.ChallengeSweepInterval)
	assert.Equal(t, 200, cfg.ReviewTitleMax)
	assert.Equal(t, 1, cfg.ReviewContentMin)
	assert.Equal(t, 5000, cfg.ReviewContentMax)
	assert.False(t, cfg.KafkaEnabled)
	assert.False(t, cfg.UsesPostgres())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_FromEnv(t *testing.T) {
	setEnvs(t, map[string]string{
		"HTTP_PORT":          "9090",
		"CHALLENGE_STORE":    "redis",
		"CHALLENGE_TTL":      "90s",
		"REVIEW_STORE":       "postgres",
		"CATALOG_SOURCE":     "postgres",
		"KAFKA_ENABLED":      "true",
		"KAFKA_BROKERS":      "k1:9092,k2:9092",
		"REVIEW_CONTENT_MIN": "10",
		"DB_MAX_CONNS":       "7",
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, BackendRedis, cfg.ChallengeStore)
	assert.Equal(t, 90*time.Second, cfg.ChallengeTTL)
	assert.True(t, cfg.UsesPostgres())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 10, cfg.ReviewContentMin)
	assert.Equal(t, int32(7), cfg.Postgres().MaxConns)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		envs map[string]string
		want string
	}{
		{"port", map[string]string{"HTTP_PORT": "70000"}, "invalid HTTP port"},
		{"ttl", map[string]string{"CHALLENGE_TTL": "0s"}, "CHALLENGE_TTL must be positive"},
		{"store", map[string]string{"CHALLENGE_STORE": "etcd"}, `CHALLENGE_STORE must be one of [memory, redis], got "etcd"`},
		{"catalog", map[string]string{"CATALOG_SOURCE": "remote"}, "CATALOG_URL is required"},
		{"aggregates without review log", map[string]string{"AGGREGATE_STORE": "postgres"}, "AGGREGATE_STORE=postgres requires REVIEW_STORE=postgres"},
		{"reviews without catalog", map[string]string{"REVIEW_STORE": "postgres"}, "REVIEW_STORE=postgres requires CATALOG_SOURCE=postgres"},
		{"bounds", map[string]string{"REVIEW_CONTENT_MIN": "50", "REVIEW_CONTENT_MAX": "20"}, "review content bounds"},
		{"sample rate", map[string]string{"OTEL_SAMPLE_RATE": "1.5"}, "OTEL_SAMPLE_RATE"},
		{"production secret", map[string]string{"ENVIRONMENT": "production"}, "CHALLENGE_SECRET must be explicitly set"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setEnvs(t, tc.envs)

			cfg, err := Load()
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_ReportsEveryViolation(t *testing.T) {
	setEnvs(t, map[string]string{
		"HTTP_PORT":     "0",
		"REVIEW_STORE":  "mongo",
		"CHALLENGE_TTL": "-1s",
	})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
	assert.Contains(t, err.Error(), "REVIEW_STORE")
	assert.Contains(t, err.Error(), "CHALLENGE_TTL")
}

func TestLoad_ProductionWithSecret(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":      "production",
		"CHALLENGE_SECRET": "a-real-secret-from-the-vault",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
}

func TestConfig_Tracing(t *testing.T) {
	setEnvs(t, map[string]string{"OTEL_ENABLED": "true", "OTEL_SAMPLE_RATE": "0.25"})

	cfg, err := Load()
	require.NoError(t, err)

	tc := cfg.Tracing("local-business-finder")
	assert.True(t, tc.Enabled)
	assert.Equal(t, 0.25, tc.SampleRate)
	assert.Equal(t, "local-business-finder", tc.ServiceName)
}
