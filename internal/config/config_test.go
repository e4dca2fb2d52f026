package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"example.com/fieldactivity/internal/domain"
)

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Equal(t, DriverPostgres, cfg.StoreDriver)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 2*time.Second, cfg.OutboxPollInterval)
	require.Equal(t, "field-activity-audit", cfg.ConsumerGroupID)
	require.Equal(t, domain.DefaultMaxAttachmentSize, cfg.MaxAttachmentSize)
	require.Equal(t, time.Monday, cfg.WeekStart)
	require.Equal(t, time.Local, cfg.Location)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("OUTBOX_POLL_INTERVAL", "500ms")
	t.Setenv("TIMEZONE", "Asia/Jakarta")
	t.Setenv("WEEK_START", "Sunday")
	t.Setenv("MAX_ATTACHMENT_SIZE", "2048")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)
	require.Equal(t, DriverMemory, cfg.StoreDriver)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 500*time.Millisecond, cfg.OutboxPollInterval)
	require.Equal(t, "Asia/Jakarta", cfg.Location.String())
	require.Equal(t, time.Sunday, cfg.Calendar().WeekStart)
	require.Equal(t, int64(2048), cfg.MaxAttachmentSize)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("http_address: \":9090\"\nweek_start: tuesday\n"), 0o600))
	t.Setenv("HTTP_ADDRESS", ":7070")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.HTTPAddress, "environment wins over the file")
	require.Equal(t, time.Tuesday, cfg.WeekStart)
}

func TestInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"week start": {"WEEK_START", "someday"},
		"timezone":   {"TIMEZONE", "Mars/Olympus"},
		"driver":     {"STORE_DRIVER", "sqlite"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(kv[0], kv[1])
			_, err := FromViper(viper.New())
			require.Error(t, err)
		})
	}
}
