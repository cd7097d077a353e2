package scheduler

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()
	v := viper.New()

	cfg, err := LoadConfig(v)
	require.NoError(t, err)
	require.Equal(t, DefaultMaxConcurrency, cfg.MaxConcurrency)
	require.Equal(t, DefaultQueueCapacity, cfg.QueueCapacity)
	require.Equal(t, "", cfg.Timezone)
	require.Equal(t, "", cfg.NamePrefix)
}

func TestLoadConfig_OverridesFromSettings(t *testing.T) {
	t.Parallel()
	v := viper.New()
	v.Set("scheduler.max-concurrency", 25)
	v.Set("scheduler.queue-capacity", 500)
	v.Set("scheduler.timezone", "UTC")
	v.Set("scheduler.name-prefix", "nightly")

	cfg, err := LoadConfig(v)
	require.NoError(t, err)
	require.Equal(t, 25, cfg.MaxConcurrency)
	require.Equal(t, 500, cfg.QueueCapacity)
	require.Equal(t, "UTC", cfg.Timezone)
	require.Equal(t, "nightly", cfg.NamePrefix)
}

func TestLoadConfig_RejectsNonPositiveLimits(t *testing.T) {
	t.Parallel()
	v := viper.New()
	v.Set("scheduler.max-concurrency", 0)

	_, err := LoadConfig(v)
	require.Error(t, err)
	var se *SchedulerError
	require.ErrorAs(t, err, &se)
}

// Not parallel: SchedulerOptions mutates the package-global DefaultZone.
func TestConfig_SchedulerOptionsAppliesDefaultZone(t *testing.T) {
	prior := DefaultZone
	defer func() { DefaultZone = prior }()

	cfg := Config{MaxConcurrency: 1, QueueCapacity: 1, Timezone: "America/New_York"}
	opts, err := cfg.SchedulerOptions()
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	require.NotEmpty(t, opts)
	require.Equal(t, "America/New_York", DefaultZone.String())
}

func TestConfig_SchedulerOptionsRejectsUnknownZone(t *testing.T) {
	t.Parallel()
	cfg := Config{MaxConcurrency: 1, QueueCapacity: 1, Timezone: "Not/AZone"}
	_, err := cfg.SchedulerOptions()
	require.Error(t, err)
}

func TestNewViper_EnvPrefixAndKeyReplacement(t *testing.T) {
	t.Setenv("CHRONOFLOW_SCHEDULER_MAX_CONCURRENCY", "7")

	v := NewViper()
	v.BindEnv("scheduler.max-concurrency")
	require.Equal(t, "7", v.GetString("scheduler.max-concurrency"))
}
