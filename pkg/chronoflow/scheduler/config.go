package scheduler

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the environment-sourced configuration bundle: the
// concurrency cap, queue capacity, default zone, and name-prefix a
// Registrar and Scheduler are built from.
type Config struct {
	MaxConcurrency int    `mapstructure:"max-concurrency" validate:"min=1"`
	QueueCapacity  int    `mapstructure:"queue-capacity" validate:"min=1"`
	Timezone       string `mapstructure:"timezone"`
	NamePrefix     string `mapstructure:"name-prefix"`
}

var configValidator = validator.New()

// LoadConfig reads the "scheduler.*" keys from v (already populated from
// environment, flags, or a config file by the caller) and returns a
// validated Config, applying built-in defaults for anything unset.
func LoadConfig(v *viper.Viper) (Config, error) {
	sub := viper.New()
	for _, key := range []string{"max-concurrency", "queue-capacity", "timezone", "name-prefix"} {
		if v.IsSet("scheduler." + key) {
			sub.Set(key, v.Get("scheduler."+key))
		}
	}
	sub.SetDefault("max-concurrency", DefaultMaxConcurrency)
	sub.SetDefault("queue-capacity", DefaultQueueCapacity)
	sub.SetDefault("timezone", "")
	sub.SetDefault("name-prefix", "")

	var cfg Config
	if err := sub.Unmarshal(&cfg); err != nil {
		return Config{}, &SchedulerError{Op: "load-config", Reason: "unable to decode scheduler configuration", Err: err}
	}

	if err := configValidator.Struct(cfg); err != nil {
		return Config{}, &SchedulerError{Op: "load-config", Reason: "invalid scheduler configuration", Err: err}
	}

	return cfg, nil
}

// NewViper builds a viper instance wired to read "CHRONOFLOW_"-prefixed
// environment variables (e.g. CHRONOFLOW_SCHEDULER_MAX_CONCURRENCY) with
// "." and "-" folded to "_", the convention every chronoflow deployment
// follows.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("chronoflow")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// SchedulerOptions converts a Config into the Option values NewScheduler
// expects, also setting DefaultZone as a side effect when Timezone is
// set, so triggers built after LoadConfig inherit it without threading
// the zone through every call site.
func (c Config) SchedulerOptions() ([]Option, error) {
	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return nil, &SchedulerError{Op: "load-config", Reason: "unknown timezone " + strQuote(c.Timezone), Err: err}
		}
		DefaultZone = loc
	}
	return []Option{
		WithMaxConcurrency(c.MaxConcurrency),
		WithQueueCapacity(c.QueueCapacity),
	}, nil
}
