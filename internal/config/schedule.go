package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// ScheduleConfig drives the cron-triggered jobs and the lock they share.
type ScheduleConfig struct {
	OverdueCron       string        `mapstructure:"overdueCron"`
	ConsolidationCron string        `mapstructure:"consolidationCron"`
	LockTimeout       time.Duration `mapstructure:"lockTimeout"`
	PaymentTermsDays  int           `mapstructure:"paymentTermsDays"`
}

func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		OverdueCron:       "0 * * * *",
		ConsolidationCron: "30 2 * * *",
		LockTimeout:       30 * time.Second,
		PaymentTermsDays:  30,
	}
}

// ScheduleConfigHolder serves the current schedule configuration and hot
// reloads it when the backing file changes.
type ScheduleConfigHolder struct {
	current atomic.Value // holds ScheduleConfig
}

func NewScheduleConfigHolder() (*ScheduleConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("schedule")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/overflight/config") // Volume-mounted config
	v.AddConfigPath("/etc/overflight")            // System config
	v.AddConfigPath(".")                          // Current directory (dev mode)

	v.SetEnvPrefix("OVERFLIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultScheduleConfig()
	v.SetDefault("schedule.overdueCron", defaults.OverdueCron)
	v.SetDefault("schedule.consolidationCron", defaults.ConsolidationCron)
	v.SetDefault("schedule.lockTimeout", defaults.LockTimeout)
	v.SetDefault("schedule.paymentTermsDays", defaults.PaymentTermsDays)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg ScheduleConfig
	if err := v.UnmarshalKey("schedule", &cfg); err != nil {
		return nil, err
	}
	if err := validateScheduleConfig(cfg); err != nil {
		return nil, err
	}

	holder := &ScheduleConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ScheduleConfig
		if err := v.UnmarshalKey("schedule", &updated); err != nil {
			log.Printf("[schedule-config] reload failed: %v", err)
			return
		}
		if err := validateScheduleConfig(updated); err != nil {
			log.Printf("[schedule-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[schedule-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *ScheduleConfigHolder) Get() ScheduleConfig {
	return h.current.Load().(ScheduleConfig)
}

func validateScheduleConfig(cfg ScheduleConfig) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(cfg.OverdueCron); err != nil {
		return errors.New("schedule.overdueCron is not a valid cron expression")
	}
	if _, err := parser.Parse(cfg.ConsolidationCron); err != nil {
		return errors.New("schedule.consolidationCron is not a valid cron expression")
	}
	if cfg.LockTimeout <= 0 {
		return errors.New("schedule.lockTimeout must be positive")
	}
	if cfg.PaymentTermsDays < 0 {
		return errors.New("schedule.paymentTermsDays cannot be negative")
	}
	return nil
}
