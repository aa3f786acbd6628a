package keeper

import (
	"github.com/code-payments/dutch-auction/pkg/config"
	"github.com/code-payments/dutch-auction/pkg/config/env"
	"github.com/code-payments/dutch-auction/pkg/config/memory"
	"github.com/code-payments/dutch-auction/pkg/config/wrapper"
)

const (
	envConfigPrefix = "DUTCH_AUCTION_KEEPER_"

	BatchSizeConfigEnvName = envConfigPrefix + "BATCH_SIZE"
	defaultBatchSize       = 100

	ConcurrencyConfigEnvName = envConfigPrefix + "CONCURRENCY"
	defaultConcurrency       = 16

	ScheduleConfigEnvName = envConfigPrefix + "SCHEDULE"
	defaultSchedule       = "@every 1m"
)

type conf struct {
	batchSize   config.Uint64
	concurrency config.Uint64
	schedule    config.String
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			batchSize:   env.NewUint64Config(BatchSizeConfigEnvName, defaultBatchSize),
			concurrency: env.NewUint64Config(ConcurrencyConfigEnvName, defaultConcurrency),
			schedule:    env.NewStringConfig(ScheduleConfigEnvName, defaultSchedule),
		}
	}
}

type Overrides struct {
	BatchSize   uint64
	Concurrency uint64
	Schedule    string
}

// WithOverrides returns configuration with fixed values. Zero values fall
// back to defaults.
func WithOverrides(overrides *Overrides) ConfigProvider {
	return func() *conf {
		var batchSize, concurrency, schedule interface{}
		if overrides.BatchSize > 0 {
			batchSize = overrides.BatchSize
		}
		if overrides.Concurrency > 0 {
			concurrency = overrides.Concurrency
		}
		if len(overrides.Schedule) > 0 {
			schedule = overrides.Schedule
		}

		return &conf{
			batchSize:   wrapper.NewUint64Config(memory.NewConfig(batchSize), defaultBatchSize),
			concurrency: wrapper.NewUint64Config(memory.NewConfig(concurrency), defaultConcurrency),
			schedule:    wrapper.NewStringConfig(memory.NewConfig(schedule), defaultSchedule),
		}
	}
}
