package auction

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/dutch-auction/pkg/config"
	"github.com/code-payments/dutch-auction/pkg/config/env"
	"github.com/code-payments/dutch-auction/pkg/config/memory"
	"github.com/code-payments/dutch-auction/pkg/config/wrapper"
	"github.com/code-payments/dutch-auction/pkg/solana/dutchauction"
)

const (
	envConfigPrefix = "DUTCH_AUCTION_"

	SalesTaxBasisPointsConfigEnvName = envConfigPrefix + "SALES_TAX_BPS"
	defaultSalesTaxBasisPoints       = dutchauction.DefaultSalesTaxBasisPoints

	SalesTaxRecipientConfigEnvName = envConfigPrefix + "SALES_TAX_RECIPIENT"
	defaultSalesTaxRecipient       = "3iYf9hHQPciwgJ1TCjpRUp1A3QW4AfaK7J6vCmETRMuu"

	RequireMetadataConfigEnvName = envConfigPrefix + "REQUIRE_METADATA"
	defaultRequireMetadata       = false

	SubmitRateLimitConfigEnvName = envConfigPrefix + "CLIENT_SUBMIT_RATE_LIMIT"
	defaultSubmitRateLimit       = 5.0

	ConfirmTimeoutConfigEnvName = envConfigPrefix + "CLIENT_CONFIRM_TIMEOUT"
	defaultConfirmTimeout       = time.Minute

	ConfirmPollIntervalConfigEnvName = envConfigPrefix + "CLIENT_CONFIRM_POLL_INTERVAL"
	defaultConfirmPollInterval       = 500 * time.Millisecond
)

type conf struct {
	salesTaxBasisPoints config.Uint64
	salesTaxRecipient   config.String
	requireMetadata     config.Bool
	submitRateLimit     config.Float64
	confirmTimeout      config.Duration
	confirmPollInterval config.Duration
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			salesTaxBasisPoints: env.NewUint64Config(SalesTaxBasisPointsConfigEnvName, defaultSalesTaxBasisPoints),
			salesTaxRecipient:   env.NewStringConfig(SalesTaxRecipientConfigEnvName, defaultSalesTaxRecipient),
			requireMetadata:     env.NewBoolConfig(RequireMetadataConfigEnvName, defaultRequireMetadata),
			submitRateLimit:     env.NewFloat64Config(SubmitRateLimitConfigEnvName, defaultSubmitRateLimit),
			confirmTimeout:      env.NewDurationConfig(ConfirmTimeoutConfigEnvName, defaultConfirmTimeout),
			confirmPollInterval: env.NewDurationConfig(ConfirmPollIntervalConfigEnvName, defaultConfirmPollInterval),
		}
	}
}

// Overrides are fixed configuration values, used in place of the environment.
type Overrides struct {
	SalesTaxBasisPoints uint64
	SalesTaxRecipient   ed25519.PublicKey
	RequireMetadata     bool
	SubmitRateLimit     float64
	ConfirmTimeout      time.Duration
	ConfirmPollInterval time.Duration
}

// WithOverrides returns configuration with fixed values. Zero values fall
// back to defaults.
func WithOverrides(overrides *Overrides) ConfigProvider {
	return func() *conf {
		salesTaxRecipient := defaultSalesTaxRecipient
		if len(overrides.SalesTaxRecipient) > 0 {
			salesTaxRecipient = base58.Encode(overrides.SalesTaxRecipient)
		}

		var salesTaxBasisPoints, submitRateLimit, confirmTimeout, confirmPollInterval interface{}
		if overrides.SalesTaxBasisPoints > 0 {
			salesTaxBasisPoints = overrides.SalesTaxBasisPoints
		}
		if overrides.SubmitRateLimit > 0 {
			submitRateLimit = overrides.SubmitRateLimit
		}
		if overrides.ConfirmTimeout > 0 {
			confirmTimeout = overrides.ConfirmTimeout
		}
		if overrides.ConfirmPollInterval > 0 {
			confirmPollInterval = overrides.ConfirmPollInterval
		}

		return &conf{
			salesTaxBasisPoints: wrapper.NewUint64Config(memory.NewConfig(salesTaxBasisPoints), defaultSalesTaxBasisPoints),
			salesTaxRecipient:   wrapper.NewStringConfig(memory.NewConfig(salesTaxRecipient), defaultSalesTaxRecipient),
			requireMetadata:     wrapper.NewBoolConfig(memory.NewConfig(overrides.RequireMetadata), defaultRequireMetadata),
			submitRateLimit:     wrapper.NewFloat64Config(memory.NewConfig(submitRateLimit), defaultSubmitRateLimit),
			confirmTimeout:      wrapper.NewDurationConfig(memory.NewConfig(confirmTimeout), defaultConfirmTimeout),
			confirmPollInterval: wrapper.NewDurationConfig(memory.NewConfig(confirmPollInterval), defaultConfirmPollInterval),
		}
	}
}

func (c *conf) getSalesTaxBasisPoints(ctx context.Context) (uint16, error) {
	bps := c.salesTaxBasisPoints.Get(ctx)
	if bps > dutchauction.MaxBasisPoints {
		return 0, errors.Errorf("sales tax of %d basis points exceeds %d", bps, dutchauction.MaxBasisPoints)
	}
	return uint16(bps), nil
}

func (c *conf) getSalesTaxRecipient(ctx context.Context) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(c.salesTaxRecipient.Get(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "invalid sales tax recipient")
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid sales tax recipient length: %d", len(decoded))
	}
	return decoded, nil
}
