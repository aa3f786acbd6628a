package main

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/mr-tron/base58"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/dutch-auction/pkg/app"
	"github.com/code-payments/dutch-auction/pkg/auction/keeper"
	auctionpostgres "github.com/code-payments/dutch-auction/pkg/data/auction/postgres"
	pg "github.com/code-payments/dutch-auction/pkg/database/postgres"
	ledgerrpc "github.com/code-payments/dutch-auction/pkg/ledger/rpc"
	"github.com/code-payments/dutch-auction/pkg/metrics"
	"github.com/code-payments/dutch-auction/pkg/solana"
	"github.com/code-payments/dutch-auction/pkg/solana/dutchauction"
)

type config struct {
	RPCEndpoint string `mapstructure:"rpc_endpoint"`
	Commitment  string `mapstructure:"commitment"`
	ProgramID   string `mapstructure:"program_id"`

	// DatabaseURLFile takes precedence over DatabaseURL when set. It may be
	// any URL understood by app.LoadFile.
	DatabaseURL        string        `mapstructure:"database_url"`
	DatabaseURLFile    string        `mapstructure:"database_url_file"`
	MaxOpenConnections int           `mapstructure:"max_open_connections"`
	MaxIdleConnections int           `mapstructure:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `mapstructure:"conn_max_lifetime"`
}

var defaultConfig = config{
	RPCEndpoint: "https://api.mainnet-beta.solana.com",
	Commitment:  "confirmed",
	ProgramID:   base58.Encode(dutchauction.PROGRAM_ID),

	MaxOpenConnections: 10,
	MaxIdleConnections: 5,
	ConnMaxLifetime:    time.Hour,
}

type keeperApp struct {
	log *logrus.Entry

	db     *sql.DB
	keeper *keeper.Keeper

	cancel       context.CancelFunc
	stopOnce     sync.Once
	shutdownChan chan struct{}
}

func (a *keeperApp) Init(appConfig app.Config, metricsProvider *newrelic.Application) error {
	conf := defaultConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     &conf,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(map[string]interface{}(appConfig)); err != nil {
		return errors.Wrap(err, "invalid app config")
	}

	commitment, err := parseCommitment(conf.Commitment)
	if err != nil {
		return err
	}
	programID, err := base58.Decode(conf.ProgramID)
	if err != nil || len(programID) != 32 {
		return errors.Errorf("invalid program id: %s", conf.ProgramID)
	}

	databaseURL := conf.DatabaseURL
	if len(conf.DatabaseURLFile) > 0 {
		databaseURL, err = app.LoadSecret(conf.DatabaseURLFile)
		if err != nil {
			return errors.Wrap(err, "failed to load database url")
		}
	}

	ctx, cancel := context.WithCancel(metrics.NewContext(context.Background(), metricsProvider))
	a.cancel = cancel

	a.db, err = pg.Open(ctx, &pg.Config{
		URL:                databaseURL,
		MaxOpenConnections: conf.MaxOpenConnections,
		MaxIdleConnections: conf.MaxIdleConnections,
		ConnMaxLifetime:    conf.ConnMaxLifetime,
	})
	if err != nil {
		cancel()
		return err
	}

	deriver := solana.NewCachingAddressDeriver(solana.NewAddressDeriver(), 1024)
	resolver := dutchauction.NewAddressResolver(programID, deriver)
	reader := ledgerrpc.NewReader(solana.New(conf.RPCEndpoint), commitment)

	a.keeper = keeper.New(reader, auctionpostgres.New(a.db), resolver, keeper.WithEnvConfigs())
	if err := a.keeper.Start(ctx); err != nil {
		cancel()
		a.db.Close()
		return err
	}

	a.log.WithFields(logrus.Fields{
		"program":  conf.ProgramID,
		"endpoint": conf.RPCEndpoint,
	}).Info("auction keeper started")
	return nil
}

func (a *keeperApp) ShutdownChan() <-chan struct{} {
	return a.shutdownChan
}

func (a *keeperApp) Stop() {
	a.stopOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		if a.keeper != nil {
			a.keeper.Stop()
		}
		if a.db != nil {
			if err := a.db.Close(); err != nil {
				a.log.WithError(err).Warn("failed to close database")
			}
		}
		close(a.shutdownChan)
	})
}

func parseCommitment(value string) (solana.Commitment, error) {
	switch value {
	case "processed":
		return solana.CommitmentProcessed, nil
	case "confirmed":
		return solana.CommitmentConfirmed, nil
	case "finalized":
		return solana.CommitmentFinalized, nil
	}
	return solana.Commitment{}, errors.Errorf("invalid commitment: %s", value)
}

func main() {
	a := &keeperApp{
		log:          logrus.StandardLogger().WithField("type", "auction-keeper"),
		shutdownChan: make(chan struct{}),
	}
	if err := app.Run(a); err != nil {
		logrus.StandardLogger().WithError(err).Fatal("error running auction keeper")
	}
}
