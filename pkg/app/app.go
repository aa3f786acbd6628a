package app

import (
	"expvar"
	"flag"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/code-payments/dutch-auction/pkg/metrics"
	"github.com/code-payments/dutch-auction/pkg/osutil"
)

// App is a long lived background process, such as the auction keeper.
//
// The lifecycle of the App is tied to the process. The app gets initialized
// once configuration, logging and metrics are set up, and gets stopped when
// the process is asked to terminate.
type App interface {
	// Init initializes and starts the application. metricsProvider is nil when
	// no New Relic license key is configured.
	Init(config Config, metricsProvider *newrelic.Application) error

	// ShutdownChan returns a channel that is closed when the application is
	// shutdown on its own.
	ShutdownChan() <-chan struct{}

	// Stop stops the application, allowing it to clean up any resources. When
	// Stop returns, the process exits.
	//
	// Stop should be idempotent.
	Stop()
}

var (
	configPath = flag.String("config", "config.yaml", "configuration file path")

	osSigCh = make(chan os.Signal, 1)
)

func init() {
	signal.Notify(osSigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
}

// Run initializes app and blocks until the process is signalled or the app
// shuts down.
func Run(app App) error {
	flag.Parse()

	logger := logrus.StandardLogger().WithField("type", "app")

	config, err := loadConfig(*configPath)
	if err != nil {
		logger.WithError(err).Error("failed to load config")
		os.Exit(1)
	}

	var metricsProvider *newrelic.Application
	if len(config.NewRelicLicenseKey) > 0 {
		nr, err := newrelic.NewApplication(
			newrelic.ConfigFromEnvironment(),
			newrelic.ConfigAppName(config.AppName),
			newrelic.ConfigLicense(config.NewRelicLicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.WithError(err).Error("error connecting to new relic")
			os.Exit(1)
		}

		metricsProvider = nr
	}

	configureLogger(config, metricsProvider)

	// pprof and expvar register with the default mux on import, and only the
	// debug listener should expose them.
	http.DefaultServeMux = http.NewServeMux()

	debugHTTPMux := http.NewServeMux()
	if config.EnableExpvar {
		debugHTTPMux.Handle("/debug/vars", expvar.Handler())
	}
	if config.EnablePprof {
		debugHTTPMux.HandleFunc("/debug/pprof/", pprof.Index)
		debugHTTPMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		debugHTTPMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		debugHTTPMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		debugHTTPMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	if config.EnableExpvar || config.EnablePprof {
		go func() {
			for {
				if err := http.ListenAndServe(config.DebugListenAddress, debugHTTPMux); err != nil {
					logger.WithError(err).Warn("Debug HTTP server failed. Retrying in 5s...")
				}
				time.Sleep(5 * time.Second)
			}
		}()
	}

	var ballast []byte
	if config.EnableBallast {
		ballast = make([]byte, ballastSize(config.BallastCapacity, osutil.GetTotalMemory()))
	}

	memoryLeakShutdownCh := make(chan struct{})
	if config.EnableMemoryLeakCron {
		cronJob := cron.New(cron.WithLocation(time.Local))
		_, err = cronJob.AddFunc(config.MemoryLeakCronSchedule, func() {
			close(memoryLeakShutdownCh)
		})
		if err != nil {
			logger.WithError(err).Error("failed to initialize memory leak cron")
			os.Exit(1)
		}
		cronJob.Start()
	}

	if err := app.Init(config.AppConfig, metricsProvider); err != nil {
		logger.WithError(err).Error("failed to initialize application")
		os.Exit(1)
	}

	select {
	case <-osSigCh:
		logger.Info("interrupt received, shutting down")
	case <-memoryLeakShutdownCh:
		logger.Info("shutdown to deal with memory leak")
	case <-app.ShutdownChan():
		logger.Info("app shutdown")
	}

	shutdownCh := make(chan struct{})
	go func() {
		app.Stop()
		close(shutdownCh)
	}()

	select {
	case <-shutdownCh:
		if len(ballast) > 0 {
			ballast[0] = 1
		}
		if metricsProvider != nil {
			metricsProvider.Shutdown(config.ShutdownGracePeriod)
		}
		return nil
	case <-time.After(config.ShutdownGracePeriod):
		return errors.Errorf("failed to stop the application within %v", config.ShutdownGracePeriod)
	}
}

// loadConfig reads the optional config file at path, overlaid with the
// environment bindings.
func loadConfig(path string) (BaseConfig, error) {
	// viper only reports ConfigFileNotFoundError when searching for a default
	// file, so a missing explicit file is detected here.
	if _, err := os.Stat(path); err == nil {
		viper.SetConfigFile(path)
	} else if !os.IsNotExist(err) {
		return BaseConfig{}, errors.Wrap(err, "failed to check if config exists")
	}

	err := viper.ReadInConfig()
	if _, isConfigNotFound := err.(viper.ConfigFileNotFoundError); err != nil && !isConfigNotFound {
		return BaseConfig{}, err
	}

	config := defaultConfig
	if err := viper.Unmarshal(&config); err != nil {
		return BaseConfig{}, errors.Wrap(err, "failed to unmarshal config")
	}

	if len(config.AppName) == 0 {
		return BaseConfig{}, errors.New("must specify an application name")
	}
	return config, nil
}

// ballastSize is the heap ballast for a capacity fraction of total memory,
// capped at half.
func ballastSize(capacity float32, totalMemory uint64) uint64 {
	if capacity > 0.5 {
		capacity = 0.5
	}
	if capacity < 0 {
		capacity = 0
	}
	return uint64(float64(capacity) * float64(totalMemory))
}

func configureLogger(config BaseConfig, metricsProvider *newrelic.Application) {
	if metricsProvider != nil {
		logrus.SetFormatter(metrics.NewCustomNewRelicLogFormatter(metricsProvider, &logrus.JSONFormatter{}))
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}

	logrus.SetOutput(os.Stdout)
}
