package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	authConfig "github.com/iurnickita/raktkadi/internal/auth/config"
	expiryConfig "github.com/iurnickita/raktkadi/internal/expiry/config"
	handlerConfig "github.com/iurnickita/raktkadi/internal/handler/config"
	loggerConfig "github.com/iurnickita/raktkadi/internal/logger/config"
	serviceConfig "github.com/iurnickita/raktkadi/internal/service/config"
	storeConfig "github.com/iurnickita/raktkadi/internal/store/config"
)

var ErrNoJWTSecret = errors.New("JWT secret is not set: use -s or JWT_SECRET")

type Config struct {
	Handler handlerConfig.Config
	Service serviceConfig.Config
	Store   storeConfig.Config
	Logger  loggerConfig.Config
	Auth    authConfig.Config
	Expiry  expiryConfig.Config
}

// GetConfig reads command-line flags; environment variables take precedence.
func GetConfig() (Config, error) {
	return parse(flag.CommandLine, os.Args[1:], os.LookupEnv)
}

func parse(fs *flag.FlagSet, args []string, lookupEnv func(string) (string, bool)) (Config, error) {
	cfg := Config{}

	fs.StringVar(&cfg.Handler.ServerAddr, "a", ":8080", "address and port to run server")
	fs.DurationVar(&cfg.Handler.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
	fs.StringVar(&cfg.Store.DBDsn, "d", "", "database connection string, empty for in-memory storage")
	fs.StringVar(&cfg.Logger.LogLevel, "l", "info", "log level")
	fs.StringVar(&cfg.Auth.JWTSecret, "s", "", "JWT signing secret shared with the identity service")
	fs.StringVar(&cfg.Service.BankDirectoryAddr, "b", "", "bank directory service address")
	fs.IntVar(&cfg.Service.CodeAttempts, "code-attempts", 10, "tracking code generation attempts")
	fs.IntVar(&cfg.Service.LowStockThreshold, "low-stock", 5, "available units below which LOW_STOCK is raised")
	fs.DurationVar(&cfg.Service.NearExpiryWindow, "near-expiry", 72*time.Hour, "window for NEAR_EXPIRY alerts")
	fs.DurationVar(&cfg.Expiry.Interval, "expiry-interval", 0, "expiry sweep interval, 0 disables the sweeper")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// переменные окружения
	envs := []struct {
		name string
		set  func(string) error
	}{
		{"RUN_ADDRESS", setString(&cfg.Handler.ServerAddr)},
		{"DATABASE_URI", setString(&cfg.Store.DBDsn)},
		{"LOG_LEVEL", setString(&cfg.Logger.LogLevel)},
		{"JWT_SECRET", setString(&cfg.Auth.JWTSecret)},
		{"BANK_DIRECTORY_ADDRESS", setString(&cfg.Service.BankDirectoryAddr)},
		{"CODE_ATTEMPTS", setInt(&cfg.Service.CodeAttempts)},
		{"LOW_STOCK_THRESHOLD", setInt(&cfg.Service.LowStockThreshold)},
		{"NEAR_EXPIRY_WINDOW", setDuration(&cfg.Service.NearExpiryWindow)},
		{"EXPIRY_SWEEP_INTERVAL", setDuration(&cfg.Expiry.Interval)},
	}
	for _, env := range envs {
		value, ok := lookupEnv(env.name)
		if !ok || value == "" {
			continue
		}
		if err := env.set(value); err != nil {
			return Config{}, fmt.Errorf("%s: %w", env.name, err)
		}
	}

	if cfg.Auth.JWTSecret == "" {
		return Config{}, ErrNoJWTSecret
	}
	return cfg, nil
}

func setString(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

func setInt(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func setDuration(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}
