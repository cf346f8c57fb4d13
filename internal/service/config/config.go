package config

import "time"

type Config struct {
	BankDirectoryAddr string
	CodeAttempts      int
	LowStockThreshold int
	NearExpiryWindow  time.Duration
}
