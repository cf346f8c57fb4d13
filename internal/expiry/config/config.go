package config

import "time"

type Config struct {
	// Interval между проходами; 0 - списание выключено
	Interval time.Duration
}
