package config

type Config struct {
	JWTSecret string
}
