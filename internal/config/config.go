package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port                 int
	DBDSN                string
	JWTSecret            string
	WSInsecureSkipVerify bool
}

func Load() Config {
	port := 8080
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "duet:duet@tcp(127.0.0.1:3306)/duet?charset=utf8mb4&parseTime=true&loc=Local"
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-change-me"
	}

	return Config{
		Port:                 port,
		DBDSN:                dsn,
		JWTSecret:            secret,
		WSInsecureSkipVerify: os.Getenv("WS_INSECURE_SKIP_VERIFY") == "true",
	}
}
