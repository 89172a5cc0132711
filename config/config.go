package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	ServerPort         string
	DBPath             string
	LogLevel           string
	GatewayToken       string
	HintProviderURL    string
	HintProviderToken  string
	HintTimeout        time.Duration
	HintPerPlayerGame  int
	HintPerIPDay       int
	SweepInterval      time.Duration
	ActionRatePerSec   float64
	ActionBurst        int
	DefaultMaxMessages int
}

// Load reads .env when present, then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, reading environment variables directly")
	}

	return &Config{
		ServerPort:         ":" + getEnv("PORT", "8080"),
		DBPath:             getEnv("DB_PATH", "./wordplay.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		GatewayToken:       os.Getenv("GATEWAY_TOKEN"),
		HintProviderURL:    os.Getenv("HINT_PROVIDER_URL"),
		HintProviderToken:  os.Getenv("HINT_PROVIDER_TOKEN"),
		HintTimeout:        getDuration("HINT_PROVIDER_TIMEOUT", 5*time.Second),
		HintPerPlayerGame:  getInt("HINT_LIMIT_PER_PLAYER_GAME", 3),
		HintPerIPDay:       getInt("HINT_LIMIT_PER_IP_DAY", 20),
		SweepInterval:      getDuration("SWEEP_INTERVAL", 2*time.Second),
		ActionRatePerSec:   getFloat("ACTION_RATE_PER_SEC", 5),
		ActionBurst:        getInt("ACTION_BURST", 10),
		DefaultMaxMessages: getInt("DEFAULT_MAX_MESSAGES", 10),
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid integer, using default")
		return def
	}
	return n
}

func getFloat(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid number, using default")
		return def
	}
	return f
}

func getDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid duration, using default")
		return def
	}
	return d
}
