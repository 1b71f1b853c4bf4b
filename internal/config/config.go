// Package config provides runtime configuration values for the service.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds configuration knobs for the HTTP server, stock event workers
// and the registers.
type Config struct {
	HTTPAddr                string
	ShutdownTimeout         time.Duration
	InitialWorkerCount      int
	WorkerMin               int
	WorkerMax               int
	ScaleInterval           time.Duration
	ScaleUpBacklogPerWorker int
	ScaleDownIdleTicks      int
	QueueHighWatermark      int

	LogLevel          string
	StoreName         string
	CurrencySymbol    string
	MaxRegisters      int
	InventorySeedFile string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvms(key string, defMs int) time.Duration {
	ms := atoienv(key, defMs)
	return time.Duration(ms) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// LoadDotEnv loads variables from the given .env files (".env" when none are
// named) without overriding variables already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return err
		}
	}
	return nil
}

// Load collects configuration from environment with defaults.
func Load() Config {
	minWorkers := atoienv("WORKER_MIN", 3)
	maxWorkers := atoienv("WORKER_MAX", 8)
	initialWorkers := atoienv("WORKER_COUNT", minWorkers)
	return Config{
		HTTPAddr:                getenv("HTTP_ADDR", ":8080"),
		ShutdownTimeout:         durenvs("SHUTDOWN_TIMEOUT", 15),
		InitialWorkerCount:      initialWorkers,
		WorkerMin:               minWorkers,
		WorkerMax:               maxWorkers,
		ScaleInterval:           durenvms("SCALE_INTERVAL_MS", 500),
		ScaleUpBacklogPerWorker: atoienv("SCALE_UP_BACKLOG_PER_WORKER", 100),
		ScaleDownIdleTicks:      atoienv("SCALE_DOWN_IDLE_TICKS", 6),
		QueueHighWatermark:      atoienv("QUEUE_HIGH_WATERMARK", 5000),
		LogLevel:                getenv("LOG_LEVEL", "info"),
		StoreName:               getenv("STORE_NAME", "BridgePhase Convenience Store"),
		CurrencySymbol:          getenv("CURRENCY_SYMBOL", "$"),
		MaxRegisters:            atoienv("MAX_REGISTERS", 16),
		InventorySeedFile:       getenv("INVENTORY_SEED_FILE", ""),
	}
}
