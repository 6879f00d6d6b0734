package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr string

	// Lobby limits.
	MinCapacity int
	MaxCapacity int

	// Heartbeat sweep interval for the connection registry. A connection
	// that misses two consecutive sweeps is terminated.
	HeartbeatInterval time.Duration

	// Grace given to a superseded connection before it is force-closed.
	SupersedeGrace time.Duration

	// Ceiling after which a held per-room lock is considered abandoned.
	RoomLockTTL time.Duration

	SessionTTL time.Duration

	// Side length of the generated map grid. Must be odd so the hall
	// sits on an exact center cell.
	MapSize int

	// Default match time limit in seconds when a room does not set one.
	DefaultTimeLimit int

	HistoryFile string
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func Load() Config {
	return Config{
		HTTPAddr:          getenvStr("HTTP_ADDR", ":8080"),
		MinCapacity:       getenvInt("ROOM_MIN_CAPACITY", 2),
		MaxCapacity:       getenvInt("ROOM_MAX_CAPACITY", 10),
		HeartbeatInterval: getenvDur("HEARTBEAT_INTERVAL", 30*time.Second),
		SupersedeGrace:    getenvDur("SUPERSEDE_GRACE", 200*time.Millisecond),
		RoomLockTTL:       getenvDur("ROOM_LOCK_TTL", 5*time.Second),
		SessionTTL:        getenvDur("SESSION_TTL", 24*time.Hour),
		MapSize:           getenvInt("MAP_SIZE", 7),
		DefaultTimeLimit:  getenvInt("DEFAULT_TIME_LIMIT", 1800),
		HistoryFile:       getenvStr("HISTORY_FILE", "data/room_history.jsonl"),
	}
}
