// Package history is the persistence collaborator: completed rooms are
// appended to durable storage for later inspection. The core only ever
// calls Record; failures here never fail the match-end path.
package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// PlayerEntry is one participant's line in a history record.
type PlayerEntry struct {
	UserID string `json:"userId"`
	HeroID string `json:"heroId"`
	Score  int    `json:"score"`
	IsBot  bool   `json:"isBot"`
}

// Entry is one completed room.
type Entry struct {
	RoomID         string        `json:"roomId"`
	RoomName       string        `json:"roomName"`
	GameMode       string        `json:"gameMode"`
	ElapsedSeconds int           `json:"elapsedSeconds"`
	EndedAt        time.Time     `json:"endedAt"`
	Players        []PlayerEntry `json:"players"`
}

type Recorder interface {
	Record(e Entry) error
}

// FileRecorder appends one JSON line per completed room.
type FileRecorder struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

func NewFileRecorder(path string, logger *slog.Logger) *FileRecorder {
	return &FileRecorder{path: path, logger: logger}
}

func (f *FileRecorder) Record(e Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	defer file.Close()

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	f.logger.Info("room result recorded", "room_id", e.RoomID, "players", len(e.Players))
	return nil
}

// NopRecorder discards entries, used in tests.
type NopRecorder struct{}

func (NopRecorder) Record(Entry) error { return nil }
