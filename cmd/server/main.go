package main

import (
	"log/slog"
	"os"

	httpapi "github.com/Elijah-cyy/mishi-server/internal/api/http"
	"github.com/Elijah-cyy/mishi-server/internal/api/ws"
	"github.com/Elijah-cyy/mishi-server/internal/config"
	"github.com/Elijah-cyy/mishi-server/internal/history"
	"github.com/Elijah-cyy/mishi-server/internal/mapgen"
	"github.com/Elijah-cyy/mishi-server/internal/match"
	"github.com/Elijah-cyy/mishi-server/internal/room"
	"github.com/Elijah-cyy/mishi-server/internal/session"
	"github.com/Elijah-cyy/mishi-server/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg := config.Load()

	roomStore := store.NewMemoryStore()
	users := store.NewUserIndex()
	sessions := session.NewStore(cfg.SessionTTL)
	recorder := history.NewFileRecorder(cfg.HistoryFile, logger)
	generator := mapgen.NewGenerator(cfg.MapSize, logger)
	runtime := match.NewRuntime()

	manager := room.NewManager(cfg, roomStore, users, generator, runtime, recorder, logger)

	registry := ws.NewRegistry(cfg.HeartbeatInterval, cfg.SupersedeGrace, logger)
	dispatcher := ws.NewDispatcher(roomStore, registry, logger)
	manager.SetBroadcaster(dispatcher)

	hub := ws.NewHub(registry, manager, sessions, logger)

	registry.Start()
	defer registry.Stop()

	r := httpapi.NewRouter(manager, hub, sessions, cfg)

	logger.Info("listening", "addr", cfg.HTTPAddr)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
