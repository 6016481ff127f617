package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"sawtfeel/pkg/api"
	"sawtfeel/pkg/audio"
	"sawtfeel/pkg/config"
	"sawtfeel/pkg/emotion"
	"sawtfeel/pkg/pipeline"
	"sawtfeel/pkg/realtime"
	"sawtfeel/pkg/storage"
	"sawtfeel/pkg/transcribe"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, err := storage.Open(cfg.Storage.DataDir, cfg.Storage.UploadDir, cfg.Retention(), cfg.Storage.MaxCacheBytes())
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	statuses := storage.NewStatusStore()
	broadcaster := realtime.NewBroadcaster(store)
	sessions := realtime.NewSessionRegistry()

	extractor := audio.NewFFmpegExtractor()
	adapters := pipeline.Adapters{
		Extractor:   extractor,
		Transcriber: transcribe.NewWhisperClient(cfg.Adapters.WhisperURL, cfg.Adapters.OpenAIKey, cfg.Adapters.RequestTimeout),
		Translator:  transcribe.NewGoogleTranslator(cfg.Adapters.TranslateURL, cfg.Adapters.RequestTimeout),
		Analyzer: emotion.NewAnalyzer(
			emotion.NewHFClassifier(cfg.Adapters.SentimentURL, cfg.Adapters.HFToken, cfg.Adapters.RequestTimeout),
			emotion.NewRuleTonalClassifier(),
			cfg.Pipeline.WindowSeconds,
		),
	}

	manager := pipeline.NewManager(cfg.Pipeline, filepath.Join(cfg.Storage.DataDir, "tmp"), store, store, statuses, adapters, broadcaster)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.Start(ctx); err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}

	go sweepCache(ctx, cfg, store, statuses)
	go sweepSessions(ctx, cfg, sessions)

	handlers := api.NewHandlers(cfg, manager, store, store, statuses, sessions, broadcaster, extractor)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      handlers.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Server starting on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	manager.Stop()

	log.Println("Server exited")
}

// sweepCache periodically evicts expired uploads and cache entries,
// dropping the matching live status records with them.
func sweepCache(ctx context.Context, cfg *config.Config, store *storage.Store, statuses storage.StatusStore) {
	ticker := time.NewTicker(cfg.Storage.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats, err := store.SweepExpired()
			if err != nil {
				log.Printf("Cache sweep failed: %v", err)
				continue
			}
			for _, fileID := range stats.ExpiredFileIDs {
				statuses.Delete(fileID)
			}
			if stats.RemovedCount > 0 {
				log.Printf("Cache sweep removed %d entries, freed %d bytes", stats.RemovedCount, stats.BytesFreed)
			}

		case <-ctx.Done():
			return
		}
	}
}

func sweepSessions(ctx context.Context, cfg *config.Config, sessions *realtime.SessionRegistry) {
	ticker := time.NewTicker(cfg.Realtime.SessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := sessions.SweepIdle(cfg.Realtime.SessionIdleTimeout); removed > 0 {
				log.Printf("Removed %d idle playback sessions", removed)
			}

		case <-ctx.Done():
			return
		}
	}
}
