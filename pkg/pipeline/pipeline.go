package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"sawtfeel/pkg/audio"
	"sawtfeel/pkg/config"
	"sawtfeel/pkg/models"
	"sawtfeel/pkg/storage"
	"sawtfeel/pkg/transcribe"
)

// ErrRunInFlight is returned when a run for the file id is already
// queued or executing.
var ErrRunInFlight = errors.New("processing already in progress")

// EmotionAnalyzer produces the emotion timeline for a transcript and
// its extracted audio.
type EmotionAnalyzer interface {
	Analyze(ctx context.Context, fileID string, transcript *models.Transcript, audioPath string) (*models.EmotionAnalysis, error)
}

// StatusNotifier receives every status transition a run writes.
type StatusNotifier interface {
	NotifyStatus(record models.ProcessingStatusRecord)
}

// Adapters bundles the external capabilities a run needs.
type Adapters struct {
	Extractor   audio.Extractor
	Transcriber transcribe.Transcriber
	Translator  transcribe.Translator
	Analyzer    EmotionAnalyzer
}

// CompleteResults is the bundle cached when a run finishes.
type CompleteResults struct {
	FileID      string                  `json:"file_id"`
	Transcript  *models.Transcript      `json:"transcript"`
	Emotions    *models.EmotionAnalysis `json:"emotions"`
	CompletedAt time.Time               `json:"completed_at"`
}

// ErrorRecord is cached when a run fails, so failures survive a
// restart the same way results do.
type ErrorRecord struct {
	Error     string    `json:"error"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Manager drives the fixed stage sequence for each uploaded file:
// extract audio, transcribe, analyze emotions, cache the bundle. Runs
// execute on a bounded worker pool with at most one in-flight run per
// file id.
type Manager struct {
	config   config.PipelineConfig
	workDir  string
	files    storage.FileStore
	cache    storage.SegmentCache
	statuses storage.StatusStore
	adapters Adapters
	notifier StatusNotifier

	registry *RunRegistry
	pool     *WorkerPool

	ctx    context.Context
	cancel context.CancelFunc
}

func NewManager(cfg config.PipelineConfig, workDir string, files storage.FileStore, cache storage.SegmentCache, statuses storage.StatusStore, adapters Adapters, notifier StatusNotifier) *Manager {
	return &Manager{
		config:   cfg,
		workDir:  workDir,
		files:    files,
		cache:    cache,
		statuses: statuses,
		adapters: adapters,
		notifier: notifier,
		registry: NewRunRegistry(),
	}
}

func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)
	log.Println("Pipeline Manager: Starting...")

	if err := os.MkdirAll(m.workDir, 0o755); err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}

	m.pool = NewWorkerPool(m.config.Workers, m.config.QueueSize, m.run)
	m.pool.Start(m.ctx)
	return nil
}

// Stop cancels every in-flight run and waits for the workers to drain.
func (m *Manager) Stop() {
	log.Println("Pipeline Manager: Stopping...")
	if m.cancel != nil {
		m.cancel()
	}
	if m.pool != nil {
		m.pool.Wait()
	}
	log.Println("Pipeline Manager: Stopped.")
}

// StartRun queues the stage sequence for an uploaded file and returns
// immediately. A second call for the same file id is rejected while the
// first run is in flight.
func (m *Manager) StartRun(file *models.UploadedFile) error {
	runCtx, cancel := context.WithCancel(m.ctx)

	if !m.registry.Acquire(file.ID, cancel) {
		cancel()
		log.Printf("Pipeline Manager: run already in flight for %s", file.ID)
		return ErrRunInFlight
	}

	m.setStatus(file.ID, models.StatusUploaded, "")

	if err := m.pool.Submit(&runTask{ctx: runCtx, file: file}); err != nil {
		m.registry.Release(file.ID)
		cancel()
		log.Printf("Pipeline Manager: failed to queue run for %s: %v", file.ID, err)
		return err
	}

	log.Printf("Pipeline Manager: run queued for %s (%s)", file.ID, file.Filename)
	return nil
}

func (m *Manager) IsRunning(fileID string) bool {
	return m.registry.IsRunning(fileID)
}

// Cancel requests cooperative cancellation of the file's run.
func (m *Manager) Cancel(fileID string) bool {
	if m.registry.Cancel(fileID) {
		log.Printf("Pipeline Manager: cancellation requested for %s", fileID)
		return true
	}
	return false
}

// GetStatus resolves the freshest view of a file's processing state:
// the live record first, then cached terminal artifacts, else nil for
// an unknown file.
func (m *Manager) GetStatus(fileID string) *models.ProcessingStatusRecord {
	if record, ok := m.statuses.Get(fileID); ok {
		return record
	}

	var bundle CompleteResults
	if ok, err := m.cache.Get(fileID, storage.KindCompleteResults, &bundle); err == nil && ok {
		return &models.ProcessingStatusRecord{
			FileID:    fileID,
			Status:    models.StatusCompleted,
			Progress:  models.StageProgress(models.StatusCompleted),
			Timestamp: bundle.CompletedAt,
		}
	}

	var failure ErrorRecord
	if ok, err := m.cache.Get(fileID, storage.KindError, &failure); err == nil && ok {
		return &models.ProcessingStatusRecord{
			FileID:    fileID,
			Status:    models.StatusFailed,
			Progress:  models.StageProgress(models.StatusFailed),
			Timestamp: failure.Timestamp,
			Error:     failure.Error,
		}
	}

	return nil
}

// setStatus writes the live record, mirrors the status onto the file
// metadata and notifies the broadcaster. Only the owning run calls it,
// so progress never moves backward.
func (m *Manager) setStatus(fileID string, status models.ProcessingStatus, errText string) {
	record := models.ProcessingStatusRecord{
		FileID:    fileID,
		Status:    status,
		Progress:  models.StageProgress(status),
		Timestamp: time.Now(),
		Error:     errText,
	}
	m.statuses.Set(record)

	if err := m.files.UpdateFileStatus(fileID, status); err != nil {
		log.Printf("Pipeline Manager: failed to update metadata status for %s: %v", fileID, err)
	}

	if m.notifier != nil {
		m.notifier.NotifyStatus(record)
	}
}
