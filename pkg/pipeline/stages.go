package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sawtfeel/pkg/models"
	"sawtfeel/pkg/storage"
)

// run executes the stage sequence for one queued task. It owns the
// registry slot for the file id and always releases it on exit.
func (m *Manager) run(task *runTask) {
	file := task.file

	defer m.registry.Release(file.ID)
	defer func() {
		if r := recover(); r != nil {
			m.fail(file.ID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	log.Printf("Pipeline Manager: processing %s (%s)", file.ID, file.Filename)

	audioPath, err := m.stageExtract(task.ctx, file)
	if err != nil {
		m.fail(file.ID, err.Error())
		return
	}
	defer m.cleanupTemp(audioPath)

	if task.ctx.Err() != nil {
		m.fail(file.ID, "processing canceled")
		return
	}

	transcript, err := m.stageTranscribe(task.ctx, file, audioPath)
	if err != nil {
		m.fail(file.ID, err.Error())
		return
	}

	if task.ctx.Err() != nil {
		m.fail(file.ID, "processing canceled")
		return
	}

	emotions, err := m.stageAnalyze(task.ctx, file, transcript, audioPath)
	if err != nil {
		m.fail(file.ID, err.Error())
		return
	}

	if task.ctx.Err() != nil {
		m.fail(file.ID, "processing canceled")
		return
	}

	if err := m.stageComplete(file, transcript, emotions); err != nil {
		m.fail(file.ID, err.Error())
		return
	}

	log.Printf("Pipeline Manager: completed %s", file.ID)
}

// stageCtx bounds a single stage. A non-positive timeout keeps
// cancellation without a deadline.
func (m *Manager) stageCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if m.config.StageTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, m.config.StageTimeout)
}

func (m *Manager) stageExtract(ctx context.Context, file *models.UploadedFile) (string, error) {
	m.setStatus(file.ID, models.StatusExtractingAudio, "")

	stageCtx, cancel := m.stageCtx(ctx)
	defer cancel()

	audioPath := filepath.Join(m.workDir, file.ID+"_audio.wav")
	if err := m.adapters.Extractor.ExtractPCM(stageCtx, file.StoredPath, audioPath); err != nil {
		return "", fmt.Errorf("audio extraction failed: %w", err)
	}
	return audioPath, nil
}

func (m *Manager) stageTranscribe(ctx context.Context, file *models.UploadedFile, audioPath string) (*models.Transcript, error) {
	m.setStatus(file.ID, models.StatusTranscribing, "")

	stageCtx, cancel := m.stageCtx(ctx)
	defer cancel()

	result, err := m.adapters.Transcriber.Transcribe(stageCtx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	english := ""
	if strings.TrimSpace(result.Text) != "" {
		english, err = m.adapters.Translator.Translate(stageCtx, result.Text)
		if err != nil {
			log.Printf("Pipeline Manager: translation failed for %s, keeping source text: %v", file.ID, err)
			english = result.Text
		}
	}

	transcript, err := models.NewTranscript(file.ID, result.Text, result.Language, result.Words, result.Confidence)
	if err != nil {
		return nil, fmt.Errorf("invalid transcript: %w", err)
	}
	transcript.EnglishText = english

	if err := m.cache.Put(file.ID, storage.KindTranscript, transcript); err != nil {
		return nil, fmt.Errorf("failed to cache transcript: %w", err)
	}
	return transcript, nil
}

func (m *Manager) stageAnalyze(ctx context.Context, file *models.UploadedFile, transcript *models.Transcript, audioPath string) (*models.EmotionAnalysis, error) {
	m.setStatus(file.ID, models.StatusAnalyzing, "")

	stageCtx, cancel := m.stageCtx(ctx)
	defer cancel()

	analysis, err := m.adapters.Analyzer.Analyze(stageCtx, file.ID, transcript, audioPath)
	if err != nil {
		return nil, fmt.Errorf("emotion analysis failed: %w", err)
	}

	if err := m.cache.Put(file.ID, storage.KindEmotions, analysis); err != nil {
		return nil, fmt.Errorf("failed to cache emotion analysis: %w", err)
	}
	return analysis, nil
}

func (m *Manager) stageComplete(file *models.UploadedFile, transcript *models.Transcript, emotions *models.EmotionAnalysis) error {
	bundle := CompleteResults{
		FileID:      file.ID,
		Transcript:  transcript,
		Emotions:    emotions,
		CompletedAt: time.Now(),
	}
	if err := m.cache.Put(file.ID, storage.KindCompleteResults, bundle); err != nil {
		return fmt.Errorf("failed to cache results: %w", err)
	}

	m.setStatus(file.ID, models.StatusCompleted, "")
	return nil
}

// fail marks the run failed and caches the error so the outcome
// survives the live status record.
func (m *Manager) fail(fileID, reason string) {
	log.Printf("Pipeline Manager: run failed for %s: %s", fileID, reason)

	record := ErrorRecord{
		Error:     reason,
		Status:    string(models.StatusFailed),
		Timestamp: time.Now(),
	}
	if err := m.cache.Put(fileID, storage.KindError, record); err != nil {
		log.Printf("Pipeline Manager: failed to cache error for %s: %v", fileID, err)
	}

	m.setStatus(fileID, models.StatusFailed, reason)
}

func (m *Manager) cleanupTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Pipeline Manager: failed to remove temp audio %s: %v", path, err)
	}
}
