package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"sawtfeel/pkg/audio"
	"sawtfeel/pkg/config"
	"sawtfeel/pkg/models"
	"sawtfeel/pkg/pipeline"
	"sawtfeel/pkg/realtime"
	"sawtfeel/pkg/storage"
)

// supportedFormats maps permitted upload extensions to the file type
// they are handled as.
var supportedFormats = map[string]models.FileType{
	".mp3":  models.FileTypeAudio,
	".wav":  models.FileTypeAudio,
	".mp4":  models.FileTypeVideo,
	".avi":  models.FileTypeVideo,
	".mov":  models.FileTypeVideo,
	".mkv":  models.FileTypeVideo,
	".webm": models.FileTypeVideo,
	".flv":  models.FileTypeVideo,
}

var supportedFormatNames = []string{"MP3", "WAV", "MP4", "AVI", "MOV", "MKV", "WebM", "FLV"}

// fallbackProgress approximates progress for files that have no live
// status record. The pipeline writes its own values at transitions;
// this table exists only for the status endpoint's metadata fallback.
var fallbackProgress = map[models.ProcessingStatus]int{
	models.StatusUploaded:        10,
	models.StatusExtractingAudio: 30,
	models.StatusTranscribing:    60,
	models.StatusAnalyzing:       90,
	models.StatusCompleted:       100,
	models.StatusFailed:          0,
}

type Handlers struct {
	cfg         *config.Config
	manager     *pipeline.Manager
	files       storage.FileStore
	cache       storage.SegmentCache
	statuses    storage.StatusStore
	sessions    *realtime.SessionRegistry
	broadcaster *realtime.Broadcaster
	prober      audio.Extractor
}

func NewHandlers(cfg *config.Config, manager *pipeline.Manager, files storage.FileStore, cache storage.SegmentCache, statuses storage.StatusStore, sessions *realtime.SessionRegistry, broadcaster *realtime.Broadcaster, prober audio.Extractor) *Handlers {
	return &Handlers{
		cfg:         cfg,
		manager:     manager,
		files:       files,
		cache:       cache,
		statuses:    statuses,
		sessions:    sessions,
		broadcaster: broadcaster,
		prober:      prober,
	}
}

// Router wires every endpoint and wraps the mux with CORS. The wrap
// happens outside the mux so preflight requests are answered even for
// paths that only match with another method.
func (h *Handlers) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.HealthHandler).Methods("GET")
	r.HandleFunc("/upload", h.UploadHandler).Methods("POST")
	r.HandleFunc("/upload/files", h.ListFilesHandler).Methods("GET")
	r.HandleFunc("/upload/{id}/status", h.StatusHandler).Methods("GET")
	r.HandleFunc("/upload/{id}", h.DeleteFileHandler).Methods("DELETE")
	r.HandleFunc("/processing/{id}/transcript", h.TranscriptHandler).Methods("GET")
	r.HandleFunc("/processing/{id}/emotions", h.EmotionsHandler).Methods("GET")
	r.HandleFunc("/ws/processing/{id}", h.ProcessingWebSocketHandler)
	r.HandleFunc("/ws/playback/{id}", h.PlaybackWebSocketHandler)

	return CORSMiddleware(h.cfg.Server.CORSOrigins)(r)
}

func (h *Handlers) UploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Storage.MaxUploadBytes())

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]interface{}{
				"error":   fmt.Sprintf("File too large (max %dMB)", h.cfg.Storage.MaxUploadSizeMB),
				"maxSize": h.cfg.Storage.MaxUploadBytes(),
			})
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to parse upload form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	fileType, ok := supportedFormats[ext]
	if !ok {
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]interface{}{
			"error":            fmt.Sprintf("Unsupported file format: %s", ext),
			"supportedFormats": supportedFormatNames,
		})
		return
	}

	meta := models.NewUploadedFile(header.Filename, fileType, strings.TrimPrefix(ext, "."), h.cfg.Retention())
	if err := h.files.SaveUpload(meta, file); err != nil {
		log.Printf("Upload: failed to store %s: %v", header.Filename, err)
		writeError(w, http.StatusInternalServerError, "Upload failed")
		return
	}

	// Duration can only be probed once the bytes are on disk.
	if fileType == models.FileTypeVideo {
		info, err := h.prober.Probe(r.Context(), meta.StoredPath)
		if err != nil {
			log.Printf("Upload: probe failed for %s: %v", meta.ID, err)
			h.files.DeleteFile(meta.ID)
			writeError(w, http.StatusInternalServerError, "Upload failed")
			return
		}
		if info.DurationSeconds > h.cfg.Storage.MaxVideoSeconds {
			h.files.DeleteFile(meta.ID)
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]interface{}{
				"error":   fmt.Sprintf("Video too long: %.0fs (max %.0fs)", info.DurationSeconds, h.cfg.Storage.MaxVideoSeconds),
				"maxSize": h.cfg.Storage.MaxUploadBytes(),
			})
			return
		}
	}

	// The upload stands on its own even when the run cannot start; the
	// status endpoint surfaces the outcome.
	if err := h.manager.StartRun(meta); err != nil {
		log.Printf("Upload: failed to start processing for %s: %v", meta.ID, err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fileId":  meta.ID,
		"status":  string(models.StatusUploaded),
		"message": "File uploaded successfully and processing started",
	})
}

func (h *Handlers) StatusHandler(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["id"]

	if record := h.manager.GetStatus(fileID); record != nil {
		h.writeStatus(w, record)
		return
	}

	meta, err := h.files.GetMetadata(fileID)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeStatus(w, &models.ProcessingStatusRecord{
		FileID:    fileID,
		Status:    meta.Status,
		Progress:  fallbackProgress[meta.Status],
		Timestamp: time.Now(),
	})
}

func (h *Handlers) writeStatus(w http.ResponseWriter, record *models.ProcessingStatusRecord) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fileId":       record.FileID,
		"status":       string(record.Status),
		"progress":     record.Progress,
		"message":      fmt.Sprintf("File is %s", record.Status),
		"timestamp":    record.Timestamp,
		"isProcessing": h.manager.IsRunning(record.FileID),
	})
}

func (h *Handlers) TranscriptHandler(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["id"]

	if !h.resultsReady(w, fileID, "Transcript not yet available") {
		return
	}

	var transcript models.Transcript
	ok, err := h.cache.Get(fileID, storage.KindTranscript, &transcript)
	if err != nil {
		log.Printf("Transcript: cache lookup failed for %s: %v", fileID, err)
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Transcript not available - processing may have failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fileId":             transcript.FileID,
		"text":               transcript.Text,
		"englishText":        transcript.EnglishText,
		"words":              transcript.Words,
		"language":           transcript.Language,
		"overall_confidence": transcript.Confidence,
	})
}

func (h *Handlers) EmotionsHandler(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["id"]

	if !h.resultsReady(w, fileID, "Analysis not yet available") {
		return
	}

	var analysis models.EmotionAnalysis
	ok, err := h.cache.Get(fileID, storage.KindEmotions, &analysis)
	if err != nil {
		log.Printf("Emotions: cache lookup failed for %s: %v", fileID, err)
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Analysis not available - processing may have failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fileId":             analysis.FileID,
		"overall_emotion":    string(analysis.OverallEmotion),
		"overall_confidence": analysis.OverallConfidence,
		"segments":           analysis.Segments,
	})
}

// resultsReady gates the result endpoints: 409 while a known file is
// still incomplete, 404 for files known nowhere. Files with metadata
// but no live status fall through to the cache lookup.
func (h *Handlers) resultsReady(w http.ResponseWriter, fileID, notReadyMsg string) bool {
	record := h.manager.GetStatus(fileID)
	if record == nil {
		if _, err := h.files.GetMetadata(fileID); err != nil {
			writeError(w, http.StatusNotFound, "File not found")
			return false
		}
		return true
	}

	if record.Status != models.StatusCompleted {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":  notReadyMsg,
			"status": string(record.Status),
		})
		return false
	}
	return true
}

func (h *Handlers) ListFilesHandler(w http.ResponseWriter, r *http.Request) {
	files, err := h.files.ListMetadata()
	if err != nil {
		log.Printf("List: failed to read metadata: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list files")
		return
	}

	infos := make([]map[string]interface{}, 0, len(files))
	for _, meta := range files {
		infos = append(infos, map[string]interface{}{
			"file_id":       meta.ID,
			"filename":      meta.Filename,
			"file_type":     string(meta.FileType),
			"file_size":     meta.SizeBytes,
			"upload_time":   meta.UploadedAt,
			"expires_at":    meta.ExpiresAt,
			"status":        string(meta.Status),
			"progress":      fallbackProgress[meta.Status],
			"is_processing": h.manager.IsRunning(meta.ID),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"files":       infos,
		"total_count": len(infos),
		"message":     fmt.Sprintf("Found %d uploaded files", len(infos)),
	})
}

func (h *Handlers) DeleteFileHandler(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["id"]

	h.manager.Cancel(fileID)

	var deleted []string
	if h.statuses.Delete(fileID) {
		deleted = append(deleted, "memory")
	}

	fileRemoved, metadataRemoved, err := h.files.DeleteFile(fileID)
	if err != nil {
		log.Printf("Delete: failed to remove %s: %v", fileID, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete file")
		return
	}
	if fileRemoved {
		deleted = append(deleted, "disk")
	}
	if metadataRemoved {
		deleted = append(deleted, "metadata")
	}

	removed, err := h.cache.RemoveAll(fileID)
	if err != nil {
		log.Printf("Delete: failed to clear cache for %s: %v", fileID, err)
	}
	if removed > 0 {
		deleted = append(deleted, "cache")
	}

	if len(deleted) == 0 {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	log.Printf("Delete: removed %s (%s)", fileID, strings.Join(deleted, ", "))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"file_id":       fileID,
		"deleted_items": deleted,
		"message":       fmt.Sprintf("File %s deleted successfully", fileID),
	})
}

func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "sawtfeel-backend",
		"timestamp": time.Now(),
		"version":   "1.0.0",
	})
}

func writeJSON(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("API: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"error": message})
}
