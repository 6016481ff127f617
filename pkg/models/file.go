package models

import (
	"time"

	"github.com/google/uuid"
)

type FileType string

const (
	FileTypeAudio FileType = "audio"
	FileTypeVideo FileType = "video"
)

type ProcessingStatus string

const (
	StatusUploaded        ProcessingStatus = "uploaded"
	StatusExtractingAudio ProcessingStatus = "extracting_audio"
	StatusTranscribing    ProcessingStatus = "transcribing"
	StatusAnalyzing       ProcessingStatus = "analyzing"
	StatusCompleted       ProcessingStatus = "completed"
	StatusFailed          ProcessingStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var stageProgress = map[ProcessingStatus]int{
	StatusUploaded:        10,
	StatusExtractingAudio: 25,
	StatusTranscribing:    50,
	StatusAnalyzing:       80,
	StatusCompleted:       100,
	StatusFailed:          0,
}

// StageProgress maps a status to the progress value the pipeline writes
// at that transition.
func StageProgress(s ProcessingStatus) int {
	return stageProgress[s]
}

type UploadedFile struct {
	ID         string           `json:"file_id"`
	Filename   string           `json:"original_filename"`
	FileType   FileType         `json:"file_type"`
	Format     string           `json:"format"`
	SizeBytes  int64            `json:"file_size"`
	StoredPath string           `json:"stored_path"`
	FileHash   string           `json:"file_hash"`
	UploadedAt time.Time        `json:"upload_time"`
	ExpiresAt  time.Time        `json:"expires_at"`
	Status     ProcessingStatus `json:"status"`
}

func NewUploadedFile(filename string, fileType FileType, format string, retention time.Duration) *UploadedFile {
	now := time.Now()
	return &UploadedFile{
		ID:         uuid.New().String(),
		Filename:   filename,
		FileType:   fileType,
		Format:     format,
		UploadedAt: now,
		ExpiresAt:  now.Add(retention),
		Status:     StatusUploaded,
	}
}

// ProcessingStatusRecord is the live status snapshot for one file. It is
// overwritten on every stage transition by the file's owning run.
type ProcessingStatusRecord struct {
	FileID    string           `json:"file_id"`
	Status    ProcessingStatus `json:"status"`
	Progress  int              `json:"progress"`
	Timestamp time.Time        `json:"timestamp"`
	Error     string           `json:"error,omitempty"`
}
