package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// MediaInfo is the subset of container metadata the service cares about.
type MediaInfo struct {
	DurationSeconds float64
	FormatName      string
	HasAudio        bool
}

// Extractor probes uploads and produces the normalized mono 16kHz PCM
// artifact consumed by transcription and tone analysis.
type Extractor interface {
	Probe(ctx context.Context, path string) (*MediaInfo, error)
	ExtractPCM(ctx context.Context, src, dst string) error
}

// FFmpegExtractor shells out to ffmpeg and ffprobe.
type FFmpegExtractor struct{}

func NewFFmpegExtractor() *FFmpegExtractor {
	return &FFmpegExtractor{}
}

type probeOutput struct {
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
	} `json:"streams"`
}

func (e *FFmpegExtractor) Probe(ctx context.Context, path string) (*MediaInfo, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &MediaInfo{FormatName: probe.Format.FormatName}
	if probe.Format.Duration != "" {
		d, err := strconv.ParseFloat(probe.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse media duration %q: %w", probe.Format.Duration, err)
		}
		info.DurationSeconds = d
	}
	for _, s := range probe.Streams {
		if s.CodecType == "audio" {
			info.HasAudio = true
		}
	}

	return info, nil
}

// ExtractPCM writes dst as mono 16kHz 16-bit PCM WAV, band-passed and
// boosted for speech.
func (e *FFmpegExtractor) ExtractPCM(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-i", src,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", "16000",
		"-af", "highpass=f=200,lowpass=f=3400,volume=1.5",
		dst)

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg audio extraction failed: %w: %s", err, bytes.TrimSpace(out))
	}

	info, err := os.Stat(dst)
	if err != nil {
		return fmt.Errorf("audio extraction produced no output: %w", err)
	}
	if info.Size() == 0 {
		os.Remove(dst)
		return fmt.Errorf("audio extraction produced an empty file")
	}

	return nil
}
