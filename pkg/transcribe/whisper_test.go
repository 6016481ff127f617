package transcribe

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip_audio.wav")
	require.NoError(t, os.WriteFile(path, []byte("fake-pcm-bytes"), 0o644))
	return path
}

func floatPtr(v float64) *float64 { return &v }

func TestWhisperClientTranscribe(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		require.NoError(t, r.ParseMultipartForm(32<<20))
		require.Equal(t, "whisper-1", r.FormValue("model"))
		require.Equal(t, "ar", r.FormValue("language"))
		require.Equal(t, "verbose_json", r.FormValue("response_format"))
		require.Equal(t, []string{"word", "segment"}, r.MultipartForm.Value["timestamp_granularities[]"])

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "clip_audio.wav", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"text": " ♪ مرحبا   [Music] بالعالم ♫ ",
			"duration": 4.0,
			"words": [
				{"word": " مرحبا ", "start": 0.0, "end": 0.8, "probability": 0.95},
				{"word": "بالعالم", "start": 1.0, "end": 1.6},
				{"word": "شكرا", "start": 3.0, "end": 3.5},
				{"word": "  ", "start": 3.5, "end": 3.8, "probability": 0.9},
				{"word": "معطوب", "start": 3.9, "end": 3.9, "probability": 0.9}
			],
			"segments": [
				{"start": 0.5, "end": 1.5, "avg_logprob": -0.2}
			]
		}`))
	}))
	defer server.Close()

	client := NewWhisperClient(server.URL, "test-key", 5*time.Second)
	result, err := client.Transcribe(context.Background(), writeTempAudio(t))
	require.NoError(t, err)

	require.Equal(t, "Bearer test-key", gotAuth)
	require.Equal(t, "مرحبا بالعالم", result.Text)
	require.Equal(t, "ar", result.Language)

	// the blank word and the zero-length word are dropped
	require.Len(t, result.Words, 3)
	require.Equal(t, "مرحبا", result.Words[0].Word)
	require.Equal(t, 0.0, result.Words[0].StartTime)
	require.Equal(t, 0.8, result.Words[0].EndTime)
	require.Equal(t, 0.95, result.Words[0].Confidence)

	// no word probability, so the covering segment's avg_logprob applies
	require.InDelta(t, math.Exp(-0.2), result.Words[1].Confidence, 1e-9)

	// no probability and no covering segment
	require.Equal(t, 0.8, result.Words[2].Confidence)

	wantOverall := (0.95 + math.Exp(-0.2) + 0.8) / 3
	require.InDelta(t, wantOverall, result.Confidence, 1e-9)
}

func TestWhisperClientNoWords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "", "duration": 1.0, "words": [], "segments": []}`))
	}))
	defer server.Close()

	client := NewWhisperClient(server.URL, "test-key", 5*time.Second)
	result, err := client.Transcribe(context.Background(), writeTempAudio(t))
	require.NoError(t, err)
	require.Empty(t, result.Words)
	require.Equal(t, 0.0, result.Confidence)
}

func TestWhisperClientAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewWhisperClient(server.URL, "test-key", 5*time.Second)
	_, err := client.Transcribe(context.Background(), writeTempAudio(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
}

func TestWhisperClientMissingKey(t *testing.T) {
	t.Parallel()

	client := NewWhisperClient("http://localhost:0", "", 5*time.Second)
	_, err := client.Transcribe(context.Background(), "nonexistent.wav")
	require.Error(t, err)
	require.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestWordConfidenceClamping(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1.0, wordConfidence(whisperWord{Probability: floatPtr(1.4)}, nil))
	require.Equal(t, 0.0, wordConfidence(whisperWord{Probability: floatPtr(-0.3)}, nil))

	// exp(avg_logprob) floors at 0.1 for very uncertain segments
	seg := &whisperSegment{AvgLogprob: floatPtr(-8.0)}
	require.Equal(t, 0.1, wordConfidence(whisperWord{}, seg))

	seg = &whisperSegment{AvgLogprob: floatPtr(0.5)}
	require.Equal(t, 1.0, wordConfidence(whisperWord{}, seg))
}

func TestCleanText(t *testing.T) {
	t.Parallel()

	require.Equal(t, "مرحبا بالعالم", cleanText("  مرحبا \n\t بالعالم  "))
	require.Equal(t, "كلام", cleanText("♪ كلام [Applause] ♬"))
	require.Equal(t, "", cleanText("[Music] [Laughter]"))
}
