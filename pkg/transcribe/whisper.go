package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sawtfeel/pkg/models"
)

const requestLanguage = "ar"

// WhisperClient transcribes Arabic speech through the OpenAI
// transcription endpoint.
type WhisperClient struct {
	url    string
	apiKey string
	client *http.Client
}

func NewWhisperClient(url, apiKey string, timeout time.Duration) *WhisperClient {
	return &WhisperClient{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

type whisperWord struct {
	Word        string   `json:"word"`
	Start       float64  `json:"start"`
	End         float64  `json:"end"`
	Probability *float64 `json:"probability"`
}

type whisperSegment struct {
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	AvgLogprob *float64 `json:"avg_logprob"`
}

type whisperResponse struct {
	Text     string           `json:"text"`
	Duration float64          `json:"duration"`
	Words    []whisperWord    `json:"words"`
	Segments []whisperSegment `json:"segments"`
}

func (c *WhisperClient) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	fileWriter, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(fileWriter, file); err != nil {
		return nil, fmt.Errorf("failed to copy audio data: %w", err)
	}

	writer.WriteField("model", "whisper-1")
	writer.WriteField("language", requestLanguage)
	writer.WriteField("response_format", "verbose_json")
	writer.WriteField("timestamp_granularities[]", "word")
	writer.WriteField("timestamp_granularities[]", "segment")
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("transcription API error %d: %s", resp.StatusCode, body)
	}

	var parsed whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode transcription response: %w", err)
	}

	return buildResult(&parsed), nil
}

func buildResult(resp *whisperResponse) *Result {
	var words []models.WordSegment
	var confidenceSum float64

	for _, w := range resp.Words {
		text := strings.TrimSpace(w.Word)
		if text == "" || w.End <= w.Start {
			continue
		}

		confidence := wordConfidence(w, coveringSegment(resp.Segments, w.Start))
		words = append(words, models.WordSegment{
			Word:       text,
			StartTime:  w.Start,
			EndTime:    w.End,
			Confidence: confidence,
		})
		confidenceSum += confidence
	}

	overall := 0.0
	if len(words) > 0 {
		overall = confidenceSum / float64(len(words))
	}

	return &Result{
		Text:       cleanText(resp.Text),
		Language:   normalizeLanguage(requestLanguage),
		Words:      words,
		Confidence: overall,
	}
}

// wordConfidence prefers a word-level probability, then the covering
// segment's average log probability, then a fixed default.
func wordConfidence(w whisperWord, seg *whisperSegment) float64 {
	if w.Probability != nil {
		return math.Min(1.0, math.Max(0.0, *w.Probability))
	}
	if seg != nil && seg.AvgLogprob != nil {
		return math.Min(1.0, math.Max(0.1, math.Exp(*seg.AvgLogprob)))
	}
	return 0.8
}

func coveringSegment(segments []whisperSegment, at float64) *whisperSegment {
	for i := range segments {
		if segments[i].Start <= at && at <= segments[i].End {
			return &segments[i]
		}
	}
	return nil
}

var transcriptionArtifacts = []string{"♪", "♫", "♩", "♬", "[Music]", "[Applause]", "[Laughter]"}

func cleanText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	for _, artifact := range transcriptionArtifacts {
		text = strings.ReplaceAll(text, artifact, "")
	}
	return strings.TrimSpace(text)
}

func normalizeLanguage(language string) string {
	if strings.HasPrefix(strings.ToLower(language), "ar") {
		return strings.ToLower(language)
	}
	return "ar"
}
