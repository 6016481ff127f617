package emotion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"sawtfeel/pkg/models"
)

// sentimentEmotions maps classifier output labels onto the fixed
// emotion set. Sentiment polarity collapses to joy/sadness; emotion
// model labels pass through. Lookup is case-insensitive.
var sentimentEmotions = map[string]models.EmotionLabel{
	"positive": models.EmotionJoy,
	"negative": models.EmotionSadness,
	"neutral":  models.EmotionNeutral,
	"anger":    models.EmotionAnger,
	"fear":     models.EmotionFear,
	"joy":      models.EmotionJoy,
	"sadness":  models.EmotionSadness,
	"surprise": models.EmotionSurprise,
}

// HFClassifier scores Arabic text through a HuggingFace Inference API
// text-classification model.
type HFClassifier struct {
	url    string
	token  string
	client *http.Client
}

func NewHFClassifier(url, token string, timeout time.Duration) *HFClassifier {
	return &HFClassifier{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

type hfLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (c *HFClassifier) ClassifyText(ctx context.Context, text string) (models.EmotionLabel, float64, error) {
	payload, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return "", 0, fmt.Errorf("failed to encode classification request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("sentiment request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", 0, fmt.Errorf("sentiment API error %d: %s", resp.StatusCode, body)
	}

	var parsed [][]hfLabel
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", 0, fmt.Errorf("failed to decode sentiment response: %w", err)
	}
	if len(parsed) == 0 || len(parsed[0]) == 0 {
		return models.EmotionNeutral, 0.5, nil
	}

	top := parsed[0][0]
	for _, candidate := range parsed[0][1:] {
		if candidate.Score > top.Score {
			top = candidate
		}
	}

	label, ok := sentimentEmotions[strings.ToLower(top.Label)]
	if !ok {
		label = models.EmotionNeutral
	}
	return label, math.Min(1.0, math.Max(0.1, top.Score)), nil
}
