package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// GoogleTranslator calls the unofficial translate_a/single endpoint to
// render Arabic text in English.
type GoogleTranslator struct {
	url    string
	client *http.Client
}

func NewGoogleTranslator(url string, timeout time.Duration) *GoogleTranslator {
	return &GoogleTranslator{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (g *GoogleTranslator) Translate(ctx context.Context, text string) (string, error) {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return "", nil
	}

	// Transcripts of stalling speech repeat one filler word many times.
	// Translating a single instance and repeating it keeps the request
	// small and the word alignment intact.
	words := strings.Fields(clean)
	if len(words) > 5 {
		if common, count := dominantWord(words); float64(count) >= float64(len(words))*0.9 {
			translated, err := g.request(ctx, common)
			if err != nil {
				return "", err
			}
			if translated == "" {
				return clean, nil
			}
			repeated := make([]string, len(words))
			for i := range repeated {
				repeated[i] = translated
			}
			return strings.Join(repeated, " "), nil
		}
	}

	translated, err := g.request(ctx, clean)
	if err != nil {
		return "", err
	}
	if translated == "" || translated == clean {
		return clean, nil
	}
	return translated, nil
}

func (g *GoogleTranslator) request(ctx context.Context, text string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	q := req.URL.Query()
	q.Set("client", "gtx")
	q.Set("sl", "ar")
	q.Set("tl", "en")
	q.Set("dt", "t")
	q.Set("q", text)
	req.URL.RawQuery = q.Encode()

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translation API error %d", resp.StatusCode)
	}

	var result []interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode translation response: %w", err)
	}

	return joinTranslation(result), nil
}

// joinTranslation flattens the translate_a/single layout, which nests
// translated sentence chunks as [[["chunk","source",...],...],...].
func joinTranslation(result []interface{}) string {
	if len(result) == 0 {
		return ""
	}
	parts, ok := result[0].([]interface{})
	if !ok {
		return ""
	}

	var sb strings.Builder
	for _, part := range parts {
		chunk, ok := part.([]interface{})
		if !ok || len(chunk) == 0 {
			continue
		}
		if s, ok := chunk[0].(string); ok {
			sb.WriteString(s)
		}
	}
	return strings.TrimSpace(sb.String())
}

func dominantWord(words []string) (string, int) {
	counts := make(map[string]int, len(words))
	best, bestCount := "", 0
	for _, w := range words {
		counts[w]++
		if counts[w] > bestCount {
			best, bestCount = w, counts[w]
		}
	}
	return best, bestCount
}
