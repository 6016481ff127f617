package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGoogleTranslatorTranslate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "gtx", q.Get("client"))
		require.Equal(t, "ar", q.Get("sl"))
		require.Equal(t, "en", q.Get("tl"))
		require.Equal(t, "t", q.Get("dt"))
		require.Equal(t, "مرحبا بالعالم", q.Get("q"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[[["Hello ","مرحبا",null,null,10],["world","بالعالم",null,null,10]],null,"ar"]`))
	}))
	defer server.Close()

	translator := NewGoogleTranslator(server.URL, 5*time.Second)
	got, err := translator.Translate(context.Background(), "مرحبا بالعالم")
	require.NoError(t, err)
	require.Equal(t, "Hello world", got)
}

func TestGoogleTranslatorEmptyInput(t *testing.T) {
	t.Parallel()

	translator := NewGoogleTranslator("http://localhost:0", 5*time.Second)
	got, err := translator.Translate(context.Background(), "   ")
	require.NoError(t, err)
	require.Equal(t, "", got)
}

func TestGoogleTranslatorRepetitiveText(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[[["or","او",null,null,10]],null,"ar"]`))
	}))
	defer server.Close()

	translator := NewGoogleTranslator(server.URL, 5*time.Second)
	got, err := translator.Translate(context.Background(), "او او او او او او")
	require.NoError(t, err)

	// only the dominant word goes over the wire, then repeats
	require.Equal(t, "او", gotQuery)
	require.Equal(t, "or or or or or or", got)
}

func TestGoogleTranslatorFallsBackToOriginal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	translator := NewGoogleTranslator(server.URL, 5*time.Second)
	got, err := translator.Translate(context.Background(), "نص غريب")
	require.NoError(t, err)
	require.Equal(t, "نص غريب", got)
}

func TestGoogleTranslatorAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	translator := NewGoogleTranslator(server.URL, 5*time.Second)
	_, err := translator.Translate(context.Background(), "مرحبا")
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestJoinTranslation(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", joinTranslation(nil))
	require.Equal(t, "", joinTranslation([]interface{}{"not-a-list"}))
	require.Equal(t, "ab", joinTranslation([]interface{}{
		[]interface{}{
			[]interface{}{"a", "x"},
			[]interface{}{"b", "y"},
		},
	}))
}

func TestDominantWord(t *testing.T) {
	t.Parallel()

	word, count := dominantWord(strings.Fields("او او او لا"))
	require.Equal(t, "او", word)
	require.Equal(t, 3, count)
}
