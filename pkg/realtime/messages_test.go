package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageWireShape(t *testing.T) {
	t.Parallel()

	// zero and negative values must survive to the wire
	data, err := json.Marshal(TranscriptUpdateMessage("file-1", 0.0, "...", -1))
	require.NoError(t, err)
	require.Contains(t, string(data), `"word_index":-1`)
	require.Contains(t, string(data), `"current_time":0`)
	require.Contains(t, string(data), `"current_word":"..."`)

	data, err = json.Marshal(TimeUpdateMessage("file-1", 0.0, false))
	require.NoError(t, err)
	require.Contains(t, string(data), `"is_playing":false`)

	// control messages stay minimal
	data, err = json.Marshal(PlayMessage("file-1"))
	require.NoError(t, err)
	require.NotContains(t, string(data), "current_time")
	require.NotContains(t, string(data), "progress")
	require.Contains(t, string(data), `"type":"play"`)
}
