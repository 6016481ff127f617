package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"sawtfeel/pkg/models"
	"sawtfeel/pkg/realtime"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// closeUnknownFile is sent when a websocket names a file id the service
// has never seen.
const closeUnknownFile = 4004

// clientMessage is the client→server envelope for both websocket
// endpoints. Unused fields stay at their zero values.
type clientMessage struct {
	Type        string  `json:"type"`
	CurrentTime float64 `json:"current_time"`
	IsPlaying   bool    `json:"is_playing"`
	Time        float64 `json:"time"`
}

// wsConn adapts a websocket connection to the broadcaster. gorilla
// permits one concurrent writer, so sends serialize on the mutex.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) Send(msg realtime.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

func protocolError(fileID, text string) realtime.Message {
	return realtime.Message{
		Type:      realtime.TypeError,
		FileID:    fileID,
		Error:     text,
		Timestamp: time.Now(),
	}
}

// ProcessingWebSocketHandler streams status transitions for one file.
// Stage updates arrive through the broadcaster as the run progresses.
func (h *Handlers) ProcessingWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["id"]

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if !h.fileKnown(fileID) {
		h.closeNotFound(conn)
		return
	}

	sub := &wsConn{conn: conn}
	h.broadcaster.Subscribe(fileID, sub)
	defer h.broadcaster.Unsubscribe(fileID, sub)

	sub.Send(realtime.ConnectedMessage(fileID, ""))

	// Late joiners get the current state up front, including the
	// terminal message if the run already ended.
	record := h.statusRecordFor(fileID)
	sub.Send(realtime.StatusMessage(record))
	switch record.Status {
	case models.StatusCompleted:
		sub.Send(realtime.CompletedMessage(fileID))
	case models.StatusFailed:
		sub.Send(realtime.ErrorMessage(fileID, record.Error))
	}

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}

		switch msg.Type {
		case realtime.TypePing:
			sub.Send(realtime.PongMessage())
		default:
			sub.Send(protocolError(fileID, "Unknown message type"))
		}
	}
}

// PlaybackWebSocketHandler drives one playback session. Every cursor
// change is rebroadcast to the file's subscribers together with the
// emotion segment and transcript word under the new position.
func (h *Handlers) PlaybackWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["id"]

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if !h.fileKnown(fileID) {
		h.closeNotFound(conn)
		return
	}

	cursor := h.sessions.Create(fileID)
	defer h.sessions.Remove(cursor.SessionID)

	sub := &wsConn{conn: conn}
	h.broadcaster.Subscribe(fileID, sub)
	defer h.broadcaster.Unsubscribe(fileID, sub)

	log.Printf("Playback: session %s connected for %s", cursor.SessionID, fileID)
	sub.Send(realtime.ConnectedMessage(fileID, cursor.SessionID))

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		h.handlePlaybackMessage(fileID, cursor.SessionID, sub, msg)
	}

	log.Printf("Playback: session %s disconnected", cursor.SessionID)
}

func (h *Handlers) handlePlaybackMessage(fileID, sessionID string, sub *wsConn, msg clientMessage) {
	switch msg.Type {
	case realtime.TypeTimeUpdate:
		updated, err := h.sessions.UpdateCursor(sessionID, msg.CurrentTime, msg.IsPlaying, false)
		if err != nil {
			sub.Send(protocolError(fileID, err.Error()))
			return
		}
		h.broadcaster.Broadcast(fileID, realtime.TimeUpdateMessage(fileID, updated.CurrentTime, updated.IsPlaying))
		h.broadcaster.BroadcastCursor(updated)

	case realtime.TypePlay:
		cur, ok := h.sessions.Get(sessionID)
		if !ok {
			return
		}
		updated, err := h.sessions.UpdateCursor(sessionID, cur.CurrentTime, true, false)
		if err != nil {
			sub.Send(protocolError(fileID, err.Error()))
			return
		}
		h.broadcaster.Broadcast(fileID, realtime.PlayMessage(fileID))
		h.broadcaster.BroadcastCursor(updated)

	case realtime.TypePause:
		cur, ok := h.sessions.Get(sessionID)
		if !ok {
			return
		}
		updated, err := h.sessions.UpdateCursor(sessionID, cur.CurrentTime, false, false)
		if err != nil {
			sub.Send(protocolError(fileID, err.Error()))
			return
		}
		h.broadcaster.Broadcast(fileID, realtime.PauseMessage(fileID))
		h.broadcaster.BroadcastCursor(updated)

	case realtime.TypeSeek:
		cur, ok := h.sessions.Get(sessionID)
		if !ok {
			return
		}
		updated, err := h.sessions.UpdateCursor(sessionID, msg.Time, cur.IsPlaying, true)
		if err != nil {
			sub.Send(protocolError(fileID, err.Error()))
			return
		}
		h.broadcaster.Broadcast(fileID, realtime.SeekMessage(fileID, updated.CurrentTime))
		h.broadcaster.BroadcastCursor(updated)

	case realtime.TypePing:
		sub.Send(realtime.PongMessage())

	default:
		sub.Send(protocolError(fileID, "Unknown message type"))
	}
}

// fileKnown reports whether any trace of the file exists: metadata,
// live status or cached artifacts.
func (h *Handlers) fileKnown(fileID string) bool {
	if _, err := h.files.GetMetadata(fileID); err == nil {
		return true
	}
	return h.manager.GetStatus(fileID) != nil
}

func (h *Handlers) statusRecordFor(fileID string) models.ProcessingStatusRecord {
	if record := h.manager.GetStatus(fileID); record != nil {
		return *record
	}

	status := models.StatusUploaded
	if meta, err := h.files.GetMetadata(fileID); err == nil {
		status = meta.Status
	}
	return models.ProcessingStatusRecord{
		FileID:    fileID,
		Status:    status,
		Progress:  fallbackProgress[status],
		Timestamp: time.Now(),
	}
}

func (h *Handlers) closeNotFound(conn *websocket.Conn) {
	deadline := time.Now().Add(time.Second)
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(closeUnknownFile, "File not found"), deadline)
}
