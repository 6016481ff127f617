package realtime

import (
	"log"
	"sync"

	"sawtfeel/pkg/models"
	"sawtfeel/pkg/storage"
)

// Subscriber receives broadcast messages for one file. A Send error
// marks the subscriber dead and it is pruned.
type Subscriber interface {
	Send(msg Message) error
}

// Broadcaster fans messages out to the subscribers of a file. Playback
// ticks re-read the cache on every cursor update rather than keeping an
// index; segment counts per file are small.
type Broadcaster struct {
	mu    sync.RWMutex
	subs  map[string]map[Subscriber]struct{}
	cache storage.SegmentCache
}

func NewBroadcaster(cache storage.SegmentCache) *Broadcaster {
	return &Broadcaster{
		subs:  make(map[string]map[Subscriber]struct{}),
		cache: cache,
	}
}

func (b *Broadcaster) Subscribe(fileID string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[fileID] == nil {
		b.subs[fileID] = make(map[Subscriber]struct{})
	}
	b.subs[fileID][sub] = struct{}{}
}

func (b *Broadcaster) Unsubscribe(fileID string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subs[fileID], sub)
	if len(b.subs[fileID]) == 0 {
		delete(b.subs, fileID)
	}
}

// Broadcast delivers the message to every subscriber of the file,
// best-effort. Failed subscribers are pruned, not fatal to the rest.
func (b *Broadcaster) Broadcast(fileID string, msg Message) {
	b.mu.RLock()
	subs := make([]Subscriber, 0, len(b.subs[fileID]))
	for sub := range b.subs[fileID] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.Send(msg); err != nil {
			log.Printf("Broadcaster: dropping subscriber for %s: %v", fileID, err)
			b.Unsubscribe(fileID, sub)
		}
	}
}

// NotifyStatus pushes a pipeline transition to the file's watchers.
// Terminal transitions are followed by a completed or error message.
func (b *Broadcaster) NotifyStatus(record models.ProcessingStatusRecord) {
	b.Broadcast(record.FileID, ProgressMessage(record))

	switch record.Status {
	case models.StatusCompleted:
		b.Broadcast(record.FileID, CompletedMessage(record.FileID))
	case models.StatusFailed:
		b.Broadcast(record.FileID, ErrorMessage(record.FileID, record.Error))
	}
}

// BroadcastCursor resolves the emotion segment and transcript word at
// the cursor position and pushes them to the file's subscribers.
func (b *Broadcaster) BroadcastCursor(cursor models.PlaybackCursor) {
	b.broadcastEmotion(cursor)
	b.broadcastTranscript(cursor)
}

func (b *Broadcaster) broadcastEmotion(cursor models.PlaybackCursor) {
	var analysis models.EmotionAnalysis
	ok, err := b.cache.Get(cursor.FileID, storage.KindEmotions, &analysis)
	if err != nil {
		log.Printf("Broadcaster: emotion lookup failed for %s: %v", cursor.FileID, err)
		return
	}
	if !ok {
		return
	}

	segment := analysis.SegmentAt(cursor.CurrentTime)
	if segment == nil {
		return
	}
	b.Broadcast(cursor.FileID, EmotionUpdateMessage(cursor.FileID, cursor.CurrentTime, segment))
}

func (b *Broadcaster) broadcastTranscript(cursor models.PlaybackCursor) {
	var transcript models.Transcript
	ok, err := b.cache.Get(cursor.FileID, storage.KindTranscript, &transcript)
	if err != nil {
		log.Printf("Broadcaster: transcript lookup failed for %s: %v", cursor.FileID, err)
		return
	}
	if !ok {
		return
	}

	word, index := "...", -1
	if i := transcript.WordAt(cursor.CurrentTime); i >= 0 {
		word, index = transcript.Words[i].Word, i
	}
	b.Broadcast(cursor.FileID, TranscriptUpdateMessage(cursor.FileID, cursor.CurrentTime, word, index))
}
