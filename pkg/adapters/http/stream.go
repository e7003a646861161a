package http

import (
	"log/slog"
	"sync"

	"github.com/aretw0/espalier/internal/logging"
)

// StreamManager fans scene diffs out to SSE subscribers, keyed by scene id.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{}
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logging.NewNop(),
	}
}

// Subscribe registers a buffered channel for sceneID. The returned func
// unregisters and closes it.
func (sm *StreamManager) Subscribe(sceneID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[sceneID]; !ok {
		sm.subscribers[sceneID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[sceneID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[sceneID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(sm.subscribers, sceneID)
				}
			}
			close(ch)
		})
	}
}

// Subscribers returns the number of live subscriptions on sceneID.
func (sm *StreamManager) Subscribers(sceneID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sceneID])
}

func (sm *StreamManager) Broadcast(sceneID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sceneID] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: client buffer full, dropping message", "scene_id", sceneID)
		}
	}
}
