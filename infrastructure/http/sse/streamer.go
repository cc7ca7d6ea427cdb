package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tripdesk/tripdesk/domain/entity"
	"github.com/tripdesk/tripdesk/infrastructure/service/logger"
)

const clientBuffer = 32

// Streamer pushes notifications to the recipients' open event streams. It is
// registered as the "stream" notification channel.
type Streamer struct {
	mu        sync.RWMutex
	clients   map[string]map[string]*Client
	heartbeat time.Duration
	logger    logger.Logger
}

// Client is one open stream of a recipient.
type Client struct {
	ID        string
	Recipient string
	Channel   chan []byte
}

// Event is the payload of every data line.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
	Time int64       `json:"time"`
}

func NewStreamer(heartbeat time.Duration, log logger.Logger) *Streamer {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Streamer{
		clients:   make(map[string]map[string]*Client),
		heartbeat: heartbeat,
		logger:    log,
	}
}

func (s *Streamer) Name() string { return "stream" }

// Deliver sends n to every open stream of its recipient. A client whose buffer
// is full misses the event; the inbox still has it.
func (s *Streamer) Deliver(ctx context.Context, n *entity.Notification) error {
	message, err := json.Marshal(Event{Type: string(n.Kind), Data: n, Time: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, client := range s.clients[entity.NormalizeEmail(n.Recipient)] {
		select {
		case client.Channel <- message:
		default:
			s.logger.Warn(ctx, "Stream client too slow, event dropped", map[string]interface{}{
				"client_id": client.ID,
				"recipient": client.Recipient,
			})
		}
	}
	return nil
}

// AddClient opens a stream for recipient.
func (s *Streamer) AddClient(recipient string) *Client {
	client := &Client{
		ID:        uuid.NewString(),
		Recipient: entity.NormalizeEmail(recipient),
		Channel:   make(chan []byte, clientBuffer),
	}
	s.mu.Lock()
	if s.clients[client.Recipient] == nil {
		s.clients[client.Recipient] = make(map[string]*Client)
	}
	s.clients[client.Recipient][client.ID] = client
	s.mu.Unlock()
	return client
}

func (s *Streamer) RemoveClient(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	streams := s.clients[client.Recipient]
	if _, ok := streams[client.ID]; !ok {
		return
	}
	delete(streams, client.ID)
	if len(streams) == 0 {
		delete(s.clients, client.Recipient)
	}
}

// ClientCount returns the number of open streams.
func (s *Streamer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, streams := range s.clients {
		n += len(streams)
	}
	return n
}

// HandleSSE streams recipient's notifications until the request ends.
func (s *Streamer) HandleSSE(w http.ResponseWriter, r *http.Request, recipient string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// the server write timeout would otherwise end every stream
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	client := s.AddClient(recipient)
	defer s.RemoveClient(client)

	if err := writeEvent(w, "connected", map[string]interface{}{"client_id": client.ID}); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case message := <-client.Channel:
			var event Event
			_ = json.Unmarshal(message, &event)
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, message); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, eventType string, data interface{}) error {
	message, err := json.Marshal(Event{Type: eventType, Data: data, Time: time.Now().Unix()})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, message)
	return err
}
