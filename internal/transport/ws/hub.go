package ws

import (
	"context"
	"sync"

	"github.com/cwrk-planet/lobby-service/pkg/logger"
)

// Conn - подписчик хаба. Send не должен блокировать: медленный
// подписчик теряет события или отключается сам.
type Conn interface {
	Send(msg any) error
	Close() error
	Topic() string
}

// Hub - локальные подписчики по топикам (room:{code}).
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[Conn]struct{} // topic -> set of connections
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[Conn]struct{})}
}

func (h *Hub) Add(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.topics[c.Topic()]
	if !ok {
		set = make(map[Conn]struct{})
		h.topics[c.Topic()] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) Remove(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.topics[c.Topic()]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.topics, c.Topic())
		}
	}
}

// Publish раздаёт msg в очереди подписчиков топика; best-effort, ошибки
// отдельных соединений не возвращаются.
func (h *Hub) Publish(ctx context.Context, topic string, msg any) error {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.topics[topic]))
	for c := range h.topics[topic] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.Send(msg); err != nil {
			logger.FromContext(ctx).DebugContext(ctx, "ws send failed", "topic", topic, logger.Err(err))
		}
	}
	return nil
}

// Subscribers - число соединений на топике.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
