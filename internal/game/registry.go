package game

import (
	"log/slog"
	"sync"
)

// Registry maps room names to room state and grants exclusive access to
// it. Rooms are created lazily on first use and live for the life of the
// process.
type Registry struct {
	logger *slog.Logger
	text   string

	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRegistry creates a registry whose rooms race on text.
func NewRegistry(text string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger,
		text:   text,
		rooms:  make(map[string]*Room),
	}
}

// WithRoom runs fn with exclusive access to the named room, creating the
// room on first use. Mutations across calls for the same room observe a
// total order.
func (g *Registry) WithRoom(name string, fn func(*Room)) {
	g.mu.Lock()
	defer g.mu.Unlock()

	room, ok := g.rooms[name]
	if !ok {
		room = NewRoom(name, g.text)
		g.rooms[name] = room
		g.logger.Info("room created", "room", name, "text_len", room.TextLen())
	}
	fn(room)
}

// Len returns the number of rooms created so far.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}
