package channels

import (
	"context"
	"log/slog"
	"sync"

	"zktrials/internal/events"
)

// RoomManager is the per-room broadcaster: events from the coordinator and
// handlers go through its queue and fan out to every subscribed client.
type RoomManager struct {
	RoomID string
	Events chan events.SseEvent

	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]chan<- events.SseEvent

	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

func NewRoomManager(roomID string, logger *slog.Logger) *RoomManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &RoomManager{
		RoomID:    roomID,
		Events:    make(chan events.SseEvent, 16),
		listeners: make(map[uint64]chan<- events.SseEvent),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
	}
}

func (rm *RoomManager) Start() {
	for {
		select {
		case <-rm.ctx.Done():
			return
		case ev := <-rm.Events:
			rm.dispatch(ev)
			// The deletion notice is the last event a room ever sends.
			if ev.EventType == events.ROOM_DELETED {
				rm.cancel()
				return
			}
		}
	}
}

func (rm *RoomManager) Publish(ev events.SseEvent) {
	select {
	case rm.Events <- ev:
	case <-rm.ctx.Done():
	}
}

// Subscribe registers a listener channel under a fresh connection id, so a
// wallet opening several streams gets one channel each. The returned cancel
// detaches only this connection. The channel is buffered; slow clients drop
// events instead of stalling the room.
func (rm *RoomManager) Subscribe() (<-chan events.SseEvent, func()) {
	listen := make(chan events.SseEvent, 8)
	rm.mu.Lock()
	rm.nextID++
	id := rm.nextID
	rm.listeners[id] = listen
	rm.mu.Unlock()

	cancel := func() {
		rm.mu.Lock()
		delete(rm.listeners, id)
		rm.mu.Unlock()
	}
	return listen, cancel
}

func (rm *RoomManager) dispatch(ev events.SseEvent) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	for id, listener := range rm.listeners {
		select {
		case listener <- ev:
		default:
			rm.logger.Warn("listener buffer full, dropping event",
				"room_id", rm.RoomID, "listener_id", id, "event", ev.EventType)
		}
	}
}

// GlobalRooms holds the RoomManager of every live room.
type GlobalRooms struct {
	mu     sync.RWMutex
	rooms  map[string]*RoomManager
	logger *slog.Logger
}

func NewGlobalRooms(logger *slog.Logger) *GlobalRooms {
	return &GlobalRooms{
		rooms:  make(map[string]*RoomManager),
		logger: logger,
	}
}

func (gr *GlobalRooms) CreateRoom(roomID string) *RoomManager {
	rm := NewRoomManager(roomID, gr.logger)
	gr.mu.Lock()
	gr.rooms[roomID] = rm
	gr.mu.Unlock()

	go rm.Start()
	return rm
}

func (gr *GlobalRooms) GetRoomByID(roomID string) *RoomManager {
	gr.mu.RLock()
	defer gr.mu.RUnlock()
	return gr.rooms[roomID]
}

// Remove tears down a room's manager after telling its listeners.
func (gr *GlobalRooms) Remove(roomID string) {
	gr.mu.Lock()
	rm, ok := gr.rooms[roomID]
	delete(gr.rooms, roomID)
	gr.mu.Unlock()

	if ok {
		rm.Publish(events.SseEvent{
			EventType: events.ROOM_DELETED,
			Data:      events.RoomDeleted{RoomID: roomID},
		})
	}
}

// RoomEvent implements game.Notifier. Events for rooms without a manager
// are dropped.
func (gr *GlobalRooms) RoomEvent(roomID string, ev events.SseEvent) {
	rm := gr.GetRoomByID(roomID)
	if rm == nil {
		return
	}
	rm.Publish(ev)
}
