package liveclient

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	apperrors "github.com/NgouanKoffi/fullmargin-live/internal/errors"
	"github.com/NgouanKoffi/fullmargin-live/internal/model"
	"github.com/NgouanKoffi/fullmargin-live/internal/util"
)

// Engine abstracts the external conferencing library once loaded.
type Engine interface {
	Join(ctx context.Context, opts RoomOptions) (Room, error)
}

// Room is one joined conference. Implementations must tolerate Close being
// called more than once.
type Room interface {
	// OnConferenceLeft fires when the local participant has left the
	// conference for any reason: self-initiated, kicked, network drop.
	OnConferenceLeft(fn func(reason string))
	// OnReadyToClose fires when the engine confirms teardown.
	OnReadyToClose(fn func())
	Close() error
}

type RoomOptions struct {
	Room        string
	Token       string
	DisplayName string
}

// LoadFunc performs the actual one-time engine load (script injection in
// the original environment).
type LoadFunc func(ctx context.Context) (Engine, error)

// EngineLoader loads the conferencing engine at most once per process and
// caches the outcome. A failed load is cached too: repeated automatic
// retries could end up with duplicate connections, so the failure is
// surfaced as a persistent room-unavailable state instead.
type EngineLoader struct {
	load   LoadFunc
	once   sync.Once
	engine Engine
	err    error
}

func NewEngineLoader(load LoadFunc) *EngineLoader {
	return &EngineLoader{load: load}
}

func (l *EngineLoader) Load(ctx context.Context) (Engine, error) {
	l.once.Do(func() {
		l.engine, l.err = l.load(ctx)
		if l.err != nil {
			log.Error().Err(l.err).Msg("conferencing engine load failed")
		}
	})
	if l.err != nil {
		return nil, apperrors.Transport("Conference room unavailable", l.err)
	}
	return l.engine, nil
}

// tokenAPI is the slice of Client the adapter needs.
type tokenAPI interface {
	RequestToken(ctx context.Context, id, displayName string) (*model.JoinGrant, error)
}

// activeRooms tracks which rooms this client session currently holds an
// adapter for. The conferencing connection is exclusively owned by the
// mounted adapter; a second mount for the same room is refused.
var (
	activeMu    sync.Mutex
	activeRooms = make(map[string]*RoomAdapter)
)

// RoomAdapter bridges a LiveSession to the conferencing engine: it fetches
// a fresh token, joins the room, and relays the engine's terminal signals
// into the LeaveGuard.
type RoomAdapter struct {
	loader *EngineLoader
	tokens tokenAPI
	guard  *LeaveGuard

	mu       sync.Mutex
	roomName string
	room     Room
	disposed Latch
}

func NewRoomAdapter(loader *EngineLoader, tokens tokenAPI, guard *LeaveGuard) *RoomAdapter {
	return &RoomAdapter{
		loader: loader,
		tokens: tokens,
		guard:  guard,
	}
}

// Mount joins the session's room. The token is requested here, immediately
// before connecting — never ahead of time, never reused from a previous
// mount.
func (a *RoomAdapter) Mount(ctx context.Context, session model.LiveSession, displayName string) error {
	if session.Status != model.LiveStatusLive {
		return apperrors.NotLive()
	}
	if a.disposed.Fired() {
		return apperrors.Conflict("Adapter already disposed")
	}

	engine, err := a.loader.Load(ctx)
	if err != nil {
		return err
	}

	grant, err := a.tokens.RequestToken(ctx, session.ID, displayName)
	if err != nil {
		return err
	}

	activeMu.Lock()
	if _, taken := activeRooms[grant.Room]; taken {
		activeMu.Unlock()
		return apperrors.Conflict("Room already mounted in this session")
	}
	activeRooms[grant.Room] = a
	activeMu.Unlock()

	room, err := engine.Join(ctx, RoomOptions{
		Room:        grant.Room,
		Token:       grant.Token,
		DisplayName: util.SanitizeDisplayName(displayName),
	})
	if err != nil {
		a.release(grant.Room)
		return apperrors.Transport("Failed to join conference", err)
	}

	a.mu.Lock()
	a.roomName = grant.Room
	a.room = room
	a.mu.Unlock()

	room.OnConferenceLeft(func(reason string) {
		log.Info().Str("room", grant.Room).Str("reason", reason).Msg("conference left")
		a.Dispose()
		if a.guard != nil {
			if err := a.guard.OnTerminal(); err != nil {
				log.Error().Err(err).Str("room", grant.Room).Msg("end call failed after terminal event")
			}
		}
	})
	room.OnReadyToClose(func() {
		a.Dispose()
	})

	log.Info().Str("room", grant.Room).Bool("isOwner", grant.IsOwner).Msg("conference mounted")
	return nil
}

// Dispose tears the connection down. Safe to call any number of times,
// from any trigger path, including on an already-disposed adapter.
func (a *RoomAdapter) Dispose() {
	if !a.disposed.TryFire() {
		return
	}

	a.mu.Lock()
	room := a.room
	roomName := a.roomName
	a.room = nil
	a.mu.Unlock()

	if room != nil {
		if err := room.Close(); err != nil {
			log.Warn().Err(err).Str("room", roomName).Msg("room close failed")
		}
	}
	if roomName != "" {
		a.release(roomName)
	}
}

func (a *RoomAdapter) release(roomName string) {
	activeMu.Lock()
	if activeRooms[roomName] == a {
		delete(activeRooms, roomName)
	}
	activeMu.Unlock()
}
