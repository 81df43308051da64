package liveclient

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/NgouanKoffi/fullmargin-live/internal/errors"
	"github.com/NgouanKoffi/fullmargin-live/internal/model"
)

type fakeRoom struct {
	mu          sync.Mutex
	onLeft      func(reason string)
	onClose     func()
	closedCount int
}

func (r *fakeRoom) OnConferenceLeft(fn func(reason string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onLeft = fn
}

func (r *fakeRoom) OnReadyToClose(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onClose = fn
}

func (r *fakeRoom) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closedCount++
	return nil
}

func (r *fakeRoom) leave(reason string) {
	r.mu.Lock()
	fn := r.onLeft
	r.mu.Unlock()
	if fn != nil {
		fn(reason)
	}
}

type fakeEngine struct {
	mu       sync.Mutex
	rooms    []*fakeRoom
	joinErr  error
	lastOpts RoomOptions
}

func (e *fakeEngine) Join(ctx context.Context, opts RoomOptions) (Room, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastOpts = opts
	if e.joinErr != nil {
		return nil, e.joinErr
	}
	room := &fakeRoom{}
	e.rooms = append(e.rooms, room)
	return room, nil
}

type fakeTokenAPI struct {
	mu     sync.Mutex
	calls  int
	room   string
	err    error
	tokens []string
}

func (f *fakeTokenAPI) RequestToken(ctx context.Context, id, displayName string) (*model.JoinGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.calls++
	token := "tok-" + id
	if f.calls > 1 {
		token = token + "-again"
	}
	f.tokens = append(f.tokens, token)
	return &model.JoinGrant{Token: token, Room: f.room, IsOwner: false}, nil
}

func liveSession(id, room string) model.LiveSession {
	return model.LiveSession{ID: id, CommunityID: "c1", Status: model.LiveStatusLive, RoomName: room}
}

func assertAppCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestEngineLoader(t *testing.T) {
	t.Run("loads at most once", func(t *testing.T) {
		loads := 0
		engine := &fakeEngine{}
		loader := NewEngineLoader(func(ctx context.Context) (Engine, error) {
			loads++
			return engine, nil
		})

		for i := 0; i < 3; i++ {
			got, err := loader.Load(context.Background())
			require.NoError(t, err)
			assert.Same(t, engine, got.(*fakeEngine))
		}
		assert.Equal(t, 1, loads)
	})

	t.Run("failed load stays failed", func(t *testing.T) {
		loads := 0
		loader := NewEngineLoader(func(ctx context.Context) (Engine, error) {
			loads++
			return nil, errors.New("script blocked")
		})

		_, err := loader.Load(context.Background())
		assertAppCode(t, err, apperrors.ErrCodeTransport)

		// No automatic retry: a second attempt reports the same failure
		// without invoking the load function again.
		_, err = loader.Load(context.Background())
		assertAppCode(t, err, apperrors.ErrCodeTransport)
		assert.Equal(t, 1, loads)
	})

	t.Run("concurrent loads share the single attempt", func(t *testing.T) {
		var mu sync.Mutex
		loads := 0
		loader := NewEngineLoader(func(ctx context.Context) (Engine, error) {
			mu.Lock()
			loads++
			mu.Unlock()
			return &fakeEngine{}, nil
		})

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := loader.Load(context.Background())
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, loads)
	})
}

func TestRoomAdapterMount(t *testing.T) {
	newLoader := func(engine *fakeEngine) *EngineLoader {
		return NewEngineLoader(func(ctx context.Context) (Engine, error) {
			return engine, nil
		})
	}

	t.Run("refuses a session that is not live", func(t *testing.T) {
		adapter := NewRoomAdapter(newLoader(&fakeEngine{}), &fakeTokenAPI{room: "fm-a"}, nil)

		scheduled := liveSession("l1", "fm-a")
		scheduled.Status = model.LiveStatusScheduled

		err := adapter.Mount(context.Background(), scheduled, "Alice")
		assertAppCode(t, err, apperrors.ErrCodeNotLive)
	})

	t.Run("requests a fresh token on every mount", func(t *testing.T) {
		engine := &fakeEngine{}
		tokens := &fakeTokenAPI{room: "fm-fresh"}

		first := NewRoomAdapter(newLoader(engine), tokens, nil)
		require.NoError(t, first.Mount(context.Background(), liveSession("l1", "fm-fresh"), "Alice"))
		first.Dispose()

		second := NewRoomAdapter(newLoader(engine), tokens, nil)
		require.NoError(t, second.Mount(context.Background(), liveSession("l1", "fm-fresh"), "Alice"))
		defer second.Dispose()

		require.Equal(t, 2, tokens.calls)
		assert.NotEqual(t, tokens.tokens[0], tokens.tokens[1])
		assert.Equal(t, tokens.tokens[1], engine.lastOpts.Token)
	})

	t.Run("second mount for the same room is refused", func(t *testing.T) {
		engine := &fakeEngine{}
		tokens := &fakeTokenAPI{room: "fm-taken"}

		first := NewRoomAdapter(newLoader(engine), tokens, nil)
		require.NoError(t, first.Mount(context.Background(), liveSession("l1", "fm-taken"), "Alice"))
		defer first.Dispose()

		second := NewRoomAdapter(newLoader(engine), tokens, nil)
		err := second.Mount(context.Background(), liveSession("l1", "fm-taken"), "Bob")
		assertAppCode(t, err, apperrors.ErrCodeConflict)
	})

	t.Run("room is released after dispose", func(t *testing.T) {
		engine := &fakeEngine{}
		tokens := &fakeTokenAPI{room: "fm-release"}

		first := NewRoomAdapter(newLoader(engine), tokens, nil)
		require.NoError(t, first.Mount(context.Background(), liveSession("l1", "fm-release"), "Alice"))
		first.Dispose()

		second := NewRoomAdapter(newLoader(engine), tokens, nil)
		require.NoError(t, second.Mount(context.Background(), liveSession("l1", "fm-release"), "Bob"))
		second.Dispose()
	})

	t.Run("join failure releases the room registration", func(t *testing.T) {
		engine := &fakeEngine{joinErr: errors.New("ICE failed")}
		tokens := &fakeTokenAPI{room: "fm-broken"}

		adapter := NewRoomAdapter(newLoader(engine), tokens, nil)
		err := adapter.Mount(context.Background(), liveSession("l1", "fm-broken"), "Alice")
		assertAppCode(t, err, apperrors.ErrCodeTransport)

		engine.joinErr = nil
		retry := NewRoomAdapter(newLoader(engine), tokens, nil)
		require.NoError(t, retry.Mount(context.Background(), liveSession("l1", "fm-broken"), "Alice"))
		retry.Dispose()
	})

	t.Run("disposed adapter cannot be remounted", func(t *testing.T) {
		engine := &fakeEngine{}
		tokens := &fakeTokenAPI{room: "fm-once"}

		adapter := NewRoomAdapter(newLoader(engine), tokens, nil)
		require.NoError(t, adapter.Mount(context.Background(), liveSession("l1", "fm-once"), "Alice"))
		adapter.Dispose()

		err := adapter.Mount(context.Background(), liveSession("l1", "fm-once"), "Alice")
		assertAppCode(t, err, apperrors.ErrCodeConflict)
	})

	t.Run("display name is sanitized before the engine sees it", func(t *testing.T) {
		engine := &fakeEngine{}
		tokens := &fakeTokenAPI{room: "fm-name"}

		adapter := NewRoomAdapter(newLoader(engine), tokens, nil)
		require.NoError(t, adapter.Mount(context.Background(), liveSession("l1", "fm-name"), "  Jérôme\x00  "))
		defer adapter.Dispose()

		assert.Equal(t, "Jerome", engine.lastOpts.DisplayName)
	})
}

func TestRoomAdapterTerminalEvents(t *testing.T) {
	newLoader := func(engine *fakeEngine) *EngineLoader {
		return NewEngineLoader(func(ctx context.Context) (Engine, error) {
			return engine, nil
		})
	}

	t.Run("conference-left fires the guard exactly once", func(t *testing.T) {
		engine := &fakeEngine{}
		tokens := &fakeTokenAPI{room: "fm-term"}

		navs := 0
		guard := NewLeaveGuard(false, nil, func() { navs++ })
		adapter := NewRoomAdapter(newLoader(engine), tokens, guard)
		require.NoError(t, adapter.Mount(context.Background(), liveSession("l1", "fm-term"), "Alice"))

		room := engine.rooms[0]
		room.leave("kicked")
		room.leave("kicked")

		assert.Equal(t, 1, navs)
		assert.Equal(t, 1, room.closedCount, "room closed once despite repeat events")
	})

	t.Run("owner end intent runs the end call on conference-left", func(t *testing.T) {
		engine := &fakeEngine{}
		tokens := &fakeTokenAPI{room: "fm-end"}

		ends, navs := 0, 0
		guard := NewLeaveGuard(true, func() error { ends++; return nil }, func() { navs++ })
		adapter := NewRoomAdapter(newLoader(engine), tokens, guard)
		require.NoError(t, adapter.Mount(context.Background(), liveSession("l1", "fm-end"), "Owner"))

		guard.SetIntent(IntentEndForAll)
		engine.rooms[0].leave("left")

		assert.Equal(t, 1, ends)
		assert.Equal(t, 1, navs)
	})

	t.Run("dispose is idempotent", func(t *testing.T) {
		engine := &fakeEngine{}
		tokens := &fakeTokenAPI{room: "fm-dispose"}

		adapter := NewRoomAdapter(newLoader(engine), tokens, nil)
		require.NoError(t, adapter.Mount(context.Background(), liveSession("l1", "fm-dispose"), "Alice"))

		adapter.Dispose()
		adapter.Dispose()
		assert.Equal(t, 1, engine.rooms[0].closedCount)
	})
}
