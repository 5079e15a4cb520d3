package server

import (
	"context"
	"sync"

	"github.com/viccstake/tilez/internal/gamerepo"
	pubevts "github.com/viccstake/tilez/pkg/events"
)

var _ publisher = &publisherMock{}

type publisherMock struct {
	mu                     sync.Mutex
	gameStartedCalled      bool
	gameEndedCalled        bool
	startedEvents          []pubevts.GameStartedEvent
	endedEvents            []pubevts.GameEndedEvent
	publishGameStartedFunc func(ctx context.Context, event pubevts.GameStartedEvent) error
	publishGameEndedFunc   func(ctx context.Context, event pubevts.GameEndedEvent) error
}

func (m *publisherMock) PublishGameStarted(ctx context.Context, event pubevts.GameStartedEvent) error {
	m.mu.Lock()
	m.gameStartedCalled = true
	m.startedEvents = append(m.startedEvents, event)
	m.mu.Unlock()

	if m.publishGameStartedFunc != nil {
		return m.publishGameStartedFunc(ctx, event)
	}
	return nil
}

func (m *publisherMock) PublishGameEnded(ctx context.Context, event pubevts.GameEndedEvent) error {
	m.mu.Lock()
	m.gameEndedCalled = true
	m.endedEvents = append(m.endedEvents, event)
	m.mu.Unlock()

	if m.publishGameEndedFunc != nil {
		return m.publishGameEndedFunc(ctx, event)
	}
	return nil
}

func (m *publisherMock) started() []pubevts.GameStartedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pubevts.GameStartedEvent(nil), m.startedEvents...)
}

func (m *publisherMock) ended() []pubevts.GameEndedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pubevts.GameEndedEvent(nil), m.endedEvents...)
}

var _ repository = &repoMock{}

type repoMock struct {
	mu               sync.Mutex
	storeGameCalled  bool
	removeGameCalled bool
	stored           []*gamerepo.Game
	removed          []string
	storeGameFunc    func(ctx context.Context, g *gamerepo.Game) error
	removeGameFunc   func(ctx context.Context, gameID string) error
}

func (m *repoMock) StoreGame(ctx context.Context, g *gamerepo.Game) error {
	m.mu.Lock()
	m.storeGameCalled = true
	m.stored = append(m.stored, g)
	m.mu.Unlock()

	if m.storeGameFunc != nil {
		return m.storeGameFunc(ctx, g)
	}
	return nil
}

func (m *repoMock) RemoveGame(ctx context.Context, gameID string) error {
	m.mu.Lock()
	m.removeGameCalled = true
	m.removed = append(m.removed, gameID)
	m.mu.Unlock()

	if m.removeGameFunc != nil {
		return m.removeGameFunc(ctx, gameID)
	}
	return nil
}

func (m *repoMock) storedGames() []*gamerepo.Game {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*gamerepo.Game(nil), m.stored...)
}

func (m *repoMock) removedGames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.removed...)
}
