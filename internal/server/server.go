// Package server owns the listening socket and the bounded pool of game
// slots. It pairs incoming connections strictly FIFO into sessions and
// spawns one goroutine per game; the slot a game holds is released exactly
// once, when that goroutine ends.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/semaphore"

	"github.com/viccstake/tilez/internal/gamerepo"
	"github.com/viccstake/tilez/internal/session"
	pubevts "github.com/viccstake/tilez/pkg/events"
	"github.com/viccstake/tilez/pkg/protocol"
)

const collaboratorTimeout = 5 * time.Second

type publisher interface {
	PublishGameStarted(ctx context.Context, event pubevts.GameStartedEvent) error
	PublishGameEnded(ctx context.Context, event pubevts.GameEndedEvent) error
}

type repository interface {
	StoreGame(ctx context.Context, g *gamerepo.Game) error
	RemoveGame(ctx context.Context, gameID string) error
}

// Server accepts connections and runs game sessions until Shutdown.
type Server struct {
	logger    *slog.Logger
	listener  net.Listener
	slots     *semaphore.Weighted
	publisher publisher
	repo      repository

	gameSeq atomic.Uint64
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a server around an already-bound listener. maxGames bounds how
// many sessions may run concurrently; when every slot is taken, pairing
// stops until a running game ends. publisher and repo may be nil, in which
// case lifecycle events and the live-game registry are disabled.
func New(logger *slog.Logger, listener net.Listener, maxGames int64, pub publisher, repo repository) *Server {
	if maxGames < 1 {
		maxGames = 1
	}
	if pub == nil {
		pub = noopPublisher{}
	}
	if repo == nil {
		repo = noopRepository{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		logger:    logger.WithGroup("server"),
		listener:  listener,
		slots:     semaphore.NewWeighted(maxGames),
		publisher: pub,
		repo:      repo,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Serve runs the accept/pairing loop until Shutdown is called. Each
// iteration first acquires a game slot, then accepts two connections and
// hands them to a session goroutine that owns the slot.
func (s *Server) Serve() error {
	s.logger.Info("Server listening", slog.String("addr", s.listener.Addr().String()))

	for {
		if err := s.slots.Acquire(s.ctx, 1); err != nil {
			// Only Shutdown cancels the context.
			return nil
		}

		seq := s.gameSeq.Add(1)
		s.logger.Debug("Waiting for two players to connect", slog.Uint64("game_seq", seq))

		peer0, err := s.acceptPeer(seq, 0)
		if err != nil {
			s.slots.Release(1)
			if s.closed() {
				return nil
			}
			s.logger.Warn("Accept error", slog.String("error", err.Error()))
			continue
		}

		// The first peer holds while the second slot of the pair fills.
		if _, err := io.WriteString(peer0, protocol.Encode(protocol.Waiting{})+"\n"); err != nil {
			s.logger.Warn("Could not greet first peer", slog.String("error", err.Error()))
		}

		peer1, err := s.acceptPeer(seq, 1)
		if err != nil {
			peer0.Close()
			s.slots.Release(1)
			if s.closed() {
				return nil
			}
			s.logger.Warn("Accept error", slog.String("error", err.Error()))
			continue
		}

		s.spawnGame(seq, peer0, peer1)
	}
}

// Shutdown stops pairing new games and closes the listener. Sessions already
// running are left to finish on their own; Wait blocks on them.
func (s *Server) Shutdown() {
	s.cancel()
	s.listener.Close()
}

// Wait blocks until every running session has terminated.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) acceptPeer(seq uint64, n int) (net.Conn, error) {
	conn, err := s.listener.Accept()
	if err != nil {
		return nil, fmt.Errorf("could not accept peer %d: %w", n, err)
	}
	s.logger.Info("Player connected",
		slog.Uint64("game_seq", seq), slog.Int("player", n), slog.String("addr", conn.RemoteAddr().String()))
	return conn, nil
}

// spawnGame starts the session goroutine. The goroutine owns the acquired
// slot for its whole lifetime and releases it exactly once, on any exit
// path including a panic.
func (s *Server) spawnGame(seq uint64, peer0, peer1 net.Conn) {
	gameID := ulid.Make().String()
	sess := session.New(s.logger, seq, peer0, peer1)
	record := &gamerepo.Game{
		ID:        gameID,
		Seq:       seq,
		Players:   []string{peer0.RemoteAddr().String(), peer1.RemoteAddr().String()},
		StartedAt: time.Now(),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.slots.Release(1)
		defer peer0.Close()
		defer peer1.Close()

		s.registerGame(record)
		summary := sess.Run()
		s.unregisterGame(record, summary)
	}()
}

// registerGame records the new game with the optional collaborators.
// Failures are logged and otherwise ignored: observability must never stall
// or kill a running game.
func (s *Server) registerGame(record *gamerepo.Game) {
	ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
	defer cancel()

	if err := s.repo.StoreGame(ctx, record); err != nil {
		s.logger.Error("Could not store game record", slog.String("game_id", record.ID), slog.String("error", err.Error()))
	}
	err := s.publisher.PublishGameStarted(ctx, pubevts.GameStartedEvent{
		GameID:    record.ID,
		Seq:       record.Seq,
		Players:   record.Players,
		StartedAt: record.StartedAt,
	})
	if err != nil {
		s.logger.Error("Could not publish game started event", slog.String("game_id", record.ID), slog.String("error", err.Error()))
	}
}

func (s *Server) unregisterGame(record *gamerepo.Game, summary session.Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
	defer cancel()

	if err := s.repo.RemoveGame(ctx, record.ID); err != nil {
		s.logger.Error("Could not remove game record", slog.String("game_id", record.ID), slog.String("error", err.Error()))
	}
	err := s.publisher.PublishGameEnded(ctx, pubevts.GameEndedEvent{
		GameID:  record.ID,
		Seq:     record.Seq,
		Moves:   summary.Moves,
		Reason:  summary.Reason,
		EndedAt: time.Now(),
	})
	if err != nil {
		s.logger.Error("Could not publish game ended event", slog.String("game_id", record.ID), slog.String("error", err.Error()))
	}
}

func (s *Server) closed() bool {
	return errors.Is(s.ctx.Err(), context.Canceled)
}

// Noop collaborators used when Redis or RabbitMQ are not configured.

type noopPublisher struct{}

func (noopPublisher) PublishGameStarted(context.Context, pubevts.GameStartedEvent) error { return nil }
func (noopPublisher) PublishGameEnded(context.Context, pubevts.GameEndedEvent) error     { return nil }

type noopRepository struct{}

func (noopRepository) StoreGame(context.Context, *gamerepo.Game) error { return nil }
func (noopRepository) RemoveGame(context.Context, string) error        { return nil }
