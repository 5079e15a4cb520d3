// Package session runs the per-game event loop: two peers, one authoritative
// game state, strict turn alternation. A session starts once both peers are
// connected and ends when either peer's stream fails or closes.
package session

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"

	"github.com/viccstake/tilez/internal/game"
	"github.com/viccstake/tilez/pkg/protocol"
)

// EndReasonDisconnect is the only way a session currently ends; there are no
// timeouts and no in-protocol way to finish a game.
const EndReasonDisconnect = "disconnect"

// Summary describes how a finished session ended.
type Summary struct {
	Moves        int             // accepted moves across both players
	Disconnected game.PlayerSlot // peer whose stream ended the game
	Reason       string
}

// inbound is one line (or terminal read error) produced by a peer.
type inbound struct {
	slot game.PlayerSlot
	line string
	err  error
}

// Session owns both peer connections and the game state for one match.
type Session struct {
	logger *slog.Logger
	peers  [2]net.Conn
	state  *game.State
	moves  int
}

// New wires a session around two already-accepted peer connections.
// Slot 0 is the first peer that connected and always moves first.
func New(logger *slog.Logger, seq uint64, peer0, peer1 net.Conn) *Session {
	return &Session{
		logger: logger.WithGroup("session").With(slog.Uint64("game_seq", seq)),
		peers:  [2]net.Conn{peer0, peer1},
		state:  game.New(),
	}
}

// Run executes the session loop until one peer disconnects, then closes both
// connections and reports how the game ended. It never returns earlier: a
// rejected or unparseable command leaves the loop (and the turn) untouched.
func (s *Session) Run() Summary {
	defer s.peers[0].Close()
	defer s.peers[1].Close()

	// Greet both peers and announce the initial turn order.
	s.send(0, protocol.Ready{PlayerID: 0})
	s.send(0, protocol.YourTurn{})
	s.send(1, protocol.Ready{PlayerID: 1})
	s.send(1, protocol.OpponentTurn{})

	s.logger.Info("Game started")

	// Race both peers: each reader goroutine feeds the same channel, so the
	// loop processes whichever peer produces a line first while the other
	// read stays pending inside its bufio.Scanner, losing nothing.
	done := make(chan struct{})
	defer close(done)

	in := make(chan inbound)
	go s.readLoop(0, in, done)
	go s.readLoop(1, in, done)

	for msg := range in {
		if msg.err != nil {
			return s.terminate(msg.slot)
		}
		if fatal := s.handleLine(msg.slot, msg.line); fatal != nil {
			s.logger.Warn("Broadcast write failed",
				slog.Int("player", int(fatal.slot)), slog.String("error", fatal.err.Error()))
			return s.terminate(fatal.slot)
		}
	}
	panic("unreachable: inbound channel is never closed")
}

// readLoop feeds lines from one peer into the shared channel until the
// stream ends or the session loop is gone.
func (s *Session) readLoop(slot game.PlayerSlot, in chan<- inbound, done <-chan struct{}) {
	scanner := bufio.NewScanner(s.peers[slot])
	for scanner.Scan() {
		select {
		case in <- inbound{slot: slot, line: scanner.Text()}:
		case <-done:
			return
		}
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	select {
	case in <- inbound{slot: slot, err: err}:
	case <-done:
	}
}

// writeFailure marks a peer whose connection broke mid-broadcast.
type writeFailure struct {
	slot game.PlayerSlot
	err  error
}

// handleLine processes one client line. A non-nil return means a broadcast
// write failed and the session must terminate; everything else is handled
// in place.
func (s *Session) handleLine(slot game.PlayerSlot, raw string) *writeFailure {
	line := strings.TrimSpace(raw)
	s.logger.Debug("Client message", slog.Int("player", int(slot)), slog.String("line", line))

	// Out-of-turn input is rejected before it is even parsed.
	if slot != s.state.Turn() {
		s.send(slot, protocol.Error{Reason: game.ErrNotYourTurn.Error()})
		return nil
	}

	cmd, err := protocol.ParseCommand(line)
	if err != nil {
		// The protocol deliberately stays silent on unparseable lines.
		s.logger.Warn("Invalid command",
			slog.Int("player", int(slot)), slog.String("line", line), slog.String("error", err.Error()))
		return nil
	}

	switch c := cmd.(type) {
	case protocol.PlaceCommand:
		err = s.state.Place(slot, c.X, c.Y, c.Radius)
	case protocol.ShootCommand:
		err = s.state.Shoot(slot, c.Index, c.DX, c.DY, c.Force)
	default:
		panic(fmt.Sprintf("session: unhandled command type %T", cmd))
	}
	if err != nil {
		s.send(slot, protocol.Error{Reason: err.Error()})
		return nil
	}

	s.moves++
	return s.broadcast()
}

// broadcast sends OK, the full board, and the turn signals to both peers, in
// that fixed order. Clients rely on the ordering within their own stream.
func (s *Session) broadcast() *writeFailure {
	snapshot := s.state.Snapshot()
	state := protocol.State{Pieces: make([]protocol.Piece, len(snapshot))}
	for i, p := range snapshot {
		state.Pieces[i] = protocol.Piece{Owner: uint8(p.Owner), X: p.X, Y: p.Y, Radius: p.Radius}
	}

	next := s.state.Turn()
	signals := [2]protocol.Event{protocol.OpponentTurn{}, protocol.OpponentTurn{}}
	signals[next] = protocol.YourTurn{}

	// OK reaches both peers before either sees the board, and the turn
	// signals come only after both prior messages are out.
	rounds := [3][2]protocol.Event{
		{protocol.OK{}, protocol.OK{}},
		{state, state},
		{signals[0], signals[1]},
	}
	for _, round := range rounds {
		for _, slot := range [2]game.PlayerSlot{0, 1} {
			if err := s.send(slot, round[slot]); err != nil {
				return &writeFailure{slot: slot, err: err}
			}
		}
	}
	return nil
}

// terminate tells the surviving peer the game is over. The notification is
// best-effort: if that write fails too there is nobody left to inform.
func (s *Session) terminate(gone game.PlayerSlot) Summary {
	s.logger.Info("Player disconnected", slog.Int("player", int(gone)))
	s.send(1-gone, protocol.Disconnected{})
	s.logger.Info("Game ended", slog.Int("moves", s.moves))
	return Summary{Moves: s.moves, Disconnected: gone, Reason: EndReasonDisconnect}
}

func (s *Session) send(slot game.PlayerSlot, ev protocol.Event) error {
	_, err := io.WriteString(s.peers[slot], protocol.Encode(ev)+"\n")
	return err
}
