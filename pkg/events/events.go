// Package events is the public contract for game lifecycle events published
// by the server. Consumers (dashboards, lobby frontends) bind queues to
// these exchanges; nothing here is part of the client wire protocol.
package events

import "time"

const (
	// Exchanges for different event types
	ExchangeGameStarted = "game.session.started"
	ExchangeGameEnded   = "game.session.ended"

	ContentType = "application/json"
)

// GameStartedEvent is published once both peers of a game are paired.
type GameStartedEvent struct {
	GameID    string    `json:"game_id"`
	Seq       uint64    `json:"seq"`
	Players   []string  `json:"players"`
	StartedAt time.Time `json:"started_at"`
}

// GameEndedEvent is published when a session terminates.
type GameEndedEvent struct {
	GameID  string    `json:"game_id"`
	Seq     uint64    `json:"seq"`
	Moves   int       `json:"moves"`
	Reason  string    `json:"reason"`
	EndedAt time.Time `json:"ended_at"`
}
