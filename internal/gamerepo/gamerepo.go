// Package gamerepo keeps a Redis-backed registry of the games currently
// running on this server. It exists for observability only: the protocol
// path never reads it, and a lost write never affects a running game.
package gamerepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	gameKeyPrefix  = "game:"
	activeGamesKey = "active_games"

	// A record older than this is certainly a leftover from a crashed
	// process; sessions themselves have no time limit, so the TTL is long.
	gameTTL = 24 * time.Hour
)

type redisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...any) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
}

// Game is one live game record.
type Game struct {
	ID        string    `json:"game_id"`
	Seq       uint64    `json:"seq"`
	Players   []string  `json:"players"`
	StartedAt time.Time `json:"started_at"`
}

type Redis struct {
	client redisClient
}

func NewRedisRepo(redisCli redisClient) (*Redis, error) {
	return &Redis{client: redisCli}, nil
}

// StoreGame records a newly started game.
func (r *Redis) StoreGame(ctx context.Context, g *Game) error {
	key := gameKeyPrefix + g.ID

	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("could not marshal game data: %w", err)
	}

	if err := r.client.Set(ctx, key, data, gameTTL).Err(); err != nil {
		return fmt.Errorf("could not store game in Redis: %w", err)
	}

	if err := r.client.SAdd(ctx, activeGamesKey, key).Err(); err != nil {
		return fmt.Errorf("could not add game to active set: %w", err)
	}
	return nil
}

// RemoveGame drops the record of a finished game.
func (r *Redis) RemoveGame(ctx context.Context, gameID string) error {
	key := gameKeyPrefix + gameID

	if err := r.client.SRem(ctx, activeGamesKey, key).Err(); err != nil {
		return fmt.Errorf("could not remove game from active set: %w", err)
	}

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("could not delete game data: %w", err)
	}
	return nil
}

// GetActiveGames lists every recorded game, dropping dangling set members
// whose records have expired along the way.
func (r *Redis) GetActiveGames(ctx context.Context) ([]*Game, error) {
	gameKeys, err := r.client.SMembers(ctx, activeGamesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("could not get active game keys from set: %w", err)
	}

	games := make([]*Game, 0, len(gameKeys))
	for _, key := range gameKeys {
		data, err := r.client.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				r.client.SRem(ctx, activeGamesKey, key)
				continue
			}
			return nil, fmt.Errorf("could not get game data from Redis: %w", err)
		}

		var g Game
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, fmt.Errorf("could not unmarshal game data: %w", err)
		}
		games = append(games, &g)
	}
	return games, nil
}
