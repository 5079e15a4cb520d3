package gamerepo

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGame() *Game {
	return &Game{
		ID:        "01HTESTGAMEID0000000000000",
		Seq:       7,
		Players:   []string{"10.0.0.1:50001", "10.0.0.2:50002"},
		StartedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestNewRedisRepo(t *testing.T) {
	t.Parallel()

	redisMock := newRedisMock()
	repo, err := NewRedisRepo(redisMock)

	require.NoError(t, err)
	require.NotNil(t, repo)
	assert.Equal(t, redisMock, repo.client)
}

func TestRedis_StoreGame(t *testing.T) {
	t.Parallel()

	givenGame := testGame()

	testCases := []struct {
		name      string
		setFunc   func(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
		sAddFunc  func(ctx context.Context, key string, members ...any) *redis.IntCmd
		expectErr bool
	}{
		{
			name: "successful store",
			setFunc: func(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
				assert.Equal(t, gameKeyPrefix+givenGame.ID, key)
				assert.Equal(t, gameTTL, expiration)

				valueBytes, ok := value.([]byte)
				assert.True(t, ok)

				var g Game
				err := json.Unmarshal(valueBytes, &g)
				assert.NoError(t, err)
				assert.Equal(t, *givenGame, g)

				cmd := redis.NewStatusCmd(ctx)
				cmd.SetVal("OK")
				return cmd
			},
			sAddFunc: func(ctx context.Context, key string, members ...any) *redis.IntCmd {
				assert.Equal(t, activeGamesKey, key)
				assert.Equal(t, 1, len(members))
				assert.Equal(t, gameKeyPrefix+givenGame.ID, members[0])

				cmd := redis.NewIntCmd(ctx)
				cmd.SetVal(1)
				return cmd
			},
		},
		{
			name: "set fails",
			setFunc: func(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
				cmd := redis.NewStatusCmd(ctx)
				cmd.SetErr(assert.AnError)
				return cmd
			},
			expectErr: true,
		},
		{
			name: "sadd fails",
			sAddFunc: func(ctx context.Context, key string, members ...any) *redis.IntCmd {
				cmd := redis.NewIntCmd(ctx)
				cmd.SetErr(assert.AnError)
				return cmd
			},
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mock := newRedisMock()
			mock.setFunc = tc.setFunc
			mock.sAddFunc = tc.sAddFunc

			repo, err := NewRedisRepo(mock)
			require.NoError(t, err)

			err = repo.StoreGame(context.Background(), givenGame)

			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRedis_RemoveGame(t *testing.T) {
	t.Parallel()

	mock := newRedisMock()
	repo, err := NewRedisRepo(mock)
	require.NoError(t, err)

	givenGame := testGame()
	require.NoError(t, repo.StoreGame(context.Background(), givenGame))

	require.NoError(t, repo.RemoveGame(context.Background(), givenGame.ID))

	games, err := repo.GetActiveGames(context.Background())
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestRedis_GetActiveGames(t *testing.T) {
	t.Parallel()

	t.Run("lists stored games", func(t *testing.T) {
		t.Parallel()

		mock := newRedisMock()
		repo, err := NewRedisRepo(mock)
		require.NoError(t, err)

		givenGame := testGame()
		require.NoError(t, repo.StoreGame(context.Background(), givenGame))

		games, err := repo.GetActiveGames(context.Background())
		require.NoError(t, err)

		require.Len(t, games, 1)
		assert.Equal(t, givenGame.ID, games[0].ID)
		assert.Equal(t, givenGame.Seq, games[0].Seq)
		assert.Equal(t, givenGame.Players, games[0].Players)
	})

	t.Run("drops dangling set members", func(t *testing.T) {
		t.Parallel()

		mock := newRedisMock()
		repo, err := NewRedisRepo(mock)
		require.NoError(t, err)

		givenGame := testGame()
		require.NoError(t, repo.StoreGame(context.Background(), givenGame))

		// Simulate the record expiring while the set member lingers.
		mock.mu.Lock()
		delete(mock.data, gameKeyPrefix+givenGame.ID)
		mock.mu.Unlock()

		games, err := repo.GetActiveGames(context.Background())
		require.NoError(t, err)
		assert.Empty(t, games)

		// The dangling member was cleaned up along the way.
		mock.mu.Lock()
		_, stillThere := mock.sets[activeGamesKey][gameKeyPrefix+givenGame.ID]
		mock.mu.Unlock()
		assert.False(t, stillThere)
	})
}
