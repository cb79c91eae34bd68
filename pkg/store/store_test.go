package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/memchat/pkg/config"
	"github.com/kadirpekel/memchat/pkg/memory"
)

func turn(i int) []memory.Message {
	return []memory.Message{
		memory.NewUserMessage("question " + string(rune('a'+i))),
		memory.NewAssistantMessage("answer " + string(rune('a'+i))),
	}
}

func newSQLiteStore(t *testing.T) *SQL {
	t.Helper()
	s, err := OpenSQL(context.Background(), config.SQLConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "nested", "memchat.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newMiniredisStore(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

// backends runs fn against every Store implementation.
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("inmemory", func(t *testing.T) {
		fn(t, NewInMemory())
	})
	t.Run("redis", func(t *testing.T) {
		s, _ := newMiniredisStore(t)
		fn(t, s)
	})
	t.Run("sqlite", func(t *testing.T) {
		fn(t, newSQLiteStore(t))
	})
}

// ============================================================================
// Store behaviour shared by all backends
// ============================================================================

func TestStore_EmptySession(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		summary, err := s.GetSummary(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, summary)

		msgs, err := s.GetLastMessages(ctx, "missing", 10)
		require.NoError(t, err)
		assert.Empty(t, msgs)

		n, err := s.Len(ctx, "missing")
		require.NoError(t, err)
		assert.Zero(t, n)

		assert.NoError(t, s.TrimMessages(ctx, "missing", 3))
		assert.NoError(t, s.Purge(ctx, "missing"))
	})
}

func TestStore_AppendAndGetLast(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			require.NoError(t, s.AppendMessages(ctx, "s1", turn(i)...))
		}
		require.NoError(t, s.AppendMessages(ctx, "s2", memory.NewUserMessage("other")))
		require.NoError(t, s.AppendMessages(ctx, "s1"))

		n, err := s.Len(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, 6, n)

		last, err := s.GetLastMessages(ctx, "s1", 3)
		require.NoError(t, err)
		assert.Equal(t, []memory.Message{
			memory.NewAssistantMessage("answer b"),
			memory.NewUserMessage("question c"),
			memory.NewAssistantMessage("answer c"),
		}, last, "oldest first")

		all, err := s.GetLastMessages(ctx, "s1", 100)
		require.NoError(t, err)
		assert.Len(t, all, 6)
		assert.Equal(t, "question a", all[0].Content)

		none, err := s.GetLastMessages(ctx, "s1", 0)
		require.NoError(t, err)
		assert.Empty(t, none)

		none, err = s.GetLastMessages(ctx, "s1", -2)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestStore_Summary(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		require.NoError(t, s.SetSummary(ctx, "s1", "  - first  \n"))
		got, err := s.GetSummary(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "- first", got, "summary is read back trimmed")

		require.NoError(t, s.SetSummary(ctx, "s1", "- second"))
		got, err = s.GetSummary(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "- second", got, "summary is overwritten")
	})
}

func TestStore_Trim(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for i := 0; i < 5; i++ {
			require.NoError(t, s.AppendMessages(ctx, "s1", turn(i)...))
		}
		require.NoError(t, s.SetSummary(ctx, "s1", "kept"))

		require.NoError(t, s.TrimMessages(ctx, "s1", 4))
		msgs, err := s.GetLastMessages(ctx, "s1", 100)
		require.NoError(t, err)
		require.Len(t, msgs, 4)
		assert.Equal(t, "question d", msgs[0].Content)
		assert.Equal(t, "answer e", msgs[3].Content)

		// Trimming to more than the log holds is a no-op.
		require.NoError(t, s.TrimMessages(ctx, "s1", 10))
		n, err := s.Len(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		// Appends after a trim keep their order.
		require.NoError(t, s.AppendMessages(ctx, "s1", turn(5)...))
		require.NoError(t, s.TrimMessages(ctx, "s1", 3))
		msgs, err = s.GetLastMessages(ctx, "s1", 100)
		require.NoError(t, err)
		assert.Equal(t, []string{"answer e", "question f", "answer f"},
			[]string{msgs[0].Content, msgs[1].Content, msgs[2].Content})

		require.NoError(t, s.TrimMessages(ctx, "s1", 0))
		n, err = s.Len(ctx, "s1")
		require.NoError(t, err)
		assert.Zero(t, n)

		summary, err := s.GetSummary(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "kept", summary, "trim never touches the summary")
	})
}

func TestStore_Purge(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.AppendMessages(ctx, "s1", turn(0)...))
		require.NoError(t, s.SetSummary(ctx, "s1", "summary"))
		require.NoError(t, s.AppendMessages(ctx, "s2", turn(1)...))

		require.NoError(t, s.Purge(ctx, "s1"))

		n, err := s.Len(ctx, "s1")
		require.NoError(t, err)
		assert.Zero(t, n)
		summary, err := s.GetSummary(ctx, "s1")
		require.NoError(t, err)
		assert.Empty(t, summary)

		n, err = s.Len(ctx, "s2")
		require.NoError(t, err)
		assert.Equal(t, 2, n, "other sessions are untouched")
	})
}

// ============================================================================
// Backend specifics
// ============================================================================

func TestRedis_KeyLayout(t *testing.T) {
	s, mr := newMiniredisStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendMessages(ctx, "abc", memory.NewUserMessage("hi")))
	require.NoError(t, s.SetSummary(ctx, "abc", "- greeting"))

	items, err := mr.List("chat:session:abc:messages")
	require.NoError(t, err)
	assert.Equal(t, []string{`{"role":"user","content":"hi"}`}, items)

	summary, err := mr.Get("chat:session:abc:summary")
	require.NoError(t, err)
	assert.Equal(t, "- greeting", summary)
}

func TestRedis_CorruptEntry(t *testing.T) {
	s, mr := newMiniredisStore(t)
	_, err := mr.RPush("chat:session:bad:messages", "not json")
	require.NoError(t, err)

	_, err = s.GetLastMessages(context.Background(), "bad", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestRedis_ConnectionFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	defer s.Close()
	mr.Close()

	_, err := s.GetSummary(context.Background(), "s1")
	require.Error(t, err)
}

func TestNewRedisFromURL(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewRedisFromURL(context.Background(), "redis://"+mr.Addr()+"/0", "custom:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetSummary(context.Background(), "x", "y"))
	assert.True(t, mr.Exists("custom:x:summary"))

	_, err = NewRedisFromURL(context.Background(), "http://nope", "")
	require.Error(t, err)
}

func TestSQL_Rebind(t *testing.T) {
	pg := &SQL{dialect: "postgres"}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y <= $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y <= ?"))

	lite := &SQL{dialect: "sqlite"}
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))
}

func TestSQL_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	cfg := config.SQLConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "memchat.db")}

	s, err := OpenSQL(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, s.AppendMessages(ctx, "s1", turn(0)...))
	require.NoError(t, s.Close())

	s, err = OpenSQL(ctx, cfg)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Len(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNewSQL_UnsupportedDialect(t *testing.T) {
	_, err := NewSQL(context.Background(), nil, "sqlite")
	require.Error(t, err)

	s := newSQLiteStore(t)
	_, err = NewSQL(context.Background(), s.db, "oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported dialect")
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, config.StoreConfig{Backend: config.StoreInMemory})
	require.NoError(t, err)
	assert.IsType(t, &InMemory{}, s)

	mr := miniredis.RunT(t)
	s, err = New(ctx, config.StoreConfig{Backend: config.StoreRedis, Redis: config.RedisConfig{URL: "redis://" + mr.Addr()}})
	require.NoError(t, err)
	assert.IsType(t, &Redis{}, s)
	require.NoError(t, s.Close())

	s, err = New(ctx, config.StoreConfig{Backend: config.StoreSQL, SQL: config.SQLConfig{DSN: filepath.Join(t.TempDir(), "m.db")}})
	require.NoError(t, err)
	assert.IsType(t, &SQL{}, s)
	require.NoError(t, s.Close())

	_, err = New(ctx, config.StoreConfig{Backend: "mongo"})
	require.Error(t, err)
}
