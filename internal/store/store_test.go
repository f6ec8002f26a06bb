package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/dshills/querystorm/internal/config"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("load missing", func(t *testing.T) {
		content, ok, err := s.Load(ctx, "absent")
		if err != nil || ok || content != "" {
			t.Errorf("Load(absent) = %q, %v, %v, want \"\", false, nil", content, ok, err)
		}
	})

	t.Run("persist and load", func(t *testing.T) {
		if err := s.Persist(ctx, "c1", "select 1"); err != nil {
			t.Fatalf("Persist error = %v", err)
		}
		content, ok, err := s.Load(ctx, "c1")
		if err != nil || !ok {
			t.Fatalf("Load = %v, %v", ok, err)
		}
		if content != "select 1" {
			t.Errorf("Load = %q, want %q", content, "select 1")
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		if err := s.Persist(ctx, "c1", "select 2"); err != nil {
			t.Fatalf("Persist error = %v", err)
		}
		rec, ok, err := s.Record(ctx, "c1")
		if err != nil || !ok {
			t.Fatalf("Record = %v, %v", ok, err)
		}
		if rec.Content != "select 2" {
			t.Errorf("Content = %q, want %q", rec.Content, "select 2")
		}
		if rec.Hash != Hash("select 2") {
			t.Errorf("Hash = %x, want %x", rec.Hash, Hash("select 2"))
		}
		if rec.UpdatedAt.IsZero() {
			t.Error("UpdatedAt should be set")
		}
	})

	t.Run("empty content", func(t *testing.T) {
		if err := s.Persist(ctx, "empty", ""); err != nil {
			t.Fatalf("Persist error = %v", err)
		}
		content, ok, err := s.Load(ctx, "empty")
		if err != nil || !ok || content != "" {
			t.Errorf("Load(empty) = %q, %v, %v", content, ok, err)
		}
	})

	t.Run("ids", func(t *testing.T) {
		if err := s.Persist(ctx, "a0", "x"); err != nil {
			t.Fatalf("Persist error = %v", err)
		}
		ids, err := s.IDs(ctx)
		if err != nil {
			t.Fatalf("IDs error = %v", err)
		}
		want := []string{"a0", "c1", "empty"}
		if !reflect.DeepEqual(ids, want) {
			t.Errorf("IDs = %v, want %v", ids, want)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := s.Delete(ctx, "c1"); err != nil {
			t.Fatalf("Delete error = %v", err)
		}
		if _, ok, _ := s.Load(ctx, "c1"); ok {
			t.Error("c1 should be gone")
		}
		if err := s.Delete(ctx, "c1"); err != nil {
			t.Errorf("second Delete error = %v", err)
		}
	})

	t.Run("ids that look like store keys", func(t *testing.T) {
		for _, id := range []string{"ids", "index", "console:index"} {
			if err := s.Persist(ctx, id, "select "+id); err != nil {
				t.Fatalf("Persist(%q) error = %v", id, err)
			}
		}
		if err := s.Persist(ctx, "report", "select 3"); err != nil {
			t.Fatalf("Persist(report) error = %v", err)
		}
		content, ok, err := s.Load(ctx, "index")
		if err != nil || !ok || content != "select index" {
			t.Errorf("Load(index) = %q, %v, %v", content, ok, err)
		}
		ids, err := s.IDs(ctx)
		if err != nil {
			t.Fatalf("IDs error = %v", err)
		}
		want := []string{"a0", "console:index", "empty", "ids", "index", "report"}
		if !reflect.DeepEqual(ids, want) {
			t.Errorf("IDs = %v, want %v", ids, want)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		if err := s.Persist(ctx, "", "x"); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Persist(\"\") error = %v, want ErrInvalidID", err)
		}
	})
}

func TestMemory(t *testing.T) {
	s := NewMemory()
	exerciseStore(t, s)

	if err := s.Close(); err != nil {
		t.Fatalf("Close error = %v", err)
	}
	if err := s.Persist(context.Background(), "c1", "x"); !errors.Is(err, ErrClosed) {
		t.Errorf("Persist after Close error = %v, want ErrClosed", err)
	}
}

func TestMemoryCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewMemory().Persist(ctx, "c1", "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("Persist error = %v, want context.Canceled", err)
	}
}

func TestSQLite(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "qs.db"))
	if err != nil {
		t.Fatalf("OpenSQLite error = %v", err)
	}
	defer s.Close()

	exerciseStore(t, s)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "qs.db")

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite error = %v", err)
	}
	if err := s.Persist(ctx, "c1", "select *\nfrom t"); err != nil {
		t.Fatalf("Persist error = %v", err)
	}
	s.Close()

	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	content, ok, err := s.Load(ctx, "c1")
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if content != "select *\nfrom t" {
		t.Errorf("Load = %q", content)
	}
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("QUERYSTORM_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("QUERYSTORM_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	s, err := OpenRedis(ctx, RedisOptions{Addr: addr, KeyPrefix: "querystorm:test:" + t.Name() + ":"})
	if err != nil {
		t.Fatalf("OpenRedis error = %v", err)
	}
	defer func() {
		ids, _ := s.IDs(ctx)
		for _, id := range ids {
			_ = s.Delete(ctx, id)
		}
		s.Close()
	}()

	exerciseStore(t, s)
}

func TestRedisInProcess(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	defer s.Close()

	exerciseStore(t, s)
}

func TestRedisIndexSurvivesCollidingID(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "qs:")
	defer s.Close()
	ctx := context.Background()

	for _, id := range []string{"index", "ids", "report"} {
		if err := s.Persist(ctx, id, "x"); err != nil {
			t.Fatalf("Persist(%q) error = %v", id, err)
		}
	}
	if !mr.Exists("qs:index") || !mr.Exists("qs:console:index") {
		t.Errorf("keys = %v, want separate index and console hash", mr.Keys())
	}
	if typ := mr.Type("qs:index"); typ != "set" {
		t.Errorf("type of qs:index = %q, want set", typ)
	}
	ids, err := s.IDs(ctx)
	if err != nil {
		t.Fatalf("IDs error = %v", err)
	}
	if want := []string{"ids", "index", "report"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("IDs = %v, want %v", ids, want)
	}
}

func TestRedisKeys(t *testing.T) {
	r := NewRedis(nil, "")
	if got := r.key("c1"); got != "querystorm:console:c1" {
		t.Errorf("key = %q", got)
	}
	if got := r.key("index"); got == r.indexKey() {
		t.Errorf("key(index) = %q collides with the index", got)
	}
	if got := r.indexKey(); got != "querystorm:index" {
		t.Errorf("indexKey = %q", got)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	mem, err := Open(ctx, config.StoreConfig{Backend: config.BackendMemory})
	if err != nil {
		t.Fatalf("Open(memory) error = %v", err)
	}
	if _, ok := mem.(*Memory); !ok {
		t.Errorf("Open(memory) = %T, want *Memory", mem)
	}

	lite, err := Open(ctx, config.StoreConfig{
		Backend:    config.BackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "qs.db"),
	})
	if err != nil {
		t.Fatalf("Open(sqlite) error = %v", err)
	}
	defer lite.Close()
	if _, ok := lite.(*SQLite); !ok {
		t.Errorf("Open(sqlite) = %T, want *SQLite", lite)
	}

	if _, err := Open(ctx, config.StoreConfig{Backend: "mongo"}); err == nil {
		t.Error("Open(mongo) should fail")
	}
}
