package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kailas-cloud/carekb/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(Config{Path: filepath.Join(t.TempDir(), "carekb.db")})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestNewStore_RequiresPath(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestPingAndWait(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := s.WaitForReady(ctx, time.Second); err != nil {
		t.Fatalf("WaitForReady: %v", err)
	}
}

func TestKV_GetSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if err := s.Set(ctx, "k", []byte{0x01, 0x02}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "k", []byte{0x03}); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 1 || got[0] != 0x03 {
		t.Errorf("Get = %v, want [3]", got)
	}
}

func TestKV_IncrBy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for range 3 {
		if err := s.IncrBy(ctx, "tokens", 7); err != nil {
			t.Fatalf("IncrBy: %v", err)
		}
	}
	got, err := s.Get(ctx, "tokens")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "21" {
		t.Errorf("counter = %q, want 21", got)
	}
}

func TestKV_Expire(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	if err := s.IncrBy(ctx, "daily", 5); err != nil {
		t.Fatalf("IncrBy: %v", err)
	}
	if err := s.Expire(ctx, "daily", time.Hour, true); err != nil {
		t.Fatalf("Expire: %v", err)
	}
	// NX keeps the first deadline.
	if err := s.Expire(ctx, "daily", 10*time.Hour, true); err != nil {
		t.Fatalf("Expire NX: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := s.Get(ctx, "daily"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected expired key, got %v", err)
	}
	if err := s.IncrBy(ctx, "daily", 1); err != nil {
		t.Fatalf("IncrBy after expiry: %v", err)
	}
	got, _ := s.Get(ctx, "daily")
	if string(got) != "1" {
		t.Errorf("counter after expiry = %q, want 1", got)
	}
}

func TestHash_RoundTripAndScan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.HSetMulti(ctx, []db.HashSetItem{
		{Key: "carekb:chunk:general:1:a", Fields: map[string]string{"content": "산책", "ordinal": "0"}},
		{Key: "carekb:chunk:general:1:b", Fields: map[string]string{"content": "목욕", "ordinal": "1"}},
		{Key: "carekb:chunk:structured:1:c", Fields: map[string]string{"content": "약"}},
	})
	if err != nil {
		t.Fatalf("HSetMulti: %v", err)
	}

	m, err := s.HGetAll(ctx, "carekb:chunk:general:1:b")
	if err != nil {
		t.Fatalf("HGetAll: %v", err)
	}
	if m["content"] != "목욕" || m["ordinal"] != "1" {
		t.Errorf("HGetAll = %v", m)
	}

	keys, err := s.Scan(ctx, "carekb:chunk:general:*")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(keys) != 2 || keys[0] != "carekb:chunk:general:1:a" {
		t.Errorf("Scan = %v", keys)
	}

	if err := s.Del(ctx, keys...); err != nil {
		t.Fatalf("Del: %v", err)
	}
	ok, err := s.Exists(ctx, "carekb:chunk:general:1:a")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("expected key to be deleted")
	}
	ok, _ = s.Exists(ctx, "carekb:chunk:structured:1:c")
	if !ok {
		t.Error("unrelated key should survive")
	}
}

func indexDef(name, prefix string) *db.IndexDefinition {
	return db.NewIndex(name).
		Prefix(prefix).
		Text("content").
		Vector("vector", db.Flat(2, db.DistanceCosine)).
		MustBuild()
}

func TestIndex_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	def := indexDef("carekb_general_1", "carekb:chunk:general:1:")

	if err := s.CreateIndex(ctx, def); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	if err := s.CreateIndex(ctx, def); !errors.Is(err, db.ErrIndexExists) {
		t.Fatalf("expected ErrIndexExists, got %v", err)
	}
	ok, err := s.IndexExists(ctx, "carekb_general_1")
	if err != nil || !ok {
		t.Fatalf("IndexExists = %v, %v", ok, err)
	}

	if err := s.HSetMulti(ctx, []db.HashSetItem{
		{Key: "carekb:chunk:general:1:a", Fields: map[string]string{"content": "x"}},
	}); err != nil {
		t.Fatalf("HSetMulti: %v", err)
	}

	if err := s.DropIndex(ctx, "carekb_general_1"); err != nil {
		t.Fatalf("DropIndex: %v", err)
	}
	if err := s.DropIndex(ctx, "carekb_general_1"); !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
	if ok, _ := s.Exists(ctx, "carekb:chunk:general:1:a"); ok {
		t.Error("documents should be dropped with the index")
	}
}

func TestSearchKNN_OrdersByDistance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.CreateIndex(ctx, indexDef("idx", "doc:")); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}

	vec := func(x, y float32) string { return string(db.EncodeVector([]float32{x, y})) }
	if err := s.HSetMulti(ctx, []db.HashSetItem{
		{Key: "doc:far", Fields: map[string]string{"content": "far", "vector": vec(-1, 0)}},
		{Key: "doc:near", Fields: map[string]string{"content": "near", "vector": vec(1, 0.1)}},
		{Key: "doc:mid", Fields: map[string]string{"content": "mid", "vector": vec(0, 1)}},
		{Key: "doc:bad", Fields: map[string]string{"content": "bad", "vector": "xyz"}},
		{Key: "other:near", Fields: map[string]string{"content": "outside", "vector": vec(1, 0)}},
	}); err != nil {
		t.Fatalf("HSetMulti: %v", err)
	}

	res, err := s.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    "idx",
		Vector:       []float32{1, 0},
		K:            2,
		ReturnFields: []string{"content"},
	})
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(res.Entries))
	}
	if res.Entries[0].Key != "doc:near" || res.Entries[1].Key != "doc:mid" {
		t.Errorf("order = %s, %s", res.Entries[0].Key, res.Entries[1].Key)
	}
	if res.Entries[0].Score >= res.Entries[1].Score {
		t.Errorf("scores should ascend: %v, %v", res.Entries[0].Score, res.Entries[1].Score)
	}
	if _, ok := res.Entries[0].Fields["vector"]; ok {
		t.Error("vector field should not be returned")
	}
	if res.Entries[0].Fields["content"] != "near" {
		t.Errorf("content = %q", res.Entries[0].Fields["content"])
	}
}

func TestSearchKNN_UnknownIndex(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: "nope", Vector: []float32{1}, K: 1})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestSearchListAndCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.CreateIndex(ctx, indexDef("idx", "doc:")); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	items := []db.HashSetItem{
		{Key: "doc:3", Fields: map[string]string{"content": "c"}},
		{Key: "doc:1", Fields: map[string]string{"content": "a"}},
		{Key: "doc:2", Fields: map[string]string{"content": "b"}},
	}
	if err := s.HSetMulti(ctx, items); err != nil {
		t.Fatalf("HSetMulti: %v", err)
	}

	n, err := s.SearchCount(ctx, "idx")
	if err != nil || n != 3 {
		t.Fatalf("SearchCount = %d, %v", n, err)
	}

	page, err := s.SearchList(ctx, "idx", 1, 5, []string{"content"})
	if err != nil {
		t.Fatalf("SearchList: %v", err)
	}
	if page.Total != 3 || len(page.Entries) != 2 {
		t.Fatalf("page = %+v", page)
	}
	if page.Entries[0].Key != "doc:2" || page.Entries[0].Fields["content"] != "b" {
		t.Errorf("first entry = %+v", page.Entries[0])
	}
}

func TestGlobPattern(t *testing.T) {
	if got := globPattern("a[1]*"); got != "a[[]1[]]*" {
		t.Errorf("globPattern = %q", got)
	}
}
