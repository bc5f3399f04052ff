package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carekb/internal/domain"
	"github.com/kailas-cloud/carekb/internal/domain/chunk"
	"github.com/kailas-cloud/carekb/internal/domain/collection"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_GeneralGuides(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "guides/dog.md", guide)
	writeFile(t, root, "guides/.hidden/skip.md", "# hidden\ntext")
	writeFile(t, root, "guides/meds.json", `[{"text":"ignored by general"}]`)

	l := NewLoader(root, 1000, zap.NewNop())
	chunks, err := l.Load(context.Background(), Source{Domain: "general", Kind: collection.KindGeneral, Dir: "guides"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	first := chunks[0]
	if first.Content() != "치와와는 소형견입니다." {
		t.Errorf("content = %q", first.Content())
	}
	md := first.Metadata()
	if md.String(chunk.KeySource) != "guides/dog.md" {
		t.Errorf("source = %q", md.String(chunk.KeySource))
	}
	if first.Domain() != "general" {
		t.Errorf("domain = %q", first.Domain())
	}
	if md.String(chunk.KeyTitle) != "강아지 기본 관리" {
		t.Errorf("title = %q", md.String(chunk.KeyTitle))
	}
	if got := md.List(chunk.KeyCategories); len(got) != 2 || got[0] != "반려견건강" {
		t.Errorf("categories = %v", got)
	}
	for i, c := range chunks {
		if n, _ := c.Metadata().Number(chunk.KeyChunkIndex); int(n) != i {
			t.Errorf("chunk %d has chunk_index %v", i, n)
		}
		if n, _ := c.Metadata().Number(chunk.KeyTotalChunks); int(n) != 2 {
			t.Errorf("chunk %d has total_chunks %v", i, n)
		}
	}
}

func TestLoad_StructuredRecords(t *testing.T) {
	root := t.TempDir()
	long := strings.Repeat("A", 5000)
	writeFile(t, root, "meds/list.json", `[
		{"id": "med-1", "text": "강아지 심장사상충 예방약", "metadata": {"categories": ["예방"], "name": "하트가드"}},
		{"id": 7, "name": "소염제", "text": "  "},
		"plain string item",
		{"text": "`+long+`"}
	]`)
	writeFile(t, root, "meds/broken.json", `[{"text": `)

	l := NewLoader(root, 1000, zap.NewNop())
	chunks, err := l.Load(context.Background(), Source{Domain: "medication", Kind: collection.KindStructured, Dir: "meds"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3+5 {
		t.Fatalf("expected 8 chunks, got %d", len(chunks))
	}

	first := chunks[0].Metadata()
	if chunks[0].Content() != "강아지 심장사상충 예방약" {
		t.Errorf("content = %q", chunks[0].Content())
	}
	if first.String(chunk.KeyDocumentID) != "med-1" || first.String("name") != "하트가드" {
		t.Errorf("metadata = %v", first)
	}
	if !chunks[0].IsMedication() {
		t.Error("record chunks are medication data")
	}

	second := chunks[1]
	if !strings.Contains(second.Content(), `"name": "소염제"`) {
		t.Errorf("item without text must be serialized, got %q", second.Content())
	}
	if second.Metadata()[chunk.KeyDocumentID] != int64(7) {
		t.Errorf("numeric id = %#v", second.Metadata()[chunk.KeyDocumentID])
	}
	if chunks[2].Content() != `"plain string item"` {
		t.Errorf("scalar item = %q", chunks[2].Content())
	}

	var rebuilt strings.Builder
	for _, c := range chunks[3:] {
		if utf8.RuneCountInString(c.Content()) > 1000 {
			t.Errorf("chunk exceeds ceiling")
		}
		if n, _ := c.Metadata().Number(chunk.KeyItemIndex); n != 3 {
			t.Errorf("item_index = %v", n)
		}
		if n, _ := c.Metadata().Number(chunk.KeyTotalChunks); n != 5 {
			t.Errorf("total_chunks = %v", n)
		}
		rebuilt.WriteString(c.Content())
	}
	if rebuilt.String() != long {
		t.Error("long record must be reconstructable")
	}
}

func TestLoad_NoDocuments(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "meds/empty.json", `[]`)

	l := NewLoader(root, 0, zap.NewNop())
	_, err := l.Load(context.Background(), Source{Domain: "medication", Kind: collection.KindStructured, Dir: "meds"})
	if !errors.Is(err, domain.ErrNoDocuments) {
		t.Errorf("err = %v, want ErrNoDocuments", err)
	}
}

func TestLoad_MissingRoot(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "nope"), 0, zap.NewNop())
	_, err := l.Load(context.Background(), Source{Domain: "general", Kind: collection.KindGeneral})
	if err == nil {
		t.Fatal("expected error for missing corpus root")
	}
	if errors.Is(err, domain.ErrNoDocuments) {
		t.Error("missing root is a configuration error, not an empty corpus")
	}
}

func TestLoad_Deterministic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.md", "# B\nsecond")
	writeFile(t, root, "a.md", "# A\nfirst")

	l := NewLoader(root, 0, zap.NewNop())
	src := Source{Domain: "general", Kind: collection.KindGeneral}
	one, err := l.Load(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	two, _ := l.Load(context.Background(), src)
	if len(one) != 2 || one[0].Content() != "first" {
		t.Fatalf("unexpected order: %v", one)
	}
	for i := range one {
		if one[i].Key() != two[i].Key() {
			t.Errorf("chunk %d differs between loads", i)
		}
	}
}
