// Package corpus turns the on-disk document tree into chunks for one collection domain.
package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carekb/internal/domain"
	"github.com/kailas-cloud/carekb/internal/domain/chunk"
	"github.com/kailas-cloud/carekb/internal/domain/collection"
)

// Default extensions per document kind.
var (
	GeneralExtensions    = []string{".md", ".markdown", ".pdf", ".docx", ".txt"}
	StructuredExtensions = []string{".json"}
)

// Source scopes a domain to part of the corpus tree.
type Source struct {
	Domain     string
	Kind       collection.Kind
	Dir        string   // relative to the corpus root; "" means the root itself
	Extensions []string // defaults by Kind when empty
}

func (s Source) extensions() []string {
	if len(s.Extensions) > 0 {
		return s.Extensions
	}
	if s.Kind == collection.KindStructured {
		return StructuredExtensions
	}
	return GeneralExtensions
}

// Loader reads and chunks documents under a corpus root.
type Loader struct {
	root    string
	ceiling int
	logger  *zap.Logger
}

// NewLoader creates a loader. ceiling <= 0 selects DefaultCeiling.
func NewLoader(root string, ceiling int, logger *zap.Logger) *Loader {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Loader{root: root, ceiling: ceiling, logger: logger}
}

type pending struct {
	content  string
	metadata map[string]any
}

// Load chunks every matching document of the source domain, in path order.
// A document that fails to read or parse is logged and skipped. Returns
// domain.ErrNoDocuments when nothing usable was found.
func (l *Loader) Load(ctx context.Context, src Source) ([]chunk.Chunk, error) {
	dir := filepath.Join(l.root, src.Dir)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("corpus dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus dir %s: not a directory", dir)
	}

	paths, err := l.find(dir, src.extensions())
	if err != nil {
		return nil, err
	}

	var chunks []chunk.Chunk
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("load %s: %w", src.Domain, err)
		}
		docChunks, err := l.loadFile(path, src)
		if err != nil {
			l.logger.Warn("Skipping document",
				zap.String("domain", src.Domain),
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}
		chunks = append(chunks, docChunks...)
	}

	l.logger.Info("Corpus loaded",
		zap.String("domain", src.Domain),
		zap.Int("documents", len(paths)),
		zap.Int("chunks", len(chunks)),
	)

	if len(chunks) == 0 {
		return nil, domain.ErrNoDocuments
	}
	return chunks, nil
}

func (l *Loader) find(dir string, exts []string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if slices.Contains(exts, strings.ToLower(filepath.Ext(path))) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	slices.Sort(paths)
	return paths, nil
}

func (l *Loader) loadFile(path string, src Source) ([]chunk.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	base := map[string]any{
		chunk.KeySource: rel,
		"source_file":   filepath.Base(path),
	}

	var parts []pending
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		parts, err = l.chunkRecords(data, base)
	case ".pdf":
		var text string
		if text, err = pdfText(data); err == nil {
			parts = l.chunkPlain(text, base)
		}
	case ".docx":
		var text string
		if text, err = docxText(data); err == nil {
			parts = l.chunkPlain(text, base)
		}
	case ".txt":
		parts = l.chunkPlain(string(data), base)
	default:
		parts = l.chunkMarkdown(string(data), base)
	}
	if err != nil {
		return nil, err
	}

	return finalize(parts, src.Domain), nil
}

// finalize numbers the chunks of one document and stamps the owning domain.
func finalize(parts []pending, domainName string) []chunk.Chunk {
	out := make([]chunk.Chunk, 0, len(parts))
	for _, p := range parts {
		md := merge(p.metadata)
		md[chunk.KeyChunkIndex] = len(out)
		md[chunk.KeyDomain] = domainName
		c, err := chunk.New(p.content, md)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	for i := range out {
		if _, ok := out[i].Metadata()[chunk.KeyTotalChunks]; !ok {
			out[i] = out[i].With(map[string]any{chunk.KeyTotalChunks: len(out)})
		}
	}
	return out
}
