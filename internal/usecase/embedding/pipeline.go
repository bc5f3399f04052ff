package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/carekb/internal/domain"
	"github.com/kailas-cloud/carekb/internal/domain/batch"
	"github.com/kailas-cloud/carekb/internal/metrics"
	"github.com/kailas-cloud/carekb/internal/tokenizer"
)

// Pipeline defaults.
const (
	DefaultBatchMaxItems  = 50
	DefaultBatchMaxTokens = 50000
	DefaultBatchDelay     = 2 * time.Second
	DefaultBatchTimeout   = 60 * time.Second
)

// VectorCache is the consumer interface of the embedding cache.
type VectorCache interface {
	Get(ctx context.Context, text string) ([]float32, bool)
	Put(ctx context.Context, text string, vec []float32)
}

// PipelineConfig bounds every provider call.
type PipelineConfig struct {
	MaxItems  int
	MaxTokens int
	Delay     time.Duration
	Timeout   time.Duration
}

func (c *PipelineConfig) applyDefaults() {
	if c.MaxItems <= 0 {
		c.MaxItems = DefaultBatchMaxItems
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultBatchMaxTokens
	}
	if c.Delay < 0 {
		c.Delay = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultBatchTimeout
	}
}

// Stats summarizes one EmbedAll run.
type Stats struct {
	Cached   int
	Embedded int
	Failed   int
	Batches  []batch.Result
}

// Pipeline embeds many texts through the cache and sequential provider batches.
type Pipeline struct {
	embedder domain.BatchEmbedder
	cache    VectorCache
	counter  tokenizer.Counter
	cfg      PipelineConfig
	logger   *zap.Logger
}

// NewPipeline creates a pipeline. cache may be nil.
func NewPipeline(
	embedder domain.BatchEmbedder, cache VectorCache, counter tokenizer.Counter,
	cfg PipelineConfig, logger *zap.Logger,
) *Pipeline {
	cfg.applyDefaults()
	if counter == nil {
		counter = tokenizer.Heuristic{}
	}
	return &Pipeline{embedder: embedder, cache: cache, counter: counter, cfg: cfg, logger: logger}
}

// EmbedAll returns one vector per input text in input order.
// Texts whose batch failed are left nil.
func (p *Pipeline) EmbedAll(ctx context.Context, texts []string) [][]float32 {
	out, _ := p.EmbedAllWithStats(ctx, texts)
	return out
}

// pending is an uncached text with its position in the input.
type pending struct {
	pos    int
	text   string
	tokens int
}

// EmbedAllWithStats is EmbedAll plus per-run accounting.
func (p *Pipeline) EmbedAllWithStats(ctx context.Context, texts []string) ([][]float32, Stats) {
	out := make([][]float32, len(texts))
	var stats Stats

	var todo []pending
	for i, text := range texts {
		if p.cache != nil {
			if vec, ok := p.cache.Get(ctx, text); ok {
				out[i] = vec
				stats.Cached++
				continue
			}
		}
		todo = append(todo, pending{pos: i, text: text, tokens: p.counter.Count(text)})
	}

	batches := p.plan(todo)
	var pause *rate.Limiter

	for bi, items := range batches {
		tokens := 0
		for _, it := range items {
			tokens += it.tokens
		}

		if err := waitPause(ctx, pause); err != nil {
			res := batch.NewError(bi, len(items), tokens, fmt.Errorf("wait: %w", err))
			stats.Batches = append(stats.Batches, res)
			metrics.EmbeddingBatchesTotal.WithLabelValues(string(res.Status())).Inc()
			stats.Failed += p.failRemaining(batches[bi:])
			p.logger.Warn("Embedding pipeline interrupted",
				zap.Int("batch", bi),
				zap.Int("remaining_batches", len(batches)-bi),
				zap.Error(err),
			)
			break
		}

		res := p.send(ctx, bi, items, tokens, out)
		pause = p.cooldown()
		stats.Batches = append(stats.Batches, res)
		metrics.EmbeddingBatchesTotal.WithLabelValues(string(res.Status())).Inc()
		if res.Status() == batch.StatusOK {
			stats.Embedded += len(items)
		} else {
			stats.Failed += len(items)
		}
	}

	metrics.CountPipelineTexts(stats.Cached, stats.Embedded, stats.Failed)

	p.logger.Info("Embedding pipeline finished",
		zap.Int("texts", len(texts)),
		zap.Int("cached", stats.Cached),
		zap.Int("embedded", stats.Embedded),
		zap.Int("failed", stats.Failed),
		zap.Int("batches", len(stats.Batches)),
	)
	return out, stats
}

// plan groups texts greedily. A batch is flushed when adding the next text
// would exceed either limit; an oversized text travels alone.
func (p *Pipeline) plan(todo []pending) [][]pending {
	var (
		batches [][]pending
		cur     []pending
		tokens  int
	)
	for _, it := range todo {
		if len(cur) > 0 && (len(cur)+1 > p.cfg.MaxItems || tokens+it.tokens > p.cfg.MaxTokens) {
			batches = append(batches, cur)
			cur, tokens = nil, 0
		}
		cur = append(cur, it)
		tokens += it.tokens
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches
}

// cooldown starts the delay owed after a provider call returns: a limiter
// whose only token was just spent, so Wait blocks for one full Delay.
func (p *Pipeline) cooldown() *rate.Limiter {
	if p.cfg.Delay <= 0 {
		return nil
	}
	l := rate.NewLimiter(rate.Every(p.cfg.Delay), 1)
	l.Allow()
	return l
}

// waitPause blocks until the previous batch's cooldown has passed. It
// fails without waiting when ctx ends first or its deadline falls inside
// the cooldown.
func waitPause(ctx context.Context, pause *rate.Limiter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if pause == nil {
		return nil
	}
	return pause.Wait(ctx)
}

// send runs one provider call and writes successful vectors into out and the cache.
func (p *Pipeline) send(ctx context.Context, index int, items []pending, tokens int, out [][]float32) batch.Result {
	inputs := make([]string, len(items))
	for i, it := range items {
		inputs[i] = it.text
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	res, err := p.embedder.BatchEmbed(callCtx, inputs)
	if err == nil && len(res.Embeddings) != len(items) {
		err = fmt.Errorf("%w: got %d vectors for %d texts",
			domain.ErrEmbeddingProviderError, len(res.Embeddings), len(items))
	}
	if err != nil {
		p.logger.Error("Embedding batch failed",
			zap.Int("batch", index),
			zap.Int("size", len(items)),
			zap.Int("tokens", tokens),
			zap.Error(err),
		)
		return batch.NewError(index, len(items), tokens, err)
	}

	for i, it := range items {
		vec := res.Embeddings[i]
		out[it.pos] = vec
		if p.cache != nil {
			p.cache.Put(ctx, it.text, vec)
		}
	}
	return batch.NewOK(index, len(items), tokens)
}

func (p *Pipeline) failRemaining(rest [][]pending) int {
	n := 0
	for _, b := range rest {
		n += len(b)
	}
	return n
}
