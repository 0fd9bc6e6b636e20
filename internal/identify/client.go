package identify

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dkravets/reelid/internal/media"
)

const (
	DefaultCacheSize = 1024
	DefaultRetries   = 3
	DefaultBackoff   = time.Second
)

// instruction is the fixed prompt sent ahead of the media parts. The model
// must answer with a bare JSON object matching Result.
const instruction = `Identify the film or TV show the attached media comes from.
Respond with a single JSON object and nothing else, in this exact shape:
{"title": "<exact title>", "confidence_score": <number between 0.0 and 1.0>, "reasoning": "<one short sentence>"}
If you cannot identify it, or the content is not from a film or TV show, set "title" to "unknown" and "confidence_score" to a low value.`

type mediaLoader interface {
	Load(ctx context.Context, ref media.Reference) (*media.Unit, error)
}

// modelCaller executes one multimodal request against the hosted model and
// returns its raw text reply.
type modelCaller interface {
	Generate(ctx context.Context, prompt string, units []*media.Unit) (string, error)
}

type Config struct {
	CacheSize int
	Retries   int
	Backoff   time.Duration
}

// Client identifies films from ordered media reference lists. Results are
// memoized per exact reference list in a bounded LRU shared by every
// concurrent request.
type Client struct {
	loader  mediaLoader
	model   modelCaller
	cache   *lru.Cache[string, Result]
	retries int
	backoff time.Duration
}

func NewClient(loader mediaLoader, model modelCaller, cfg Config) (*Client, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.Retries <= 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}

	cache, err := lru.New[string, Result](cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	return &Client{
		loader:  loader,
		model:   model,
		cache:   cache,
		retries: cfg.Retries,
		backoff: cfg.Backoff,
	}, nil
}

// CacheKey joins the raw references in order. Reordering the same references
// produces a different key on purpose: the prompt the model sees is
// order-dependent.
func CacheKey(refs []media.Reference) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = string(r)
	}
	return strings.Join(parts, "|")
}

// Identify returns the model's verdict for an ordered reference list. A cache
// hit short-circuits the whole call, media loading included. Malformed model
// output degrades to the unknown sentinel rather than an error; only media
// failures and an exhausted retry budget are fatal.
func (c *Client) Identify(ctx context.Context, refs []media.Reference) (Result, error) {
	key := CacheKey(refs)
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}

	units := make([]*media.Unit, 0, len(refs))
	for _, ref := range refs {
		unit, err := c.loader.Load(ctx, ref)
		if err != nil {
			return Result{}, err
		}
		units = append(units, unit)
	}

	text, err := c.generateWithRetries(ctx, units)
	if err != nil {
		return Result{}, err
	}

	result := parseResult(text)
	if result.Confidence < ConfidenceFloor && !result.Unknown() {
		log.Printf("[IDENTIFY] discarding low-confidence title %q (%.2f)", result.Title, result.Confidence)
		result.Title = UnknownTitle
	}

	c.cache.Add(key, result)
	return result, nil
}

func (c *Client) generateWithRetries(ctx context.Context, units []*media.Unit) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		text, err := c.model.Generate(ctx, instruction, units)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if attempt == c.retries {
			break
		}
		log.Printf("[IDENTIFY] model call attempt %d/%d failed: %v", attempt, c.retries, err)

		// Linear backoff: the wait grows with the attempt index.
		select {
		case <-ctx.Done():
			return "", &ModelCallError{Attempts: attempt, Err: ctx.Err()}
		case <-time.After(time.Duration(attempt) * c.backoff):
		}
	}

	return "", &ModelCallError{Attempts: c.retries, Err: lastErr}
}

// parseResult decodes the model's JSON reply. Any malformed or incomplete
// answer is a recoverable "could not identify", never an error.
func parseResult(text string) Result {
	var r Result
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &r); err != nil {
		return Result{Title: UnknownTitle}
	}
	if strings.TrimSpace(r.Title) == "" {
		return Result{Title: UnknownTitle}
	}
	r.Title = strings.TrimSpace(r.Title)
	return r
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
