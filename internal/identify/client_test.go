package identify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkravets/reelid/internal/media"
)

type mockLoader struct {
	calls int
	err   error
}

func (m *mockLoader) Load(ctx context.Context, ref media.Reference) (*media.Unit, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &media.Unit{Data: []byte(ref), MIMEType: "image/jpeg", Kind: media.KindImage}, nil
}

type mockModel struct {
	calls     int
	responses []string
	errs      []error
}

func (m *mockModel) Generate(ctx context.Context, prompt string, units []*media.Unit) (string, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	return m.responses[len(m.responses)-1], nil
}

func newTestClient(t *testing.T, loader *mockLoader, model *mockModel) *Client {
	t.Helper()
	client, err := NewClient(loader, model, Config{Backoff: time.Millisecond})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestIdentifyCacheHit(t *testing.T) {
	loader := &mockLoader{}
	model := &mockModel{responses: []string{`{"title":"Inception","confidence_score":0.95,"reasoning":"spinning top"}`}}
	client := newTestClient(t, loader, model)

	refs := []media.Reference{"https://example.com/a.jpg", "https://example.com/b.jpg"}

	first, err := client.Identify(context.Background(), refs)
	if err != nil {
		t.Fatalf("first identify: %v", err)
	}
	second, err := client.Identify(context.Background(), refs)
	if err != nil {
		t.Fatalf("second identify: %v", err)
	}

	if first != second {
		t.Errorf("expected identical results, got %+v and %+v", first, second)
	}
	if model.calls != 1 {
		t.Errorf("expected 1 model call, got %d", model.calls)
	}
	if loader.calls != len(refs) {
		t.Errorf("expected %d loader calls, got %d", len(refs), loader.calls)
	}
}

func TestIdentifyReorderIsCacheMiss(t *testing.T) {
	loader := &mockLoader{}
	model := &mockModel{responses: []string{`{"title":"Heat","confidence_score":0.9,"reasoning":"diner scene"}`}}
	client := newTestClient(t, loader, model)

	if _, err := client.Identify(context.Background(), []media.Reference{"a", "b"}); err != nil {
		t.Fatalf("identify: %v", err)
	}
	if _, err := client.Identify(context.Background(), []media.Reference{"b", "a"}); err != nil {
		t.Fatalf("identify reordered: %v", err)
	}

	if model.calls != 2 {
		t.Errorf("expected reordered references to miss the cache, got %d model calls", model.calls)
	}
}

func TestIdentifyConfidenceFloor(t *testing.T) {
	loader := &mockLoader{}
	model := &mockModel{responses: []string{`{"title":"Some Hallucinated Film","confidence_score":0.4,"reasoning":"maybe"}`}}
	client := newTestClient(t, loader, model)

	result, err := client.Identify(context.Background(), []media.Reference{"a"})
	if err != nil {
		t.Fatalf("identify: %v", err)
	}

	if result.Title != UnknownTitle {
		t.Errorf("expected title %q below the confidence floor, got %q", UnknownTitle, result.Title)
	}
	if !result.Unknown() {
		t.Error("expected Unknown() to report true")
	}
}

func TestIdentifyMalformedResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "I think this is Inception."},
		{"truncated json", `{"title":"Incep`},
		{"missing title", `{"confidence_score":0.9,"reasoning":"sure"}`},
		{"empty title", `{"title":"  ","confidence_score":0.9}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &mockLoader{}, &mockModel{responses: []string{tt.response}})

			result, err := client.Identify(context.Background(), []media.Reference{media.Reference(tt.name)})
			if err != nil {
				t.Fatalf("expected degraded result, got error: %v", err)
			}
			if result.Title != UnknownTitle {
				t.Errorf("expected title %q, got %q", UnknownTitle, result.Title)
			}
			if result.Confidence != 0 {
				t.Errorf("expected confidence 0, got %f", result.Confidence)
			}
		})
	}
}

func TestIdentifyStripsCodeFences(t *testing.T) {
	response := "```json\n{\"title\":\"Blade Runner\",\"confidence_score\":0.92,\"reasoning\":\"neon cityscape\"}\n```"
	client := newTestClient(t, &mockLoader{}, &mockModel{responses: []string{response}})

	result, err := client.Identify(context.Background(), []media.Reference{"a"})
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	if result.Title != "Blade Runner" {
		t.Errorf("expected title Blade Runner, got %q", result.Title)
	}
	if result.Confidence != 0.92 {
		t.Errorf("expected confidence 0.92, got %f", result.Confidence)
	}
}

func TestIdentifyRetriesTransientFailures(t *testing.T) {
	model := &mockModel{
		errs:      []error{errors.New("timeout"), errors.New("503")},
		responses: []string{"", "", `{"title":"Alien","confidence_score":0.9,"reasoning":"xenomorph"}`},
	}
	client := newTestClient(t, &mockLoader{}, model)

	result, err := client.Identify(context.Background(), []media.Reference{"a"})
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	if result.Title != "Alien" {
		t.Errorf("expected title Alien, got %q", result.Title)
	}
	if model.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", model.calls)
	}
}

func TestIdentifyRetriesExhausted(t *testing.T) {
	last := errors.New("still down")
	model := &mockModel{errs: []error{errors.New("down"), errors.New("down"), last}, responses: []string{""}}
	client := newTestClient(t, &mockLoader{}, model)

	_, err := client.Identify(context.Background(), []media.Reference{"a"})

	var modelErr *ModelCallError
	if !errors.As(err, &modelErr) {
		t.Fatalf("expected ModelCallError, got %v", err)
	}
	if modelErr.Attempts != DefaultRetries {
		t.Errorf("expected %d attempts, got %d", DefaultRetries, modelErr.Attempts)
	}
	if !errors.Is(err, last) {
		t.Error("expected the last underlying error to be wrapped")
	}

	// A failed identification must not poison the cache.
	if model.calls != DefaultRetries {
		t.Fatalf("expected %d calls, got %d", DefaultRetries, model.calls)
	}
	model.errs = nil
	model.responses = []string{`{"title":"Alien","confidence_score":0.9,"reasoning":""}`}
	if result, err := client.Identify(context.Background(), []media.Reference{"a"}); err != nil || result.Title != "Alien" {
		t.Errorf("expected recovery after failure, got %+v, %v", result, err)
	}
}

func TestIdentifyLoaderErrorPropagates(t *testing.T) {
	fetchErr := &media.FetchError{URL: "https://example.com/a.jpg", Status: 404}
	loader := &mockLoader{err: fetchErr}
	model := &mockModel{responses: []string{`{}`}}
	client := newTestClient(t, loader, model)

	_, err := client.Identify(context.Background(), []media.Reference{"https://example.com/a.jpg"})

	var got *media.FetchError
	if !errors.As(err, &got) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if model.calls != 0 {
		t.Errorf("expected no model calls after a load failure, got %d", model.calls)
	}
}

func TestCacheKeyOrderSensitive(t *testing.T) {
	a := CacheKey([]media.Reference{"x", "y", "z"})
	b := CacheKey([]media.Reference{"z", "y", "x"})
	if a == b {
		t.Error("expected order-sensitive cache keys")
	}
	if a != "x|y|z" {
		t.Errorf("expected key x|y|z, got %q", a)
	}
}
