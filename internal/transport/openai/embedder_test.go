package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nutrisafe/internal/domain"
	"github.com/kailas-cloud/nutrisafe/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

// --- Fake provider ---

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions"`
}

type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// fakeProvider embeds a name as [len(name), index] and answers in reverse
// order, which real providers are allowed to do.
type fakeProvider struct {
	t        *testing.T
	requests []embeddingRequest
	drop     int
}

func (f *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/models":
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
		return
	case "/embeddings":
	default:
		f.t.Errorf("unexpected path: %s", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
		f.t.Errorf("authorization = %q", got)
	}

	var req embeddingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.t.Fatalf("decode request: %v", err)
	}
	f.requests = append(f.requests, req)

	resp := embeddingResponse{Object: "list", Model: req.Model}
	for i := len(req.Input) - 1 - f.drop; i >= 0; i-- {
		resp.Data = append(resp.Data, embeddingData{
			Object:    "embedding",
			Embedding: []float32{float32(len(req.Input[i])), float32(i)},
			Index:     i,
		})
	}
	resp.Usage.PromptTokens = 3 * len(req.Input)
	resp.Usage.TotalTokens = 3 * len(req.Input)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func newEmbedder(t *testing.T, h http.Handler) *Embedder {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return NewEmbedder(&Config{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		Model:      "text-embedding-3-small",
		Dimensions: 2,
		Provider:   "openai",
		Logger:     zap.NewNop(),
	})
}

// --- Tests ---

func TestEmbed_SendsModelAndDimensions(t *testing.T) {
	fake := &fakeProvider{t: t}
	emb := newEmbedder(t, fake)

	res, err := emb.Embed(context.Background(), "Coumadin")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(res.Embedding) != 2 || res.Embedding[0] != 8 {
		t.Errorf("embedding = %v", res.Embedding)
	}
	if res.PromptTokens != 3 || res.TotalTokens != 3 {
		t.Errorf("tokens = %d/%d", res.PromptTokens, res.TotalTokens)
	}
	req := fake.requests[0]
	if req.Model != "text-embedding-3-small" || req.Dimensions != 2 || len(req.Input) != 1 || req.Input[0] != "Coumadin" {
		t.Errorf("request = %+v", req)
	}
}

func TestBatchEmbed_OrdersByIndex(t *testing.T) {
	fake := &fakeProvider{t: t}
	emb := newEmbedder(t, fake)

	names := []string{"warfarin", "jantoven", "st john's wort"}
	res, err := emb.BatchEmbed(context.Background(), names)
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	if len(fake.requests) != 1 {
		t.Fatalf("requests = %d, want one call for the batch", len(fake.requests))
	}
	for i, name := range names {
		if got := res.Embeddings[i]; got[0] != float32(len(name)) || got[1] != float32(i) {
			t.Errorf("embedding[%d] = %v, want vector of %q", i, got, name)
		}
	}
	if res.TotalTokens != 9 {
		t.Errorf("total tokens = %d", res.TotalTokens)
	}
}

func TestBatchEmbed_EmptySkipsProvider(t *testing.T) {
	fake := &fakeProvider{t: t}
	emb := newEmbedder(t, fake)

	res, err := emb.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	if len(res.Embeddings) != 0 || len(fake.requests) != 0 {
		t.Errorf("res = %+v, requests = %d", res, len(fake.requests))
	}
}

func TestBatchEmbed_CountMismatch(t *testing.T) {
	emb := newEmbedder(t, &fakeProvider{t: t, drop: 1})

	_, err := emb.BatchEmbed(context.Background(), []string{"kale", "spinach"})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("err = %v, want ErrEmbeddingProviderError", err)
	}
}

func TestEmbed_APIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail body", http.StatusBadRequest, `{"detail":"model not found"}`, "model not found"},
		{"openai error body", http.StatusUnauthorized, `{"error":{"message":"invalid api key","type":"auth"}}`, "invalid api key"},
		{"plain body", http.StatusBadGateway, `upstream unavailable`, "502"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			emb := newEmbedder(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))

			_, err := emb.Embed(context.Background(), "grapefruit")
			if !errors.Is(err, domain.ErrEmbeddingProviderError) {
				t.Fatalf("err = %v, want ErrEmbeddingProviderError", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want it to mention %q", err, tc.want)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	emb := newEmbedder(t, &fakeProvider{t: t})
	if err := emb.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}
