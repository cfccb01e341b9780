package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingsResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
}

type embeddingData struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// fakeOpenAI serves the embeddings endpoint, mapping each input through vecs
// and counting requests.
func fakeOpenAI(t *testing.T, vecs map[string][]float32, requests *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*requests++
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}

		resp := embeddingsResponse{Object: "list", Model: req.Model}
		for i, input := range req.Input {
			vec, ok := vecs[input]
			if !ok {
				t.Errorf("no fake vector for input %q", input)
			}
			resp.Data = append(resp.Data, embeddingData{Object: "embedding", Index: i, Embedding: vec})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func testOpenAIEmbedder(t *testing.T, baseURL string, dims int) *OpenAIEmbedder {
	t.Helper()
	e, err := NewOpenAIEmbedder(OpenAIOptions{
		APIKey:            "test-key",
		BaseURL:           baseURL,
		Model:             "text-embedding-3-small",
		Dimensions:        dims,
		RequestsPerSecond: 1000,
		Burst:             1000,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder failed: %v", err)
	}
	return e
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	var requests int
	server := fakeOpenAI(t, map[string][]float32{"hello": {3, 4}}, &requests)
	defer server.Close()

	e := testOpenAIEmbedder(t, server.URL, 2)

	emb, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	// The raw [3,4] comes back unit-normalized.
	if math.Abs(float64(emb[0])-0.6) > 1e-6 || math.Abs(float64(emb[1])-0.8) > 1e-6 {
		t.Errorf("embedding = %v, want [0.6 0.8]", emb)
	}
}

func TestOpenAIEmbedder_EmbedUsesCache(t *testing.T) {
	var requests int
	server := fakeOpenAI(t, map[string][]float32{"hello": {1, 0}}, &requests)
	defer server.Close()

	e := testOpenAIEmbedder(t, server.URL, 2)
	ctx := context.Background()

	if _, err := e.Embed(ctx, "hello"); err != nil {
		t.Fatalf("first Embed failed: %v", err)
	}
	if _, err := e.Embed(ctx, "hello"); err != nil {
		t.Fatalf("second Embed failed: %v", err)
	}
	if requests != 1 {
		t.Errorf("server saw %d requests, want 1", requests)
	}
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	var requests int
	server := fakeOpenAI(t, map[string][]float32{
		"alpha": {1, 0},
		"beta":  {0, 1},
		"gamma": {1, 1},
	}, &requests)
	defer server.Close()

	e := testOpenAIEmbedder(t, server.URL, 2)
	ctx := context.Background()

	// Pre-cache one text; the batch request should only carry the misses.
	if _, err := e.Embed(ctx, "beta"); err != nil {
		t.Fatalf("priming Embed failed: %v", err)
	}

	out, err := e.EmbedBatch(ctx, []string{"alpha", "beta", "gamma"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d embeddings, want 3", len(out))
	}
	if requests != 2 {
		t.Errorf("server saw %d requests, want 2 (prime + one batch)", requests)
	}

	// Order follows the input order, cached entries included.
	if out[0][0] < 0.99 {
		t.Errorf("out[0] = %v, want alpha's [1 0]", out[0])
	}
	if out[1][1] < 0.99 {
		t.Errorf("out[1] = %v, want beta's [0 1]", out[1])
	}
	want := float32(1 / math.Sqrt2)
	if math.Abs(float64(out[2][0]-want)) > 1e-6 {
		t.Errorf("out[2] = %v, want gamma's normalized [1 1]", out[2])
	}
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	var requests int
	server := fakeOpenAI(t, map[string][]float32{"hello": {1, 2, 3}}, &requests)
	defer server.Close()

	e := testOpenAIEmbedder(t, server.URL, 2)

	_, err := e.Embed(context.Background(), "hello")
	if !errors.Is(err, ErrEmbedding) {
		t.Fatalf("error = %v, want ErrEmbedding", err)
	}
	if !strings.Contains(err.Error(), "dimension mismatch") {
		t.Errorf("error = %v, want mention of dimension mismatch", err)
	}
}

func TestNewOpenAIEmbedder_Validation(t *testing.T) {
	if _, err := NewOpenAIEmbedder(OpenAIOptions{}, nil); err == nil {
		t.Error("expected error for missing api key")
	}
	if _, err := NewOpenAIEmbedder(OpenAIOptions{APIKey: "k", Model: "custom-model"}, nil); err == nil {
		t.Error("expected error for unknown model without explicit dimensions")
	}
}

func TestNewOpenAIEmbedder_ModelDimensions(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"text-embedding-3-large", 3072},
		{"text-embedding-3-small", 1536},
		{"text-embedding-ada-002", 1536},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			e, err := NewOpenAIEmbedder(OpenAIOptions{APIKey: "k", Model: tt.model}, nil)
			if err != nil {
				t.Fatalf("NewOpenAIEmbedder failed: %v", err)
			}
			if e.Dimensions() != tt.want {
				t.Errorf("Dimensions() = %d, want %d", e.Dimensions(), tt.want)
			}
		})
	}
}
