package benchmark

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/store"
)

func BenchmarkFlatFileSearch(b *testing.B) {
	st, err := store.OpenFlatFile(filepath.Join(b.TempDir(), "snapshot.json"), 384, "mock")
	if err != nil {
		b.Fatal(err)
	}
	defer st.Close()

	ctx := context.Background()
	chunks := make([]models.Chunk, 1000)
	for i := range chunks {
		vec := make([]float32, 384)
		vec[i%384] = 1.0
		vec[(i+1)%384] = float32(i) / 1000
		chunks[i] = models.Chunk{
			Content:   fmt.Sprintf("chunk %d", i),
			Embedding: vec,
			SourceID:  fmt.Sprintf("doc-%d.txt", i%50),
		}
	}
	if _, err := st.InsertMany(ctx, chunks); err != nil {
		b.Fatal(err)
	}

	query := make([]float32, 384)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = st.Search(ctx, query, 10)
	}
}

func BenchmarkCosine(b *testing.B) {
	x := make([]float32, 384)
	y := make([]float32, 384)
	for i := range x {
		x[i] = float32(i) / 384
		y[i] = float32(384-i) / 384
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.Cosine(x, y)
	}
}

func BenchmarkMockEmbedder_Embed(b *testing.B) {
	e := embedding.NewMockEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark query text for embedding")
	}
}
