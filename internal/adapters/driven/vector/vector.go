// Package vector holds the similarity and ranking rules shared by every
// vector index adapter, so that all backends score and order identically.
package vector

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Normalize returns a unit-length copy of v.
// Zero vectors have no direction and are rejected.
func Normalize(v []float32) ([]float32, error) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, fmt.Errorf("%w: vector has no direction", domain.ErrInvalidInput)
	}

	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}

// Dot returns the dot product of two equal-length vectors.
// For unit vectors this is the cosine similarity.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// CheckDimensions validates that every vector has the expected size.
func CheckDimensions(dims int, vectors ...[]float32) error {
	for _, v := range vectors {
		if len(v) != dims {
			return fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(v), dims)
		}
	}
	return nil
}

// Before reports whether a ranks ahead of b: higher score first, then
// earlier upload, then lower chunk index, then chunk id.
func Before(a, b driven.VectorHit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.UploadedAt.Equal(b.UploadedAt) {
		return a.UploadedAt.Before(b.UploadedAt)
	}
	if a.ChunkIndex != b.ChunkIndex {
		return a.ChunkIndex < b.ChunkIndex
	}
	return a.ChunkID < b.ChunkID
}

// TopK keeps the k best hits offered to it.
type TopK struct {
	k    int
	hits hitHeap
}

// NewTopK creates a collector for the k best hits.
func NewTopK(k int) *TopK {
	return &TopK{k: k, hits: make(hitHeap, 0, k)}
}

// Offer considers a hit for inclusion.
func (t *TopK) Offer(hit driven.VectorHit) {
	if t.k <= 0 {
		return
	}
	if len(t.hits) < t.k {
		heap.Push(&t.hits, hit)
		return
	}
	if Before(hit, t.hits[0]) {
		t.hits[0] = hit
		heap.Fix(&t.hits, 0)
	}
}

// Results returns the collected hits, best first.
func (t *TopK) Results() []driven.VectorHit {
	out := make([]driven.VectorHit, len(t.hits))
	h := make(hitHeap, len(t.hits))
	copy(h, t.hits)
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(driven.VectorHit)
	}
	return out
}

// hitHeap is a min-heap with the worst-ranked hit at the root.
type hitHeap []driven.VectorHit

func (h hitHeap) Len() int           { return len(h) }
func (h hitHeap) Less(i, j int) bool { return Before(h[j], h[i]) }
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *hitHeap) Push(x any) { *h = append(*h, x.(driven.VectorHit)) }

func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
