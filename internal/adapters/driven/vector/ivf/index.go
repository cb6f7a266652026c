// Package ivf provides an approximate inverted-file vector index.
//
// Vectors are clustered with spherical k-means. A query scores the centroids
// first and scans only the members of the nprobe closest clusters. Until the
// index holds MinTrainSize vectors it answers exactly.
package ivf

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/vector"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Verify interface compliance.
var _ driven.VectorIndex = (*Index)(nil)

const (
	// MinTrainSize is the number of vectors per list needed before clustering.
	MinTrainSize = 4

	kmeansIterations = 12
	seed             = 0x5eed
)

// Config configures an IVF index.
type Config struct {
	Dimensions      int
	Lists           int
	Probes          int
	RecallTolerance float64
	Mapping         domain.ScoreMapping
}

type entry struct {
	meta driven.IndexEntry
	unit []float32
	list int
}

// Index is an inverted-file index over unit vectors.
type Index struct {
	mu        sync.RWMutex
	cfg       Config
	entries   map[string]*entry
	byDoc     map[string]map[string]struct{}
	centroids [][]float32
	members   []map[string]struct{}
	trainedAt int
}

// New creates an empty index.
func New(cfg Config) *Index {
	if cfg.Lists <= 0 {
		cfg.Lists = 1
	}
	if cfg.Probes <= 0 {
		cfg.Probes = 1
	}
	if cfg.Probes > cfg.Lists {
		cfg.Probes = cfg.Lists
	}
	if !cfg.Mapping.IsValid() {
		cfg.Mapping = domain.ScoreMappingAffine
	}
	return &Index{
		cfg:     cfg,
		entries: make(map[string]*entry),
		byDoc:   make(map[string]map[string]struct{}),
	}
}

// Upsert adds or replaces entries atomically. The index retrains when it
// has doubled in size since the last training.
func (idx *Index) Upsert(ctx context.Context, entries ...driven.IndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	dims := idx.Dimensions()
	if dims == 0 {
		dims = len(entries[0].Vector)
	}

	prepared := make([]*entry, 0, len(entries))
	for _, e := range entries {
		if err := vector.CheckDimensions(dims, e.Vector); err != nil {
			return err
		}
		unit, err := vector.Normalize(e.Vector)
		if err != nil {
			return err
		}
		meta := e
		meta.Vector = nil
		prepared = append(prepared, &entry{meta: meta, unit: unit, list: -1})
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.cfg.Dimensions == 0 {
		idx.cfg.Dimensions = dims
	} else if idx.cfg.Dimensions != dims {
		return vector.CheckDimensions(idx.cfg.Dimensions, entries[0].Vector)
	}

	for _, e := range prepared {
		idx.remove(e.meta.ChunkID)
		idx.entries[e.meta.ChunkID] = e
		doc, ok := idx.byDoc[e.meta.DocumentID]
		if !ok {
			doc = make(map[string]struct{})
			idx.byDoc[e.meta.DocumentID] = doc
		}
		doc[e.meta.ChunkID] = struct{}{}
		if idx.centroids != nil {
			idx.assign(e)
		}
	}

	if idx.needsTraining() {
		idx.train()
	}
	return nil
}

func (idx *Index) needsTraining() bool {
	n := len(idx.entries)
	if n < idx.cfg.Lists*MinTrainSize {
		return false
	}
	return idx.centroids == nil || n >= 2*idx.trainedAt
}

// Train clusters the current vectors regardless of size.
func (idx *Index) Train() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.train()
}

// train runs spherical k-means. Caller holds the write lock.
func (idx *Index) train() {
	ids := make([]string, 0, len(idx.entries))
	for id := range idx.entries {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return
	}
	sort.Strings(ids)

	k := min(idx.cfg.Lists, len(ids))
	points := make([][]float32, len(ids))
	for i, id := range ids {
		points[i] = idx.entries[id].unit
	}

	centroids := seedCentroids(points, k)
	labels := make([]int, len(points))
	for iter := 0; iter < kmeansIterations; iter++ {
		changed := false
		for i, p := range points {
			best := nearest(centroids, p)
			if iter == 0 || labels[i] != best {
				changed = true
			}
			labels[i] = best
		}
		centroids = recompute(points, labels, centroids)
		if !changed {
			break
		}
	}

	idx.centroids = centroids
	idx.members = make([]map[string]struct{}, k)
	for i := range idx.members {
		idx.members[i] = make(map[string]struct{})
	}
	for i, id := range ids {
		e := idx.entries[id]
		e.list = labels[i]
		idx.members[e.list][id] = struct{}{}
	}
	idx.trainedAt = len(ids)
	logger.Debug("ivf: trained %d lists over %d vectors", k, len(ids))
}

// seedCentroids picks initial centroids with k-means++ from a fixed seed.
func seedCentroids(points [][]float32, k int) [][]float32 {
	rng := rand.New(rand.NewPCG(seed, uint64(len(points))))
	centroids := make([][]float32, 0, k)
	centroids = append(centroids, slices.Clone(points[rng.IntN(len(points))]))

	dist := make([]float64, len(points))
	for len(centroids) < k {
		var total float64
		for i, p := range points {
			d := 1 - vector.Dot(p, centroids[nearest(centroids, p)])
			if d < 0 {
				d = 0
			}
			dist[i] = d * d
			total += dist[i]
		}
		if total == 0 {
			// Remaining points duplicate existing centroids.
			centroids = append(centroids, slices.Clone(points[len(centroids)%len(points)]))
			continue
		}
		target := rng.Float64() * total
		chosen := len(points) - 1
		for i, d := range dist {
			target -= d
			if target <= 0 {
				chosen = i
				break
			}
		}
		centroids = append(centroids, slices.Clone(points[chosen]))
	}
	return centroids
}

func recompute(points [][]float32, labels []int, prev [][]float32) [][]float32 {
	dims := len(points[0])
	sums := make([][]float64, len(prev))
	counts := make([]int, len(prev))
	for i := range sums {
		sums[i] = make([]float64, dims)
	}
	for i, p := range points {
		c := labels[i]
		counts[c]++
		for d, x := range p {
			sums[c][d] += float64(x)
		}
	}

	out := make([][]float32, len(prev))
	for c := range prev {
		if counts[c] == 0 {
			out[c] = prev[c]
			continue
		}
		mean := make([]float32, dims)
		for d := range mean {
			mean[d] = float32(sums[c][d] / float64(counts[c]))
		}
		unit, err := vector.Normalize(mean)
		if err != nil {
			out[c] = prev[c]
			continue
		}
		out[c] = unit
	}
	return out
}

func nearest(centroids [][]float32, p []float32) int {
	best, bestScore := 0, -2.0
	for i, c := range centroids {
		if s := vector.Dot(p, c); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}

// assign places an entry in its nearest list. Caller holds the write lock.
func (idx *Index) assign(e *entry) {
	e.list = nearest(idx.centroids, e.unit)
	idx.members[e.list][e.meta.ChunkID] = struct{}{}
}

// remove deletes a chunk. Caller holds the write lock.
func (idx *Index) remove(chunkID string) {
	old, ok := idx.entries[chunkID]
	if !ok {
		return
	}
	delete(idx.entries, chunkID)
	if old.list >= 0 && old.list < len(idx.members) {
		delete(idx.members[old.list], chunkID)
	}
	if doc, ok := idx.byDoc[old.meta.DocumentID]; ok {
		delete(doc, chunkID)
		if len(doc) == 0 {
			delete(idx.byDoc, old.meta.DocumentID)
		}
	}
}

// Search returns the k best entries among the probed lists.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []driven.VectorHit{}, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.search(query, k, idx.cfg.Probes)
}

// search runs a query with the given probe count. Caller holds a lock.
func (idx *Index) search(query []float32, k, probes int) ([]driven.VectorHit, error) {
	if idx.cfg.Dimensions == 0 {
		return []driven.VectorHit{}, nil
	}
	if err := vector.CheckDimensions(idx.cfg.Dimensions, query); err != nil {
		return nil, err
	}
	unit, err := vector.Normalize(query)
	if err != nil {
		return nil, err
	}

	top := vector.NewTopK(k)
	if idx.centroids == nil || probes >= len(idx.centroids) {
		for _, e := range idx.entries {
			top.Offer(idx.hit(e, unit))
		}
		return top.Results(), nil
	}

	for _, list := range idx.closestLists(unit, probes) {
		for id := range idx.members[list] {
			top.Offer(idx.hit(idx.entries[id], unit))
		}
	}
	return top.Results(), nil
}

func (idx *Index) closestLists(unit []float32, probes int) []int {
	order := make([]int, len(idx.centroids))
	scores := make([]float64, len(idx.centroids))
	for i, c := range idx.centroids {
		order[i] = i
		scores[i] = vector.Dot(unit, c)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	return order[:probes]
}

func (idx *Index) hit(e *entry, unit []float32) driven.VectorHit {
	return driven.VectorHit{
		ChunkID:    e.meta.ChunkID,
		DocumentID: e.meta.DocumentID,
		ChunkIndex: e.meta.ChunkIndex,
		UploadedAt: e.meta.UploadedAt,
		Score:      idx.cfg.Mapping.Apply(vector.Dot(unit, e.unit)),
	}
}

// Calibrate measures recall@k of the sample queries against exact search
// and doubles nprobe until recall reaches 1 - RecallTolerance or every list
// is probed. It returns the recall achieved with the final probe count.
func (idx *Index) Calibrate(ctx context.Context, queries [][]float32, k int) (float64, error) {
	if k <= 0 || len(queries) == 0 {
		return 1, nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.centroids == nil {
		return 1, nil
	}

	exact := make([]map[string]struct{}, len(queries))
	for i, q := range queries {
		hits, err := idx.search(q, k, len(idx.centroids))
		if err != nil {
			return 0, fmt.Errorf("calibrate: %w", err)
		}
		exact[i] = idSet(hits)
	}

	target := 1 - idx.cfg.RecallTolerance
	probes := idx.cfg.Probes
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		recall, err := idx.recall(queries, exact, k, probes)
		if err != nil {
			return 0, err
		}
		if recall >= target || probes >= len(idx.centroids) {
			idx.cfg.Probes = probes
			logger.Debug("ivf: calibrated nprobe=%d recall=%.3f", probes, recall)
			return recall, nil
		}
		probes = min(probes*2, len(idx.centroids))
	}
}

func (idx *Index) recall(queries [][]float32, exact []map[string]struct{}, k, probes int) (float64, error) {
	var found, total int
	for i, q := range queries {
		hits, err := idx.search(q, k, probes)
		if err != nil {
			return 0, err
		}
		for _, h := range hits {
			if _, ok := exact[i][h.ChunkID]; ok {
				found++
			}
		}
		total += len(exact[i])
	}
	if total == 0 {
		return 1, nil
	}
	return float64(found) / float64(total), nil
}

func idSet(hits []driven.VectorHit) map[string]struct{} {
	set := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		set[h.ChunkID] = struct{}{}
	}
	return set
}

// DeleteDocument removes every entry of the document.
func (idx *Index) DeleteDocument(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for chunkID := range idx.byDoc[documentID] {
		idx.remove(chunkID)
	}
	return nil
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Dimensions returns the accepted vector size.
func (idx *Index) Dimensions() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.cfg.Dimensions
}

// Probes returns the current number of lists searched per query.
func (idx *Index) Probes() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.cfg.Probes
}

// Trained reports whether the index has been clustered.
func (idx *Index) Trained() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.centroids != nil
}

// Close is a no-op.
func (idx *Index) Close() error {
	return nil
}
