// Package vectorindex implements AIFS's embedding similarity search: a flat
// O(n) L2 scan over an in-memory slice, persisted as JSON. Deletion
// rebuilds the slice in place rather than marking entries as tombstoned.
package vectorindex

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cuemby/aifs/pkg/aifserrors"
)

// Match is one similarity search result.
type Match struct {
	AssetID  string  `json:"asset_id"`
	Distance float64 `json:"distance"`
}

type entry struct {
	AssetID string    `json:"asset_id"`
	Vector  []float32 `json:"vector"`
}

// Index is a flat, in-memory L2 vector index with a fixed dimension.
type Index struct {
	mu        sync.RWMutex
	dimension int
	entries   []entry
	path      string
}

type indexFile struct {
	Dimension int     `json:"dimension"`
	Entries   []entry `json:"entries"`
}

// Open loads (or creates) an index file at rootDir/vector_index.json with
// the given embedding dimension.
func Open(rootDir string, dimension int) (*Index, error) {
	idx := &Index{
		dimension: dimension,
		path:      filepath.Join(rootDir, "vector_index.json"),
	}
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, aifserrors.Wrap(aifserrors.Internal, "create vector index dir", err)
	}
	if err := idx.load(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) load() error {
	data, err := os.ReadFile(idx.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return aifserrors.Wrap(aifserrors.Internal, "read vector index", err)
	}
	var f indexFile
	if err := json.Unmarshal(data, &f); err != nil {
		return aifserrors.Wrap(aifserrors.DataCorruption, "parse vector index", err)
	}
	idx.dimension = f.Dimension
	idx.entries = f.Entries
	return nil
}

func (idx *Index) save() error {
	f := indexFile{Dimension: idx.dimension, Entries: idx.entries}
	data, err := json.Marshal(f)
	if err != nil {
		return aifserrors.Wrap(aifserrors.Internal, "marshal vector index", err)
	}
	return os.WriteFile(idx.path, data, 0o644)
}

// Dimension returns the index's configured embedding dimension.
func (idx *Index) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimension
}

// Add inserts an embedding for assetID. Multiple embeddings may be added
// for the same asset (e.g. chunked embeddings); Delete removes all of them.
func (idx *Index) Add(assetID string, vector []float32) error {
	if len(vector) != idx.dimension {
		return aifserrors.InvalidArgumentf("vector", "must have dimension matching the index")
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = append(idx.entries, entry{AssetID: assetID, Vector: append([]float32(nil), vector...)})
	return idx.save()
}

// Search returns the k nearest neighbors to query by L2 distance, ascending.
func (idx *Index) Search(query []float32, k int) ([]Match, error) {
	if len(query) != idx.dimension {
		return nil, aifserrors.InvalidArgumentf("query", "must have dimension matching the index")
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	matches := make([]Match, 0, len(idx.entries))
	for _, e := range idx.entries {
		matches = append(matches, Match{AssetID: e.AssetID, Distance: l2Distance(query, e.Vector)})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if k > 0 && k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// Delete removes all embeddings for assetID, rebuilding the backing slice.
// Returns true if at least one embedding was removed.
func (idx *Index) Delete(assetID string) (bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	kept := idx.entries[:0]
	removed := false
	for _, e := range idx.entries {
		if e.AssetID == assetID {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	idx.entries = kept
	if !removed {
		return false, nil
	}
	return true, idx.save()
}

// Count returns the number of embeddings currently indexed.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
