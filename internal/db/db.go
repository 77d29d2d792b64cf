// Package db defines the storage contract for the vector partitions.
package db

import (
	"context"
	"time"
)

// Store is the database facade. Consumers depend on the narrow
// sub-interfaces, not on Store itself.
type Store interface {
	Pinger
	Searcher
	HashReader
	KVStore
	IndexInspector
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KNNQuery describes one FT.SEARCH vector similarity query.
type KNNQuery struct {
	IndexName    string
	Filter       string // raw pre-filter expression, e.g. `@kind:{item}`
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchEntry is one raw hit from an FT.SEARCH response.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// SearchResult is the parsed FT.SEARCH response.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// Searcher runs KNN queries over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}

// HashReader reads stored documents by key.
type HashReader interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// KVStore provides simple key-value operations, used by the embedding cache.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexInfo holds the subset of FT.INFO the service inspects at startup.
type IndexInfo struct {
	Name      string
	VectorDim int
}

// IndexInspector reads FT index metadata.
type IndexInspector interface {
	IndexInfo(ctx context.Context, name string) (*IndexInfo, error)
}
