// Package match defines the candidate match produced by a vector partition
// lookup, prior to merging and reranking.
package match

// Candidate is a single retrieval hit with its raw similarity score.
type Candidate struct {
	id         string
	similarity float64
	partition  string
	content    string
}

// New creates a candidate match.
func New(id string, similarity float64, partition, content string) Candidate {
	return Candidate{id: id, similarity: similarity, partition: partition, content: content}
}

// ID returns the entity identifier (QID or PID).
func (c *Candidate) ID() string { return c.id }

// Similarity returns the raw similarity score, higher is closer.
func (c *Candidate) Similarity() float64 { return c.similarity }

// Partition returns the language partition this hit came from.
func (c *Candidate) Partition() string { return c.partition }

// Content returns the stored textual representation, used as the rerank document.
func (c *Candidate) Content() string { return c.content }
