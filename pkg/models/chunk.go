package models

import "fmt"

// Chunk is one bounded date sub-interval assigned to a source: the unit of
// fetch, cache, and retry. Its identity is (range, source); chunks within a
// plan are disjoint and their union equals the requested range.
type Chunk struct {
	Range  DateRange  `json:"range"`
	Source SourceKind `json:"source"`
}

// Key returns the chunk's cache key, e.g. "sentiment:20240101-20240107".
// The key is total over chunk identity: two chunks share a key only if they
// share range and source.
func (c Chunk) Key() string {
	return fmt.Sprintf("%s:%s-%s", c.Source, c.Range.Start.Compact(), c.Range.End.Compact())
}

// String formats the chunk for logs.
func (c Chunk) String() string {
	return fmt.Sprintf("%s[%s]", c.Source, c.Range)
}
