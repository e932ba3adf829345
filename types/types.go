package types

// StreamHandler receives answer text fragments as generation streams them.
type StreamHandler func(fragment string)

// SearchFilter restricts retrieval to a document subset or tag set. Filters
// are applied inside the index query, before similarity ranking.
type SearchFilter struct {
	DocumentIDs []string `json:"document_ids,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Empty reports whether the filter restricts nothing.
func (f SearchFilter) Empty() bool {
	return len(f.DocumentIDs) == 0 && len(f.Tags) == 0
}
