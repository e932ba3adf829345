package types

// Document represents an ingested source document. The ID is derived from
// the content hash, so re-uploading identical bytes yields the same document
// and changed content produces a new one.
type Document struct {
	ID         string   `bson:"_id" json:"id"`
	Title      string   `bson:"title" json:"title"`
	Author     string   `bson:"author" json:"author"`
	Source     string   `bson:"source" json:"source"`
	Tags       []string `bson:"tags" json:"tags"`
	TotalPages int      `bson:"total_pages" json:"total_pages"`
	CreatedAt  int64    `bson:"created_at" json:"created_at"`
}

// Chunk is a citation-addressable unit of document text. CharStart and
// CharEnd are offsets within the extracted text of a single page; a chunk
// never spans two pages because the page is the citation unit.
type Chunk struct {
	ID         string        `json:"id"`
	DocumentID string        `json:"document_id"`
	Page       int           `json:"page"`
	CharStart  int           `json:"char_start"`
	CharEnd    int           `json:"char_end"`
	Text       string        `json:"text"`
	Metadata   ChunkMetadata `json:"metadata"`
	CreatedAt  int64         `json:"created_at"`
}

// ChunkMetadata carries the document fields needed to render a citation
// without a document store lookup.
type ChunkMetadata struct {
	Title      string   `json:"title"`
	Author     string   `json:"author"`
	TotalPages int      `json:"total_pages"`
	Tags       []string `json:"tags"`
}

// ChunkServiceConfig contains configuration options for text chunking.
type ChunkServiceConfig struct {
	MaxChunkSize int // Maximum size for text chunks
	OverlapSize  int // Size of overlap carried into the next chunk
	MinChunkSize int // Trailing fragments below this are merged backwards
	Lookback     int // How far to search back for a sentence boundary
}

// PageError records a page that could not be extracted or chunked.
// Per-page failures never abort the whole ingestion.
type PageError struct {
	Page  int    `json:"page"`
	Error string `json:"error"`
}

// ChunkError records a chunk whose embedding could not be computed.
type ChunkError struct {
	ChunkID string `json:"chunk_id"`
	Page    int    `json:"page"`
	Error   string `json:"error"`
}

// IngestReport summarises one document ingestion. A report with a non-empty
// PageErrors or ChunkErrors list is a partial success, not a failure.
type IngestReport struct {
	Document      Document     `json:"document"`
	ChunkCount    int          `json:"chunk_count"`
	InsertedCount int          `json:"inserted_count"`
	PageErrors    []PageError  `json:"page_errors,omitempty"`
	ChunkErrors   []ChunkError `json:"chunk_errors,omitempty"`
}

type UploadRequest struct {
	Title  string   `json:"title"`
	Source string   `json:"source"`
	Tags   []string `json:"tags"`
}
