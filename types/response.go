package types

type DataResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ReferenceEntry maps a citation marker to its source document and page,
// plus the export-formatted citation string.
type ReferenceEntry struct {
	Marker     int                `json:"marker"`
	DocumentID string             `json:"document_id"`
	Title      string             `json:"title"`
	Page       int                `json:"page"`
	Citation   string             `json:"citation"`
	Status     VerificationStatus `json:"status"`
}

type QueryResponse struct {
	SessionID    string              `json:"session_id"`
	Answer       string              `json:"answer"`
	References   []ReferenceEntry    `json:"references"`
	Verification VerificationSummary `json:"verification"`
}

type UploadResponse struct {
	Report *IngestReport `json:"report,omitempty"`
}

type ProcessingDocumentStatus struct {
	Status         string  `json:"status"`
	Message        string  `json:"message"`
	Progress       float64 `json:"progress"`
	TotalPages     int     `json:"total_pages"`
	ProcessedPages int     `json:"processed_pages"`
}

const (
	TypeWebsocketPing     = "ping"
	TypeWebsocketPong     = "pong"
	TypeWebsocketQuery    = "query"
	TypeWebsocketFragment = "fragment"
	TypeWebsocketAnswer   = "answer"
	TypeWebsocketError    = "error"
)

type WebsocketRequest struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebsocketResponse struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebsocketFragmentPayload struct {
	Fragment string `json:"fragment"`
}
