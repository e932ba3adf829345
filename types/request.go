package types

type QueryRequest struct {
	Question string       `json:"question"`
	Filter   SearchFilter `json:"filter,omitempty"`
	TopK     int          `json:"top_k,omitempty"`
	Format   string       `json:"format,omitempty"`
}

type ListDocumentsRequest struct {
	Page  int64 `json:"page" form:"page"`
	Limit int64 `json:"limit" form:"limit"`
}
