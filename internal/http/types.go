package http

import "github.com/fyrsmithlabs/memvec/internal/vectorstore"

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
}

// AddDocumentsRequest is the request body for POST /api/v1/documents.
type AddDocumentsRequest struct {
	Documents []vectorstore.Document `json:"documents"`
}

// AddDocumentsResponse lists the stored ids in request order.
type AddDocumentsResponse struct {
	IDs []string `json:"ids"`
}

// DeleteDocumentsRequest is the request body for DELETE /api/v1/documents.
type DeleteDocumentsRequest struct {
	IDs []string `json:"ids"`
}

// DeleteDocumentsResponse is the response body for DELETE /api/v1/documents.
type DeleteDocumentsResponse struct {
	Deleted bool `json:"deleted"`
}

// SearchRequest is the request body for POST /api/v1/search. Unset fields
// take the server defaults.
type SearchRequest struct {
	Query               string                 `json:"query"`
	TopK                *int                   `json:"top_k,omitempty"`
	SimilarityThreshold *float64               `json:"similarity_threshold,omitempty"`
	Filter              map[string]interface{} `json:"filter,omitempty"`
}

// SearchResponse is the response body for POST /api/v1/search.
type SearchResponse struct {
	Results []vectorstore.SearchResult `json:"results"`
}

// SnapshotResponse is the response body for the snapshot endpoints.
type SnapshotResponse struct {
	Path      string `json:"path"`
	Documents int    `json:"documents"`
}
