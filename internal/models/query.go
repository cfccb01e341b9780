package models

// StatusNoDocuments is set on query results when the store holds no chunks.
// An empty store is not an error.
const StatusNoDocuments = "no documents indexed"

// QueryResult is the outcome of one retrieval query: the ranked chunks,
// an optional synthesized answer, and timing.
type QueryResult struct {
	Query       string        `json:"query"`
	Results     []ScoredChunk `json:"results"`
	Answer      string        `json:"answer,omitempty"`
	Status      string        `json:"status,omitempty"`
	QueryTimeMS int64         `json:"query_time_ms"`
}
