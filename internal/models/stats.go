package models

// StoreStats describes the chunk collection as a whole.
type StoreStats struct {
	// TotalChunks equals the number of live chunks in the store.
	TotalChunks int `json:"total_chunks"`
	// TotalDocuments is the number of distinct (SourceID, SourceType) pairs.
	TotalDocuments int `json:"total_documents"`
	// Dimensions is the embedding width, fixed at store creation.
	Dimensions int `json:"dimensions"`
	// Sources lists the known source registry entries.
	Sources []SourceRef `json:"sources,omitempty"`
	// SourcesTruncated is set by the indexed backend when the distinct-source
	// scan hit its row cap, making TotalDocuments a lower bound.
	SourcesTruncated bool `json:"sources_truncated,omitempty"`
	// Backend names the active store implementation ("flat" or "milvus").
	Backend string `json:"backend,omitempty"`
}
