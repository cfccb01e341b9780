package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "flat"
	}
	if cfg.Store.SnapshotPath == "" {
		cfg.Store.SnapshotPath = "/usr/local/var/kotae/data/snapshot.json"
	}
	if cfg.Store.Milvus.Address == "" {
		cfg.Store.Milvus.Address = "localhost:19530"
	}
	if cfg.Store.Milvus.Collection == "" {
		cfg.Store.Milvus.Collection = "kotae_chunks"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1024
	}
	if cfg.Embedding.RequestsPerSecond == 0 {
		cfg.Embedding.RequestsPerSecond = 3
	}
	if cfg.Embedding.Burst == 0 {
		cfg.Embedding.Burst = 5
	}
	if cfg.Answer.Model == "" {
		cfg.Answer.Model = "gpt-4o-mini"
	}
	if cfg.Answer.MaxTokens == 0 {
		cfg.Answer.MaxTokens = 512
	}
	if cfg.Answer.Temperature == 0 {
		cfg.Answer.Temperature = 0.2
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 1000
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 200
	}
	if cfg.Ingest.CatalogPath == "" {
		cfg.Ingest.CatalogPath = "/usr/local/var/kotae/data/catalog.db"
	}
	if cfg.Ingest.UploadDir == "" {
		cfg.Ingest.UploadDir = "/usr/local/var/kotae/data/uploads"
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{
			".txt", ".md", ".rst", ".pdf", ".csv", ".json",
			".docx", ".xlsx", ".pptx", ".rtf", ".odt", ".html",
		}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
