package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8001
	}
	if cfg.Server.RequestTimeout == 0 {
		// generation with a local 8B model routinely takes minutes
		cfg.Server.RequestTimeout = 5 * time.Minute
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = "./data/technology_database.xlsx"
	}
	if cfg.Catalog.MetadataPath == "" {
		cfg.Catalog.MetadataPath = "./chroma_db/database_metadata.json"
	}
	if cfg.Catalog.Collection == "" {
		cfg.Catalog.Collection = "technologies"
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "local"
	}
	if cfg.VectorStore.Path == "" {
		cfg.VectorStore.Path = "./chroma_db"
	}
	if cfg.VectorStore.QdrantHost == "" {
		cfg.VectorStore.QdrantHost = "localhost"
	}
	if cfg.VectorStore.QdrantPort == 0 {
		cfg.VectorStore.QdrantPort = 6334
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.Concurrency == 0 {
		cfg.Embedding.Concurrency = 4
	}
	if cfg.LLM.Host == "" {
		cfg.LLM.Host = "http://localhost:11434"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "llama3.1:8b"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.70
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 3072
	}
	if cfg.LLM.TopP == 0 {
		cfg.LLM.TopP = 0.9
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 5 * time.Minute
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 15
	}
	if cfg.Retrieval.MaxPromptCandidates == 0 {
		cfg.Retrieval.MaxPromptCandidates = 12
	}
}
