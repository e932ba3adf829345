package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port      string `mapstructure:"port"`
	UploadDir string `mapstructure:"upload_dir"`
	MongoURI  string `mapstructure:"MONGODB_URI"`

	AI         AIConfig            `mapstructure:"ai"`
	Embedding  EmbeddingConfig     `mapstructure:"embedding"`
	Store      VectorStoreConfig   `mapstructure:"vector_store"`
	Chunking   ChunkingConfig      `mapstructure:"chunking"`
	Retrieval  RetrievalConfig     `mapstructure:"retrieval"`
	Rerank     RerankConfig        `mapstructure:"rerank"`
	Verify     VerifyConfig        `mapstructure:"verify"`
	Generation GenerationConfig    `mapstructure:"generation"`
}

type AIConfig struct {
	Provider      string   `mapstructure:"provider"` // openai | gemini
	Endpoint      string   `mapstructure:"endpoint"`
	Model         string   `mapstructure:"model"`
	OpenAIAPIKey  string   `mapstructure:"OPENAI_API_KEY"`
	GeminiAPIKeys []string `mapstructure:"gemini_api_keys"`
}

type EmbeddingConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"OPENAI_API_KEY"`
	BatchSize int    `mapstructure:"batch_size"`
}

type VectorStoreConfig struct {
	Backend  string              `mapstructure:"backend"` // weaviate | memory
	Weaviate WeaviateStoreConfig `mapstructure:"weaviate"`
}

type WeaviateStoreConfig struct {
	Host   string `mapstructure:"host"`
	APIKey string `mapstructure:"WEAVIATE_APIKEY"`
}

type ChunkingConfig struct {
	MaxChunkSize int `mapstructure:"max_chunk_size"`
	OverlapSize  int `mapstructure:"overlap_size"`
	MinChunkSize int `mapstructure:"min_chunk_size"`
}

type RetrievalConfig struct {
	TopK   int `mapstructure:"top_k"`
	FanOut int `mapstructure:"fan_out"`
}

type RerankConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Weight of the rerank score against raw similarity when fusing; kept
	// tunable because no single fusion formula fits every corpus.
	Weight float64 `mapstructure:"weight"`
}

type VerifyConfig struct {
	Threshold float64 `mapstructure:"threshold"`
}

type GenerationConfig struct {
	MaxRetries int `mapstructure:"max_retries"`
}

func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("WEAVIATE_APIKEY")
	v.BindEnv("MONGODB_URI")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	applyDefaults(&config)
	return &config, nil
}

func applyDefaults(c *Config) {
	if c.Chunking.MaxChunkSize == 0 {
		c.Chunking.MaxChunkSize = 1000
	}
	if c.Chunking.OverlapSize == 0 {
		c.Chunking.OverlapSize = 100
	}
	if c.Chunking.MinChunkSize == 0 {
		c.Chunking.MinChunkSize = 100
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 5
	}
	if c.Retrieval.FanOut < 3 {
		c.Retrieval.FanOut = 4
	}
	if c.Rerank.Weight == 0 {
		c.Rerank.Weight = 0.7
	}
	if c.Verify.Threshold == 0 {
		c.Verify.Threshold = 0.3
	}
	if c.Generation.MaxRetries == 0 {
		c.Generation.MaxRetries = 3
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = 64
	}
}
