/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tieubaoca/librarian-be/config"
	"github.com/tieubaoca/librarian-be/database"
	"github.com/tieubaoca/librarian-be/service"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "librarian-be",
	Short: "Research librarian backend",
	Long: `Backend service that answers natural-language questions over a corpus
of academic PDFs. Every factual claim in an answer carries a citation
marker pointing to a specific page of a specific source document, and
citations are verified against their source chunks before delivery.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config/config.yaml", "config file")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".librarian-be")
	}

	viper.AutomaticEnv() // read in environment variables that match

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// buildVectorDB selects the vector index backend from configuration.
func buildVectorDB(cfg *config.Config) (database.VectorDatabase, error) {
	switch cfg.Store.Backend {
	case "", "weaviate":
		return database.NewWeaviateStore(cfg.Store.Weaviate)
	case "memory":
		return database.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown vector store backend: %s", cfg.Store.Backend)
	}
}

// buildAIService selects the language model provider from configuration.
func buildAIService(cfg *config.Config) (service.AIService, error) {
	switch cfg.AI.Provider {
	case "", "openai":
		return service.NewOpenAIService(cfg.AI.Endpoint, cfg.AI.OpenAIAPIKey, cfg.AI.Model), nil
	case "gemini":
		return service.NewGeminiService(cfg.AI.GeminiAPIKeys, cfg.AI.Model)
	default:
		return nil, fmt.Errorf("unknown AI provider: %s", cfg.AI.Provider)
	}
}

func mustLoadConfig() *config.Config {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}
