/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/librarian-be/service"
	"github.com/tieubaoca/librarian-be/types"
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question over the ingested corpus",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		question := args[0]
		format, _ := cmd.Flags().GetString("format")
		topK, _ := cmd.Flags().GetInt("top-k")
		docIDs, _ := cmd.Flags().GetStringArray("documents")
		tags, _ := cmd.Flags().GetStringArray("tags")

		cfg := mustLoadConfig()

		vectorDB, err := buildVectorDB(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to vector database: %v", err)
		}
		embedder := service.NewOpenAIEmbedder(cfg.Embedding.Endpoint, cfg.Embedding.APIKey, cfg.Embedding.Model)
		aiService, err := buildAIService(cfg)
		if err != nil {
			log.Fatalf("Failed to build AI service: %v", err)
		}

		retrieval := service.NewRetrievalService(embedder, vectorDB, cfg.Retrieval.FanOut)
		var reranker service.Reranker
		if cfg.Rerank.Enabled {
			reranker = service.NewLexicalReranker()
		}
		rerank := service.NewRerankService(reranker, cfg.Rerank.Weight)
		verifier := service.NewVerifyService(cfg.Verify.Threshold)
		answers := service.NewAnswerService(
			retrieval, rerank, aiService, verifier, cfg.Retrieval.TopK, cfg.Generation.MaxRetries)

		session, err := answers.AskStream(context.Background(), types.QueryRequest{
			Question: question,
			Format:   format,
			TopK:     topK,
			Filter: types.SearchFilter{
				DocumentIDs: docIDs,
				Tags:        tags,
			},
		}, func(fragment string) {
			fmt.Print(fragment)
		})
		if err != nil {
			log.Fatalf("Query failed in state %s: %v", session.State, err)
		}

		fmt.Println()
		if len(session.References) > 0 {
			fmt.Println("\nReferences:")
			for _, ref := range session.References {
				fmt.Printf("  %s [%s]\n", ref.Citation, ref.Status)
			}
		}
		fmt.Printf("\nVerification: %d supported, %d unsupported, %d not checked\n",
			session.Verification.SupportedCount,
			session.Verification.UnsupportedCount,
			session.Verification.NotCheckedCount)
		for _, flagged := range session.Verification.Flagged {
			fmt.Printf("  Unsupported claim: %q\n", flagged.Text)
		}
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().String("format", "numeric", "Citation format: numeric, apa, mla")
	queryCmd.Flags().Int("top-k", 0, "Number of chunks to answer from (0 = config default)")
	queryCmd.Flags().StringArray("documents", nil, "Restrict retrieval to these document ids")
	queryCmd.Flags().StringArray("tags", nil, "Restrict retrieval to these tags")
}
