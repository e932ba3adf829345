/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/librarian-be/database"
	"github.com/tieubaoca/librarian-be/service"
	"github.com/tieubaoca/librarian-be/types"
)

// ingestDocumentCmd represents the ingest command
var ingestDocumentCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a PDF document into the corpus",
	Long: `Extracts per-page text from a PDF, chunks it with provenance, embeds the
chunks and inserts them into the vector index. Pages that fail extraction
are reported individually; the document still ingests.`,
	Run: func(cmd *cobra.Command, args []string) {
		filePath, _ := cmd.Flags().GetString("file")
		tags, _ := cmd.Flags().GetStringArray("tags")
		title, _ := cmd.Flags().GetString("title")

		if filePath == "" {
			log.Fatal("--file is required")
		}

		cfg := mustLoadConfig()

		vectorDB, err := buildVectorDB(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to vector database: %v", err)
		}
		mongoClient, err := database.NewMongoClient(cfg.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		docStore := database.NewMongoDocumentStore(
			mongoClient.Database("librarian").Collection("documents"))

		embedder := service.NewOpenAIEmbedder(cfg.Embedding.Endpoint, cfg.Embedding.APIKey, cfg.Embedding.Model)
		chunker := service.NewChunkService(types.ChunkServiceConfig{
			MaxChunkSize: cfg.Chunking.MaxChunkSize,
			OverlapSize:  cfg.Chunking.OverlapSize,
			MinChunkSize: cfg.Chunking.MinChunkSize,
		})
		ingestService := service.NewIngestService(
			service.NewPDFExtractor(), chunker, embedder, vectorDB, docStore, cfg.Embedding.BatchSize)
		fileService := service.NewFileService(cfg.UploadDir, ingestService)

		req := types.UploadRequest{
			Title: title,
			Tags:  tags,
		}
		if req.Title == "" {
			req.Title = service.GetFileNameWithoutExt(filePath)
		}

		progress := make(chan types.ProcessingDocumentStatus)
		go func() {
			for status := range progress {
				fmt.Printf("%s (%d/%d)\n", status.Message, status.ProcessedPages, status.TotalPages)
			}
		}()

		report, err := fileService.IngestPath(context.Background(), filePath, req, progress)
		close(progress)
		if err != nil {
			log.Fatalf("Failed to ingest document: %v", err)
		}

		fmt.Printf("Ingested %q as document %s\n", report.Document.Title, report.Document.ID)
		fmt.Printf("Chunks: %d, inserted: %d\n", report.ChunkCount, report.InsertedCount)
		for _, pageErr := range report.PageErrors {
			fmt.Printf("Page %d failed: %s\n", pageErr.Page, pageErr.Error)
		}
		for _, chunkErr := range report.ChunkErrors {
			fmt.Printf("Chunk %s (page %d) failed: %s\n", chunkErr.ChunkID, chunkErr.Page, chunkErr.Error)
		}
	},
}

func init() {
	rootCmd.AddCommand(ingestDocumentCmd)

	ingestDocumentCmd.Flags().StringP("file", "f", "", "Path to the PDF to ingest")
	ingestDocumentCmd.Flags().StringP("title", "t", "", "Document title (defaults to filename)")
	ingestDocumentCmd.Flags().StringArrayP("tags", "g", []string{}, "Tags for the document")
}
