/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/tieubaoca/librarian-be/database"
	"github.com/tieubaoca/librarian-be/handler"
	"github.com/tieubaoca/librarian-be/service"
	"github.com/tieubaoca/librarian-be/types"
)

// startServerCmd represents the start command
var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the research librarian server",
	Long:  `Starts the HTTP server handling document ingestion and cited question answering`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()

		vectorDB, err := buildVectorDB(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to vector database: %v", err)
		}

		mongoClient, err := database.NewMongoClient(cfg.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		if err := mongoClient.Ping(context.Background(), nil); err != nil {
			log.Fatalf("Failed to ping MongoDB: %v", err)
		}
		docStore := database.NewMongoDocumentStore(
			mongoClient.Database("librarian").Collection("documents"))

		embedder := service.NewOpenAIEmbedder(cfg.Embedding.Endpoint, cfg.Embedding.APIKey, cfg.Embedding.Model)
		aiService, err := buildAIService(cfg)
		if err != nil {
			log.Fatalf("Failed to build AI service: %v", err)
		}

		chunker := service.NewChunkService(types.ChunkServiceConfig{
			MaxChunkSize: cfg.Chunking.MaxChunkSize,
			OverlapSize:  cfg.Chunking.OverlapSize,
			MinChunkSize: cfg.Chunking.MinChunkSize,
		})
		ingestService := service.NewIngestService(
			service.NewPDFExtractor(), chunker, embedder, vectorDB, docStore, cfg.Embedding.BatchSize)
		fileService := service.NewFileService(cfg.UploadDir, ingestService)

		retrieval := service.NewRetrievalService(embedder, vectorDB, cfg.Retrieval.FanOut)
		var reranker service.Reranker
		if cfg.Rerank.Enabled {
			reranker = service.NewLexicalReranker()
		}
		rerank := service.NewRerankService(reranker, cfg.Rerank.Weight)
		verifier := service.NewVerifyService(cfg.Verify.Threshold)
		answers := service.NewAnswerService(
			retrieval, rerank, aiService, verifier, cfg.Retrieval.TopK, cfg.Generation.MaxRetries)

		wsService := service.NewWebSocketService(answers)

		// Initialize handlers
		corsHandler := handler.NewCorsHandler()
		uploadHandler := handler.NewUploadHandler(fileService)
		queryHandler := handler.NewQueryHandler(answers)
		documentHandler := handler.NewDocumentHandler(docStore, vectorDB)

		router := gin.Default()
		router.Use(corsHandler.CorsMiddleware)

		apiV1 := router.Group("/api/v1")
		{
			apiV1.POST("/query", queryHandler.HandleQuery)
			apiV1.POST("/documents/upload", uploadHandler.UploadDocumentHandler)
			apiV1.GET("/documents", documentHandler.HandleListDocuments)
			apiV1.GET("/documents/:id", documentHandler.HandleGetDocument)
			apiV1.DELETE("/documents/:id", documentHandler.HandleDeleteDocument)
		}
		router.GET("/ws/query", func(c *gin.Context) {
			wsService.HandleQuery(c.Writer, c.Request)
		})

		log.Printf("Starting server on port %s...\n", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Server error:", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(startServerCmd)
}
