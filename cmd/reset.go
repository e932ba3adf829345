/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

// resetIndexCmd represents the reset command
var resetIndexCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate the vector index",
	Long: `Deletes every chunk from the vector index. Document metadata is kept;
re-ingest the source files to rebuild the index.`,
	Run: func(cmd *cobra.Command, args []string) {
		confirmed, _ := cmd.Flags().GetBool("yes")
		if !confirmed {
			log.Fatal("refusing to wipe the index without --yes")
		}

		cfg := mustLoadConfig()
		vectorDB, err := buildVectorDB(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to vector database: %v", err)
		}

		if err := vectorDB.ReInit(); err != nil {
			log.Fatalf("Failed to reset vector index: %v", err)
		}
		fmt.Println("Vector index reset")
	},
}

func init() {
	rootCmd.AddCommand(resetIndexCmd)

	resetIndexCmd.Flags().BoolP("yes", "y", false, "Confirm wiping the index")
}
