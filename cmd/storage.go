package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"tunevault/config"
	"tunevault/storage"

	"github.com/spf13/cobra"
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Probe the object storage connection",
	Long:  `Connect to the configured MinIO endpoint, ensure the bucket exists, and report the result.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("Probing MinIO at %s (bucket %s)...\n", cfg.MinioEndpoint, cfg.MinioBucket)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		provider := storage.NewProvider(cfg)
		if _, err := provider.Acquire(ctx); err != nil {
			log.Fatalf("Storage unavailable: %v", err)
		}
		fmt.Println("Storage connection OK.")
	},
}

func init() {
	rootCmd.AddCommand(storageCmd)
}
