package cmd

import (
	"fmt"
	"log"

	"tunevault/cache"
	"tunevault/config"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Probe the Redis connection",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if cfg.RedisHost == "" {
			log.Fatal("REDIS_HOST is not set; the song cache is disabled")
		}
		fmt.Printf("Probing Redis at %s:%s (db %d)...\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		client, err := cache.Connect(cfg)
		if err != nil {
			log.Fatalf("Redis unavailable: %v", err)
		}
		defer client.Close()
		fmt.Println("Redis connection OK.")
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
