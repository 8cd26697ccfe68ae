package cmd

import (
	"tunevault/config"
	"tunevault/logger"
	"tunevault/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tunevault HTTP server",
	Long:  `Start the media-library backend: upload ingestion, streaming proxy, catalog and playlist API.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.Init(logger.Config{
			Level:      cfg.LogLevel,
			OutputPath: cfg.LogFile,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
		server.Start(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
