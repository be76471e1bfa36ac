package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/contract-auditor/internal/server"
)

var (
	servePort        int
	serveMaxUploadMB int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for uploading, reviewing and exporting contracts.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().IntVar(&serveMaxUploadMB, "max-upload-mb", server.DefaultMaxUploadBytes>>20, "Largest accepted upload in MiB")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(a.service, server.Config{
		Port:           servePort,
		MaxUploadBytes: int64(serveMaxUploadMB) << 20,
	}, a.logger)

	return srv.Start(cmd.Context())
}
