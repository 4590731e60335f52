package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perviz24/innovati-x/internal/config"
	"github.com/perviz24/innovati-x/internal/server"
)

var (
	serveConfigPath string
	serveAddr       string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for managing challenges and running analyses.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file (overrides environment values)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default \":8080\")")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.FromEnv()
	if serveConfigPath != "" {
		if err := cfg.LoadFile(serveConfigPath); err != nil {
			return err
		}
	}
	if serveAddr != "" {
		cfg.ListenAddr = serveAddr
	}

	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start()
}
