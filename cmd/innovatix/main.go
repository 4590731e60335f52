// Package main provides the entry point for the Innovati-X analysis server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "innovatix",
	Short: "Innovati-X innovation analysis server",
	Long:  "Innovati-X runs a six-stage AI analysis pipeline over innovation challenges: decomposition, research, gap analysis, solution generation, scoring, and patent landscape.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
