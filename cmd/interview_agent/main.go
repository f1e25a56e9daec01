// Package main provides the interview-prep CLI: the HTTP API server and a
// one-shot research command.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "interview_agent",
	Short: "Interview preparation research service",
	Long: "interview_agent researches a company, a role and a candidate CV, then produces " +
		"interview stages, a fit analysis, a preparation plan and a categorized question bank.",
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
