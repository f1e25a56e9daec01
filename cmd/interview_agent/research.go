package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/interview-prep/internal/config"
	"github.com/jonathan/interview-prep/internal/observability"
	"github.com/jonathan/interview-prep/internal/types"
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Run one research end-to-end and print a summary",
	Long: `Collects company, job and CV research, synthesizes the interview plan,
tops up the question bank and persists everything, exactly as a submission to
the server would. Results are stored under the printed search id.`,
	RunE: runResearch,
}

var (
	researchCompany   string
	researchRole      string
	researchCountry   string
	researchSeniority string
	researchCVFile    string
	researchCVID      string
	researchUserID    string
	researchSearchID  string
	researchJobURLs   []string
	researchAPIKey    string
	researchDBURL     string
)

func init() {
	researchCmd.Flags().StringVarP(&researchCompany, "company", "c", "", "Company name (required)")
	researchCmd.Flags().StringVarP(&researchRole, "role", "r", "", "Target role")
	researchCmd.Flags().StringVar(&researchCountry, "country", "", "Country of the position")
	researchCmd.Flags().StringVar(&researchSeniority, "seniority", "", "junior, mid or senior (default mid)")
	researchCmd.Flags().StringVar(&researchCVFile, "cv-file", "", "Path to a plain-text CV")
	researchCmd.Flags().StringVar(&researchCVID, "cv-id", "", "Id of a stored CV (ignored when --cv-file is set)")
	researchCmd.Flags().StringVar(&researchUserID, "user-id", "", "Owner of the search and the stored CV")
	researchCmd.Flags().StringVar(&researchSearchID, "search-id", "", "Search id (generated when empty)")
	researchCmd.Flags().StringSliceVar(&researchJobURLs, "job-url", nil, "Job posting URL (repeatable)")
	researchCmd.Flags().StringVar(&researchAPIKey, "api-key", "", "Gemini API key (defaults to GEMINI_API_KEY)")
	researchCmd.Flags().StringVar(&researchDBURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL)")
	_ = researchCmd.MarkFlagRequired("company")
	rootCmd.AddCommand(researchCmd)
}

// buildResearchRequest assembles the request from flags, reading the CV file
// when given.
func buildResearchRequest() (types.ResearchRequest, error) {
	req := types.ResearchRequest{
		SearchID:  researchSearchID,
		UserID:    researchUserID,
		Company:   researchCompany,
		Role:      researchRole,
		Country:   researchCountry,
		Seniority: types.Seniority(researchSeniority),
		JobURLs:   researchJobURLs,
	}
	if researchCVFile != "" {
		data, err := os.ReadFile(researchCVFile)
		if err != nil {
			return types.ResearchRequest{}, fmt.Errorf("failed to read CV file: %w", err)
		}
		req.CVText = string(data)
	} else {
		req.CVID = researchCVID
	}
	if req.SearchID == "" {
		req.SearchID = uuid.NewString()
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		return types.ResearchRequest{}, fmt.Errorf("invalid research request: %w", err)
	}
	return req, nil
}

func runResearch(cmd *cobra.Command, _ []string) error {
	req, err := buildResearchRequest()
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("api-key") {
		cfg.GeminiAPIKey = researchAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = researchDBURL
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Search %s: researching %s\n", req.SearchID, req.Company)

	res, err := a.runner.Run(observability.ContextWithLogger(ctx, a.logger), req)
	if err != nil {
		return fmt.Errorf("research %s failed: %w", req.SearchID, err)
	}

	observability.NewPrinter(out).PrintSummary(res.Synthesis)
	_, _ = fmt.Fprintf(out, "Persisted %d stages and %d questions (sources: %v)\n",
		res.Summary.Stages, res.Summary.Questions, res.Synthesis.Metadata.Sources)
	return nil
}
