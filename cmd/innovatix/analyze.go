package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/perviz24/innovati-x/internal/augment"
	"github.com/perviz24/innovati-x/internal/config"
	"github.com/perviz24/innovati-x/internal/generation"
	"github.com/perviz24/innovati-x/internal/llm"
	"github.com/perviz24/innovati-x/internal/observability"
	"github.com/perviz24/innovati-x/internal/pipeline"
	"github.com/perviz24/innovati-x/internal/store"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [description]",
	Short: "Run the full analysis pipeline over a challenge description",
	Long: `Creates a challenge for the given user, runs all six analysis stages
synchronously, and prints the results. The description is taken from the
positional argument or from --file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

var (
	analyzeConfigPath string
	analyzeUserID     string
	analyzeTitle      string
	analyzeFile       string
	analyzeVerbose    bool
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeConfigPath, "config", "", "Path to config.json file (overrides environment values)")
	analyzeCmd.Flags().StringVarP(&analyzeUserID, "user-id", "u", "", "Owning user UUID (required)")
	analyzeCmd.Flags().StringVarP(&analyzeTitle, "title", "t", "", "Challenge title (optional)")
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "Read the challenge description from a file")
	analyzeCmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "Print each stage's results")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := config.FromEnv()
	if analyzeConfigPath != "" {
		if err := cfg.LoadFile(analyzeConfigPath); err != nil {
			return err
		}
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	ownerID, err := uuid.Parse(analyzeUserID)
	if err != nil {
		return fmt.Errorf("invalid --user-id: %w", err)
	}

	description, err := resolveDescription(args, analyzeFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pg, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pg.Close()
	if err := pg.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	llmConfig := llm.DefaultConfig()
	if cfg.StandardModel != "" {
		llmConfig = llmConfig.WithModel(llm.TierStandard, cfg.StandardModel)
	}
	if cfg.AdvancedModel != "" {
		llmConfig = llmConfig.WithModel(llm.TierAdvanced, cfg.AdvancedModel)
	}
	client, err := llm.NewGeminiClient(ctx, llmConfig, cfg.GeminiAPIKey)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}
	defer client.Close()

	runner := pipeline.NewRunner(
		pg,
		generation.NewAdapter(client),
		augment.FromEnv(ctx),
		pipeline.WithRunBudget(cfg.RunBudget()),
		pipeline.WithMaxConcurrentRuns(int64(cfg.MaxConcurrentRuns)),
	)

	challengeID, err := pg.CreateChallenge(ctx, ownerID, analyzeTitle, description)
	if err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	fmt.Printf("Created challenge %s\n", challengeID)

	runErr := runner.Run(ctx, challengeID, ownerID, description)

	challenge, getErr := pg.GetChallenge(ctx, challengeID, ownerID)
	if getErr == nil {
		if analyzeVerbose {
			observability.NewPrinter(os.Stdout).PrintChallenge(challenge)
		} else {
			fmt.Printf("Challenge %s finished with status %s\n", challengeID, challenge.Status)
		}
	}

	if runErr != nil {
		return fmt.Errorf("analysis failed: %w", runErr)
	}
	return nil
}

// resolveDescription picks the challenge description from the positional
// argument or the --file flag, rejecting ambiguous or empty input.
func resolveDescription(args []string, file string) (string, error) {
	if len(args) == 1 && file != "" {
		return "", fmt.Errorf("provide the description as an argument or via --file, not both")
	}
	if len(args) == 1 {
		return strings.TrimSpace(args[0]), nil
	}
	if file == "" {
		return "", fmt.Errorf("a challenge description is required (argument or --file)")
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read description file: %w", err)
	}
	description := strings.TrimSpace(string(data))
	if description == "" {
		return "", fmt.Errorf("description file %s is empty", file)
	}
	return description, nil
}
