package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v3"

	"github.com/medmatch/medmatch/pkg/model"
	"github.com/medmatch/medmatch/pkg/usecase/match"
	"github.com/medmatch/medmatch/pkg/utils/logging"
)

var stageMessages = map[match.Stage]string{
	match.StageInit:      "Starting trial search",
	match.StageEmbedded:  "Generated query embedding",
	match.StageSearched:  "Searched trial database",
	match.StageProposed:  "AI proposed reference lookups",
	match.StageEnriched:  "Fetched medical reference data",
	match.StageRanked:    "Finalized ranking",
	match.StageExplained: "Generated explanation",
}

func matchCommand() *cli.Command {
	var cfg config
	var freeText, ageGroup, sex, email string

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "query",
			Aliases:     []string{"q"},
			Usage:       "Symptoms or conditions (e.g. 'diabetes fatigue')",
			Required:    true,
			Destination: &freeText,
		},
		&cli.StringFlag{
			Name:        "age",
			Usage:       "Age group: ADULT, OLDER_ADULT, CHILD or ALL",
			Value:       string(model.AgeAdult),
			Destination: &ageGroup,
		},
		&cli.StringFlag{
			Name:        "sex",
			Usage:       "Sex: ALL, MALE or FEMALE",
			Value:       string(model.SexAll),
			Destination: &sex,
		},
		&cli.StringFlag{
			Name:        "email",
			Usage:       "Optional recipient for the emailed report",
			Destination: &email,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, lookupFlags(&cfg)...)
	flags = append(flags, mailFlags(&cfg)...)

	return &cli.Command{
		Name:  "match",
		Usage: "Find and rank clinical trials for a symptom description",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = setupLogger(ctx, &cfg)

			query, err := model.NewQuery(freeText, model.AgeGroup(ageGroup), model.Sex(sex))
			if err != nil {
				return err
			}

			store, err := cfg.newStore()
			if err != nil {
				return err
			}
			defer store.Close()

			llm, err := cfg.newLLM()
			if err != nil {
				return err
			}
			embedder, err := cfg.newEmbedder()
			if err != nil {
				return err
			}

			progress := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			progress.Start()
			defer progress.Stop()

			pipeline, err := match.New(match.NewInput{
				Store:    store,
				Embedder: embedder,
				LLM:      llm,
				Registry: cfg.newRegistry(),
			}, match.WithMonitor(func(stage match.Stage) {
				if msg, ok := stageMessages[stage]; ok {
					progress.Suffix = " " + msg
				}
			}))
			if err != nil {
				return err
			}

			result, err := pipeline.Run(ctx, query)
			progress.Stop()
			if err != nil {
				return err
			}

			if result.Stage == model.StageNoMatch {
				fmt.Println(model.NoMatchMessage)
				return nil
			}

			printResult(result)

			if email != "" {
				sendReport(ctx, &cfg, result, email)
			}
			return nil
		},
	}
}

func printResult(result *model.MatchResult) {
	fmt.Println("=== Matching Trials ===")
	for _, trial := range result.Trials {
		fmt.Printf("Trial ID:   %s\n", trial.ID)
		fmt.Printf("Title:      %s\n", trial.Title)
		fmt.Printf("Conditions: %s\n", trial.Conditions)
		fmt.Printf("Summary:    %s\n", trial.Summary)
		fmt.Printf("Similarity: %.4f\n", trial.Distance)
		fmt.Println("---")
	}

	fmt.Println("=== AI Analysis ===")
	fmt.Printf("Ranked Results:\n%s\n\n", result.Ranking)
	fmt.Printf("Why These Match:\n%s\n\n", result.Explanation)
	fmt.Println("Note: This is a demo, not medical advice. Consult a doctor.")
}

// sendReport delivers the emailed report. Delivery failure is a warning, not
// an error: the ranking and explanation above are already produced.
func sendReport(ctx context.Context, cfg *config, result *model.MatchResult, email string) {
	logger := logging.From(ctx)

	reporter, err := cfg.newReporter()
	if err != nil {
		logger.Warn("cannot send report", "error", err)
		return
	}
	if err := reporter.Send(ctx, result, email); err != nil {
		logger.Warn("failed to send report", "to", email, "error", err)
		return
	}

	fmt.Printf("Report emailed to %s\n", email)
}
