package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/medmatch/medmatch/pkg/usecase/ingest"
)

func ingestCommand() *cli.Command {
	var cfg config
	var csvPath string
	var workers int64

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "csv",
			Aliases:     []string{"f"},
			Usage:       "Path to the preprocessed trials CSV",
			Required:    true,
			Sources:     cli.EnvVars("MEDMATCH_CSV"),
			Destination: &csvPath,
		},
		&cli.IntFlag{
			Name:        "workers",
			Usage:       "Number of concurrent embedding workers",
			Value:       4,
			Sources:     cli.EnvVars("MEDMATCH_INGEST_WORKERS"),
			Destination: &workers,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "ingest",
		Usage: "Load a clinical-trial CSV into the trial store",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = setupLogger(ctx, &cfg)

			store, err := cfg.newStore()
			if err != nil {
				return err
			}
			defer store.Close()

			embedder, err := cfg.newEmbedder()
			if err != nil {
				return err
			}

			pipeline, err := ingest.New(store, embedder, ingest.WithWorkers(int(workers)))
			if err != nil {
				return err
			}

			f, err := os.Open(csvPath)
			if err != nil {
				return goerr.Wrap(err, "failed to open CSV", goerr.V("path", csvPath))
			}
			defer f.Close()

			stored, err := pipeline.IngestCSV(ctx, f)
			if err != nil {
				return err
			}

			fmt.Printf("Ingested %d trials into %s\n", stored, cfg.dbPath)
			return nil
		},
	}
}
