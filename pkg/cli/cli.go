package cli

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/medmatch/medmatch/pkg/utils/logging"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "medmatch",
		Usage: "Match patients to clinical trials with semantic search and AI ranking",
		Commands: []*cli.Command{
			matchCommand(),
			ingestCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}

// setupLogger installs the configured logger into the context
func setupLogger(ctx context.Context, cfg *config) context.Context {
	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}
