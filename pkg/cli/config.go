package cli

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/medmatch/medmatch/pkg/adapter"
	"github.com/medmatch/medmatch/pkg/lookup"
	"github.com/medmatch/medmatch/pkg/lookup/mesh"
	"github.com/medmatch/medmatch/pkg/lookup/openfda"
	"github.com/medmatch/medmatch/pkg/lookup/pubmed"
	"github.com/medmatch/medmatch/pkg/lookup/rxnorm"
	"github.com/medmatch/medmatch/pkg/repository"
	"github.com/medmatch/medmatch/pkg/usecase/report"
)

// config holds configuration values. Everything is passed explicitly into
// constructors; nothing reads ambient global state.
type config struct {
	logLevel string

	// Trial store
	dbPath string

	// LLM + embeddings
	llmAPIKey      string
	llmBaseURL     string
	llmModel       string
	embeddingModel string

	// Lookup endpoint overrides (empty keeps the public endpoints)
	pubmedBaseURL  string
	rxnormBaseURL  string
	meshBaseURL    string
	openfdaBaseURL string

	// Report delivery
	smtpHost     string
	smtpPort     int64
	smtpFrom     string
	smtpPassword string
	geocodeAgent string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("MEDMATCH_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "db",
			Aliases:     []string{"d"},
			Usage:       "Path to the trial store database",
			Value:       "medmatch.db",
			Sources:     cli.EnvVars("MEDMATCH_DB"),
			Destination: &cfg.dbPath,
		},
	}
}

// llmFlags returns flags for LLM and embedding configuration
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm-api-key",
			Usage:       "API key for the OpenAI-compatible LLM endpoint",
			Sources:     cli.EnvVars("MEDMATCH_LLM_API_KEY"),
			Destination: &cfg.llmAPIKey,
		},
		&cli.StringFlag{
			Name:        "llm-base-url",
			Usage:       "Base URL of the OpenAI-compatible LLM endpoint",
			Value:       "https://api.moonshot.ai/v1",
			Sources:     cli.EnvVars("MEDMATCH_LLM_BASE_URL"),
			Destination: &cfg.llmBaseURL,
		},
		&cli.StringFlag{
			Name:        "llm-model",
			Usage:       "Chat model name",
			Value:       "kimi-k2-0905-preview",
			Sources:     cli.EnvVars("MEDMATCH_LLM_MODEL"),
			Destination: &cfg.llmModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Embedding model name (must produce 384-dim vectors)",
			Value:       "all-MiniLM-L6-v2",
			Sources:     cli.EnvVars("MEDMATCH_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
	}
}

// lookupFlags returns endpoint override flags for the medical lookups
func lookupFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "pubmed-base-url",
			Usage:       "Override the PubMed E-utilities endpoint",
			Sources:     cli.EnvVars("MEDMATCH_PUBMED_BASE_URL"),
			Destination: &cfg.pubmedBaseURL,
		},
		&cli.StringFlag{
			Name:        "rxnorm-base-url",
			Usage:       "Override the RxNav endpoint",
			Sources:     cli.EnvVars("MEDMATCH_RXNORM_BASE_URL"),
			Destination: &cfg.rxnormBaseURL,
		},
		&cli.StringFlag{
			Name:        "mesh-base-url",
			Usage:       "Override the MeSH SPARQL endpoint",
			Sources:     cli.EnvVars("MEDMATCH_MESH_BASE_URL"),
			Destination: &cfg.meshBaseURL,
		},
		&cli.StringFlag{
			Name:        "openfda-base-url",
			Usage:       "Override the OpenFDA endpoint",
			Sources:     cli.EnvVars("MEDMATCH_OPENFDA_BASE_URL"),
			Destination: &cfg.openfdaBaseURL,
		},
	}
}

// mailFlags returns flags for the emailed report
func mailFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "smtp-host",
			Usage:       "SMTP server host",
			Value:       "smtp.gmail.com",
			Sources:     cli.EnvVars("MEDMATCH_SMTP_HOST"),
			Destination: &cfg.smtpHost,
		},
		&cli.IntFlag{
			Name:        "smtp-port",
			Usage:       "SMTP server port",
			Value:       587,
			Sources:     cli.EnvVars("MEDMATCH_SMTP_PORT"),
			Destination: &cfg.smtpPort,
		},
		&cli.StringFlag{
			Name:        "smtp-from",
			Usage:       "Sender address for report mail",
			Sources:     cli.EnvVars("MEDMATCH_SMTP_FROM"),
			Destination: &cfg.smtpFrom,
		},
		&cli.StringFlag{
			Name:        "smtp-password",
			Usage:       "Password for the sender address",
			Sources:     cli.EnvVars("MEDMATCH_SMTP_PASSWORD"),
			Destination: &cfg.smtpPassword,
		},
		&cli.StringFlag{
			Name:        "geocode-user-agent",
			Usage:       "User agent for the Nominatim geocoder",
			Value:       "medmatch/1.0",
			Sources:     cli.EnvVars("MEDMATCH_GEOCODE_USER_AGENT"),
			Destination: &cfg.geocodeAgent,
		},
	}
}

// newStore opens the trial store
func (cfg *config) newStore() (repository.TrialStore, error) {
	if cfg.dbPath == "" {
		return nil, goerr.New("db path is required")
	}

	store, err := repository.New(cfg.dbPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open trial store")
	}
	return store, nil
}

// newLLM creates the chat client
func (cfg *config) newLLM() (adapter.LLM, error) {
	if cfg.llmAPIKey == "" {
		return nil, goerr.New("llm-api-key is required")
	}
	return adapter.NewLLM(cfg.llmAPIKey, cfg.llmBaseURL,
		adapter.WithModel(cfg.llmModel)), nil
}

// newEmbedder creates the embedding client
func (cfg *config) newEmbedder() (adapter.Embedder, error) {
	if cfg.llmAPIKey == "" {
		return nil, goerr.New("llm-api-key is required")
	}
	return adapter.NewEmbedder(cfg.llmAPIKey, cfg.llmBaseURL,
		adapter.WithEmbeddingModel(cfg.embeddingModel)), nil
}

// newRegistry assembles the fixed reference lookup set
func (cfg *config) newRegistry() *lookup.Registry {
	var pubmedOpts []pubmed.Option
	if cfg.pubmedBaseURL != "" {
		pubmedOpts = append(pubmedOpts, pubmed.WithBaseURL(cfg.pubmedBaseURL))
	}
	var rxnormOpts []rxnorm.Option
	if cfg.rxnormBaseURL != "" {
		rxnormOpts = append(rxnormOpts, rxnorm.WithBaseURL(cfg.rxnormBaseURL))
	}
	var meshOpts []mesh.Option
	if cfg.meshBaseURL != "" {
		meshOpts = append(meshOpts, mesh.WithBaseURL(cfg.meshBaseURL))
	}
	var openfdaOpts []openfda.Option
	if cfg.openfdaBaseURL != "" {
		openfdaOpts = append(openfdaOpts, openfda.WithBaseURL(cfg.openfdaBaseURL))
	}

	return lookup.NewRegistry(
		pubmed.New(pubmedOpts...),
		rxnorm.New(rxnormOpts...),
		mesh.New(meshOpts...),
		openfda.New(openfdaOpts...),
	)
}

// newReporter creates the report renderer/sender
func (cfg *config) newReporter() (*report.Reporter, error) {
	if cfg.smtpFrom == "" {
		return nil, goerr.New("smtp-from is required to send reports")
	}
	mailer := adapter.NewSMTPMailer(cfg.smtpHost, int(cfg.smtpPort), cfg.smtpFrom, cfg.smtpPassword)
	geocoder := adapter.NewGeocoder(cfg.geocodeAgent)
	return report.New(geocoder, mailer)
}
