package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/w-h-a/knowledge"
	"github.com/w-h-a/knowledge/providers/embedder"
	googleembedder "github.com/w-h-a/knowledge/providers/embedder/google"
	localembedder "github.com/w-h-a/knowledge/providers/embedder/local"
	openaiembedder "github.com/w-h-a/knowledge/providers/embedder/openai"
	"github.com/w-h-a/knowledge/providers/storer"
	postgresstorer "github.com/w-h-a/knowledge/providers/storer/postgres"
	qdrantstorer "github.com/w-h-a/knowledge/providers/storer/qdrant"
)

var (
	cfg struct {
		// Storer config
		Storer         string `help:"Storer backend (postgres, qdrant)" default:"postgres" env:"KNOWLEDGE_STORER"`
		StorerLocation string `help:"Location of the storer (postgres dsn or qdrant url)" default:"" env:"KNOWLEDGE_STORER_LOCATION"`
		StorerApiKey   string `help:"API key for the storer" default:"" env:"KNOWLEDGE_STORER_API_KEY"`
		Collection     string `help:"Collection name for the qdrant storer" default:"knowledge" env:"KNOWLEDGE_COLLECTION"`

		// Embedder config
		Embedder       string `help:"Embedder provider (openai, google, local)" default:"local" env:"KNOWLEDGE_EMBEDDER"`
		EmbedderApiKey string `help:"API key for the embedder" default:"" env:"KNOWLEDGE_EMBEDDER_API_KEY"`
		Model          string `help:"Model identifier for vector embeddings" default:"" env:"KNOWLEDGE_EMBEDDER_MODEL"`

		// Repair config
		Category      string `help:"Only repair records in this category" default:"" env:"KNOWLEDGE_REPAIR_CATEGORY"`
		TruncateLimit int    `help:"Rune limit on content sent to the embedder" default:"1000" env:"KNOWLEDGE_TRUNCATE_LIMIT"`
		DryRun        bool   `help:"Report stale records without re-embedding them" default:"false"`
	}
)

func main() {
	// Parse inputs
	_ = godotenv.Load()
	_ = kong.Parse(&cfg)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := newEmbedder()
	st := newStorer(e.Dimensions())

	if cfg.DryRun {
		records, err := st.ReadCandidates(ctx, cfg.Category, 0)
		if err != nil {
			log.Fatalf("failed to read candidates: %v", err)
		}

		fresh, stale := knowledge.Classify(records, e.Dimensions())
		fmt.Printf("%d fresh, %d stale for provider %s\n", len(fresh), len(stale), e.Provider())
		for _, rec := range stale {
			fmt.Printf("stale: %s (%d dimensions)\n", rec.Id, len(rec.Embedding))
		}
		return
	}

	reconciler := knowledge.NewReconciler(st, cfg.TruncateLimit)

	report, err := reconciler.RepairAll(ctx, cfg.Category, e)
	if err != nil {
		log.Fatalf("repair aborted: %v", err)
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))

	if len(report.Failed) > 0 {
		os.Exit(1)
	}
}

func newEmbedder() embedder.Embedder {
	switch cfg.Embedder {
	case "openai":
		return openaiembedder.NewEmbedder(
			embedder.WithApiKey(cfg.EmbedderApiKey),
			embedder.WithModel(cfg.Model),
		)
	case "google":
		return googleembedder.NewEmbedder(
			embedder.WithApiKey(cfg.EmbedderApiKey),
			embedder.WithModel(cfg.Model),
		)
	case "local":
		return localembedder.NewEmbedder()
	default:
		log.Fatalf("unknown embedder: %s", cfg.Embedder)
		return nil
	}
}

func newStorer(dimensions int) storer.Storer {
	switch cfg.Storer {
	case "postgres":
		return postgresstorer.NewStorer(
			storer.WithLocation(cfg.StorerLocation),
		)
	case "qdrant":
		return qdrantstorer.NewStorer(
			storer.WithLocation(cfg.StorerLocation),
			storer.WithApiKey(cfg.StorerApiKey),
			storer.WithCollection(cfg.Collection),
			storer.WithVectorSize(dimensions),
		)
	default:
		log.Fatalf("unknown storer: %s", cfg.Storer)
		return nil
	}
}
