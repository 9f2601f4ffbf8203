package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/w-h-a/knowledge/providers/embedder"
	"github.com/w-h-a/knowledge/providers/storer"
)

// Classify partitions candidates by whether their stored embedding matches
// the active provider's dimensionality. Zero-length embeddings, embeddings
// left behind by a previously active provider, and embeddings that failed to
// decode all land in stale. Classify never fails; it only partitions.
func Classify(records []storer.Record, activeDim int) (fresh []storer.Record, stale []storer.Record) {
	for _, rec := range records {
		if len(rec.Embedding) == activeDim {
			fresh = append(fresh, rec)
		} else {
			stale = append(stale, rec)
		}
	}
	return fresh, stale
}

// RepairReport summarizes a batch repair run. Failures are keyed by record id
// so one bad row never aborts the rest of the batch.
type RepairReport struct {
	Repaired []string          `json:"repaired"`
	Skipped  int               `json:"skipped"`
	Failed   map[string]string `json:"failed,omitempty"`
}

// Reconciler regenerates stale embeddings from record content. Repair is an
// explicit maintenance step, not a side effect of retrieval: stale records
// are excluded from ranking until someone repairs them.
type Reconciler struct {
	storer        storer.Storer
	truncateLimit int
}

func NewReconciler(s storer.Storer, truncateLimit int) *Reconciler {
	if s == nil {
		panic("storer is required")
	}

	return &Reconciler{
		storer:        s,
		truncateLimit: truncateLimit,
	}
}

// Repair re-embeds the record's content with the given provider and persists
// the new vector, replacing only the embedding. Records that are already
// fresh for the provider are a no-op, which makes repeated repairs of the
// same record idempotent.
func (r *Reconciler) Repair(ctx context.Context, rec storer.Record, e embedder.Embedder) error {
	if len(rec.Embedding) == e.Dimensions() {
		return nil
	}

	text := Truncate(ExtractText(rec.Content), r.truncateLimit)
	if len(strings.TrimSpace(text)) == 0 {
		return fmt.Errorf("record %s: %w", rec.Id, embedder.ErrEmptyInput)
	}

	vec, err := e.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("record %s: %w", rec.Id, err)
	}

	if err := r.storer.UpdateEmbedding(ctx, rec.Id, vec); err != nil {
		return fmt.Errorf("record %s: %w", rec.Id, err)
	}

	return nil
}

// RepairAll repairs every stale record matching the category filter.
// Per-record failures are collected in the report rather than aborting the
// batch; the returned error covers only the candidate read itself.
func (r *Reconciler) RepairAll(ctx context.Context, category string, e embedder.Embedder) (RepairReport, error) {
	report := RepairReport{}

	records, err := r.storer.ReadCandidates(ctx, category, 0)
	if err != nil {
		return report, err
	}

	fresh, stale := Classify(records, e.Dimensions())
	report.Skipped = len(fresh)

	for _, rec := range stale {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if err := r.Repair(ctx, rec, e); err != nil {
			slog.ErrorContext(ctx, "failed to repair record", "id", rec.Id, "stored_dimensions", len(rec.Embedding), "provider", e.Provider(), "error", err)
			if report.Failed == nil {
				report.Failed = map[string]string{}
			}
			report.Failed[rec.Id] = err.Error()
			continue
		}

		report.Repaired = append(report.Repaired, rec.Id)
	}

	return report, nil
}
