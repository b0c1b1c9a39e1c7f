package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/opencity-labs/ccat-memory-updater/log"
	"github.com/opencity-labs/ccat-memory-updater/store"
	"github.com/opencity-labs/ccat-memory-updater/types"
)

// Action selects what a content operation does with a source.
type Action string

const (
	// ActionDelete only erases entries with the matching source.
	ActionDelete Action = "delete"
	// ActionReplace erases entries, then re-ingests content from the source.
	ActionReplace Action = "replace"
)

// ParseAction parses an action string, defaulting to delete for unknown
// values, mirroring the settings surface this workflow is driven from.
func ParseAction(s string) Action {
	if Action(s) == ActionReplace {
		return ActionReplace
	}
	return ActionDelete
}

// Replacer applies delete or delete-then-reingest content operations.
// Erasing first guarantees no duplicate entries survive a replace.
type Replacer struct {
	eraser   *Eraser
	ingestor store.Ingestor
	logger   *log.Logger
}

// NewReplacer creates a replacer. ingestor may be nil when only delete
// operations will be applied.
func NewReplacer(eraser *Eraser, ingestor store.Ingestor, logger *log.Logger) *Replacer {
	return &Replacer{
		eraser:   eraser,
		ingestor: ingestor,
		logger:   logger,
	}
}

// Apply erases all entries for source and, when action is replace,
// re-ingests content from the source afterwards. Returns the number of
// entries erased. The erase step never fails; only the re-ingest step can
// return an error.
func (r *Replacer) Apply(ctx context.Context, source string, action Action, chunkSize, chunkOverlap int) (int, error) {
	if source == "" {
		return 0, errors.New("replace: source must be non-empty")
	}

	deleted := r.eraser.EraseBySource(ctx, source)

	if action != ActionReplace {
		return deleted, nil
	}
	if r.ingestor == nil {
		return deleted, errors.New("replace: no ingestor configured")
	}

	if chunkSize <= 0 {
		chunkSize = types.DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = types.DefaultChunkOverlap
	}

	r.logger.Info("re-ingesting content", map[string]any{
		"source": source,
	})
	err := r.ingestor.Ingest(ctx, source, chunkSize, chunkOverlap, map[string]string{
		store.MetaSource: source,
	})
	if err != nil {
		r.logger.Error("re-ingest failed", map[string]any{
			"source": source,
			"error":  err.Error(),
		})
		return deleted, fmt.Errorf("replace: re-ingest %s: %w", source, err)
	}

	return deleted, nil
}
