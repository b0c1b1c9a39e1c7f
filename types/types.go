// Package types defines core domain types for harvest reconciliation.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"fmt"
	"time"
)

// Version is the canonical project version.
// The CLI and the notification event contract share this version.
const Version = "0.3.0"

// Default chunking parameters applied when a harvest outcome or a replace
// request does not carry its own.
const (
	DefaultChunkSize    = 1024
	DefaultChunkOverlap = 256
)

// HarvestOutcome is the completion record of one external harvest run.
// Kept and Failed preserve the harvester's emission order and must be
// disjoint. The outcome is consumed by exactly one reconciliation run and
// never persisted.
type HarvestOutcome struct {
	// Command identifies the logical harvest command. Entries sharing a
	// command are candidates for mutual reconciliation.
	Command string `json:"command"`
	// Session identifies one execution instance of the command.
	// Used for attribution metadata only, never for reconciliation scoping.
	Session string `json:"session"`
	// Kept lists item identifiers ingested successfully by the harvester.
	Kept []string `json:"kept"`
	// Failed lists item identifiers whose ingestion failed.
	Failed []string `json:"failed"`
	// ChunkSize is the chunk size to use when retrying failed items.
	ChunkSize int `json:"chunk_size"`
	// ChunkOverlap is the chunk overlap to use when retrying failed items.
	ChunkOverlap int `json:"chunk_overlap"`
}

// Validate checks the outcome invariants:
//   - command and session must be non-empty
//   - kept and failed must be disjoint
func (o *HarvestOutcome) Validate() error {
	if o.Command == "" {
		return errors.New("command must be non-empty")
	}
	if o.Session == "" {
		return errors.New("session must be non-empty")
	}

	kept := make(map[string]struct{}, len(o.Kept))
	for _, item := range o.Kept {
		kept[item] = struct{}{}
	}
	for _, item := range o.Failed {
		if _, ok := kept[item]; ok {
			return fmt.Errorf("item %q appears in both kept and failed", item)
		}
	}

	return nil
}

// RetryError records one failed ingestion attempt for one item.
// Ephemeral: surfaced in the summary, never persisted.
type RetryError struct {
	// Item is the item identifier that failed.
	Item string `json:"item"`
	// Attempt is the 1-based attempt number.
	Attempt int `json:"attempt"`
	// Error is the ingestion error message.
	Error string `json:"error"`
}

// Summary is the sole output of a reconciliation run.
// Counts reported to the notification boundary must match this exactly.
type Summary struct {
	// RemovedCount is the number of entries deleted as stale.
	RemovedCount int `json:"removed_count"`
	// RemovedSources lists the distinct sources of the deleted entries.
	RemovedSources []string `json:"removed_sources"`
	// RetrySuccessCount is the number of items promoted to kept by retry.
	RetrySuccessCount int `json:"retry_success_count"`
	// RetryFailedCount is the number of items still failed after retry.
	RetryFailedCount int `json:"retry_failed_count"`
	// RetryErrors lists per-attempt ingestion failures.
	RetryErrors []RetryError `json:"retry_errors,omitempty"`
	// ArchivedCount is the number of stale entries archived before deletion.
	ArchivedCount int `json:"archived_count"`
	// Noop is true when the run was skipped (feature disabled, collaborator
	// inactive, or malformed outcome) and no side effects occurred.
	Noop bool `json:"noop"`
	// Duration is the wall-clock duration of the run.
	Duration time.Duration `json:"-"`
}

// NoopSummary returns a summary for a run that performed no work.
func NoopSummary() Summary {
	return Summary{Noop: true}
}
