// Package dedup removes duplicate job records within a run and, optionally,
// records already seen in earlier runs.
package dedup

import (
	"context"

	"jobharvest/pkg/models"
)

// Dedup keeps the first record for each identity key. Output order is input
// order and the input slice is not modified.
func Dedup(records []models.JobRecord) []models.JobRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]models.JobRecord, 0, len(records))

	for _, r := range records {
		if _, ok := seen[r.IdentityKey]; ok {
			continue
		}
		seen[r.IdentityKey] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Seen remembers identity keys across runs
type Seen interface {
	// Contains reports whether key was marked in an earlier run
	Contains(ctx context.Context, key string) (bool, error)
	// Mark records key as seen
	Mark(ctx context.Context, key string) error
}

// FilterSeen drops records whose key seen already holds. It does not mark
// anything; call MarkSeen once the records have been delivered.
// On a store error the remaining records are kept and the error returned.
func FilterSeen(ctx context.Context, seen Seen, records []models.JobRecord) ([]models.JobRecord, error) {
	out := make([]models.JobRecord, 0, len(records))
	for i, r := range records {
		found, err := seen.Contains(ctx, r.IdentityKey)
		if err != nil {
			return append(out, records[i:]...), err
		}
		if !found {
			out = append(out, r)
		}
	}
	return out, nil
}

// MarkSeen records the key of every record, stopping at the first store error
func MarkSeen(ctx context.Context, seen Seen, records []models.JobRecord) error {
	for _, r := range records {
		if err := seen.Mark(ctx, r.IdentityKey); err != nil {
			return err
		}
	}
	return nil
}
