// Package checkpoint persists the data threaded through a resumable step list.
//
// A checkpoint is one record per identifier, overwritten after every completed step. Restoring an
// identifier that was never saved is not an error: Restore reports it as absent.
package checkpoint

import (
	"context"
	"maps"
	"regexp"
	"slices"

	"github.com/pkg/errors"
)

// CompletedStepsKey is the key of Data holding the names of the completed steps, in order.
const CompletedStepsKey = "completed_steps"

var (
	ErrInvalidIdentifier = errors.New("invalid checkpoint identifier")
	ErrCorrupted         = errors.New("checkpoint is corrupted")
)

var validIdentifier = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// Data is the mapping threaded from step to step. Values must be JSON serialisable; once restored,
// numbers are float64, slices are []any and objects are map[string]any.
type Data map[string]any

// Strategy saves and restores checkpoints by identifier.
type Strategy interface {
	Save(ctx context.Context, id string, data Data) error
	// Restore returns (nil, false, nil) when nothing was saved under id.
	Restore(ctx context.Context, id string) (Data, bool, error)
}

// Deleter is implemented by strategies able to forget a checkpoint.
// Deleting a missing identifier is not an error.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// ValidateIdentifier checks that id can be used as a key by every strategy.
func ValidateIdentifier(id string) error {
	if !validIdentifier.MatchString(id) {
		return errors.Wrapf(ErrInvalidIdentifier, "%q must match %s", id, validIdentifier)
	}

	return nil
}

// Clone returns a shallow copy of d. The completed steps list is copied as well.
func (d Data) Clone() Data {
	out := make(Data, len(d)+1)
	maps.Copy(out, d)
	if steps, ok := d[CompletedStepsKey]; ok {
		switch s := steps.(type) {
		case []string:
			out[CompletedStepsKey] = slices.Clone(s)
		case []any:
			out[CompletedStepsKey] = slices.Clone(s)
		}
	}

	return out
}

// CompletedSteps returns the names recorded under CompletedStepsKey.
// Both []string and the []any produced by a restore are accepted, other values are ignored.
func (d Data) CompletedSteps() []string {
	switch steps := d[CompletedStepsKey].(type) {
	case []string:
		return slices.Clone(steps)
	case []any:
		out := make([]string, 0, len(steps))
		for _, s := range steps {
			if name, ok := s.(string); ok {
				out = append(out, name)
			}
		}

		return out
	}

	return nil
}

// IsCompleted reports whether name is recorded as completed.
func (d Data) IsCompleted(name string) bool {
	return slices.Contains(d.CompletedSteps(), name)
}

// MarkCompleted appends name to the completed steps.
func (d Data) MarkCompleted(name string) {
	d[CompletedStepsKey] = append(d.CompletedSteps(), name)
}
