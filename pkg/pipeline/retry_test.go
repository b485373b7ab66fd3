package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-taskflow/pkg/pipeline"
)

func constantBackOff() backoff.BackOff {
	return backoff.NewConstantBackOff(time.Millisecond)
}

func TestRetrying(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		failures     int
		permanent    bool
		maxRetries   uint64
		wantErr      error
		wantAttempts int
		want         any
	}{
		"first attempt":        {failures: 0, maxRetries: 3, wantAttempts: 1, want: "ok"},
		"after two failures":   {failures: 2, maxRetries: 3, wantAttempts: 3, want: "ok"},
		"retries exhausted":    {failures: 10, maxRetries: 2, wantAttempts: 3, wantErr: assert.AnError},
		"permanent stops fast": {failures: 10, permanent: true, maxRetries: 5, wantAttempts: 1, wantErr: assert.AnError},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			attempts := 0
			body := func(_ context.Context, _ pipeline.Input) (any, error) {
				attempts++
				if attempts <= tt.failures {
					if tt.permanent {
						return nil, pipeline.Permanent(assert.AnError)
					}

					return nil, assert.AnError
				}

				return "ok", nil
			}
			task := pipeline.NewTask(pipeline.Retrying(body, func() backoff.BackOff {
				return backoff.WithMaxRetries(constantBackOff(), tt.maxRetries)
			}), pipeline.TaskName("retried"))

			got, err := task.Invoke(context.Background(), pipeline.NewPipelineContext(), pipeline.Input{})
			assert.Equal(t, tt.wantAttempts, attempts)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRetryingStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	body := pipeline.Retrying(func(context.Context, pipeline.Input) (any, error) {
		attempts++
		if attempts == 2 {
			cancel()
		}

		return nil, assert.AnError
	}, constantBackOff)

	_, err := body(ctx, pipeline.Input{})
	require.Error(t, err)
	assert.Equal(t, 2, attempts)
}
