package pipeline

import (
	"context"

	"github.com/cenkalti/backoff/v4"
)

// Retrying returns a body calling body again, following the policy built by newBackOff, until
// it succeeds, returns a Permanent error or ctx is done.
//
// The pipeline never retries on its own. Retrying is meant for leaf bodies that need to query a
// collaborator again, for instance until it returns a usable answer.
func Retrying(body TaskFunc, newBackOff func() backoff.BackOff) TaskFunc {
	return func(ctx context.Context, in Input) (any, error) {
		var out any
		operation := func() error {
			res, err := body(ctx, in)
			if err != nil {
				return err
			}
			out = res

			return nil
		}

		err := backoff.Retry(operation, backoff.WithContext(newBackOff(), ctx))
		if err != nil {
			return nil, err
		}

		return out, nil
	}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
