package pipeline

import (
	"github.com/pkg/errors"
)

// bind returns the positional arguments for a body expecting n parameters.
// A single Results argument is spread when n > 1.
func bind(in Input, n int) ([]any, error) {
	args := in.Args
	if n > 1 && len(args) == 1 {
		if res, ok := args[0].(Results); ok {
			args = res
		}
	}
	if len(args) != n {
		return nil, errors.Wrapf(ErrArity, "expected %d positional arguments, got %d", n, len(args))
	}

	return args, nil
}

// arg converts the positional argument at idx to T. A nil argument yields the zero value.
func arg[T any](args []any, idx int) (T, error) {
	var zero T
	if args[idx] == nil {
		return zero, nil
	}
	v, ok := args[idx].(T)
	if !ok {
		return zero, errors.Wrapf(ErrArgumentType, "argument %d: got %T, want %T", idx, args[idx], zero)
	}

	return v, nil
}
