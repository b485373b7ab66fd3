package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBind(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in      Input
		n       int
		want    []any
		wantErr error
	}{
		"exact count":           {in: Args(1, 2), n: 2, want: []any{1, 2}},
		"no argument":           {in: Input{}, n: 0, want: nil},
		"results spread":        {in: Args(Results{1, 2}), n: 2, want: []any{1, 2}},
		"results kept for one":  {in: Args(Results{1, 2}), n: 1, want: []any{Results{1, 2}}},
		"results of wrong size": {in: Args(Results{1, 2, 3}), n: 2, wantErr: ErrArity},
		"too few":               {in: Args(1), n: 3, wantErr: ErrArity},
		"too many":              {in: Args(1, 2), n: 1, wantErr: ErrArity},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := bind(tt.in, tt.n)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArg(t *testing.T) {
	t.Parallel()

	args := []any{"a", nil, 3}

	s, err := arg[string](args, 0)
	require.NoError(t, err)
	assert.Equal(t, "a", s)

	zero, err := arg[string](args, 1)
	require.NoError(t, err)
	assert.Empty(t, zero)

	_, err = arg[string](args, 2)
	require.ErrorIs(t, err, ErrArgumentType)
	assert.Contains(t, err.Error(), "argument 2: got int, want string")
}
