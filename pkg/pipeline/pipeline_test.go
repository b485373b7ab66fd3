package pipeline_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-taskflow/pkg/pipeline"
	"github.com/askiada/go-taskflow/pkg/pipeline/model"
)

func TestRunChain(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New([]pipeline.Node{pipeline.Task0(genA).Then(pipeline.Task1(convertA))})
	require.NoError(t, err)

	got, err := pipe.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Generated A Convert B", got)
}

func TestRunFanIn(t *testing.T) {
	t.Parallel()

	root := pipeline.Task0(letterA).With(pipeline.Task0(letterB)).Then(pipeline.Task2(combine))
	pipe, err := pipeline.New([]pipeline.Node{root})
	require.NoError(t, err)

	got, err := pipe.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A+B", got)
}

func TestRunIsRepeatable(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New([]pipeline.Node{pipeline.Task1(addOne).Then(pipeline.Task1(double))})
	require.NoError(t, err)

	for i := range 5 {
		got, err := pipe.Run(context.Background(), i)
		require.NoError(t, err)
		assert.Equal(t, (i+1)*2, got)
	}
}

func TestRunMultipleRoots(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New([]pipeline.Node{pipeline.Task1(addOne), pipeline.Task1(double), pipeline.Task1(square)})
	require.NoError(t, err)

	got, err := pipe.Run(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, pipeline.Results{4, 6, 9}, got)
	assert.Len(t, pipe.Roots(), 3)
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		roots       func(counter *atomic.Int64) []pipeline.Node
		wantMissing []string
	}{
		"missing publisher": {
			roots: func(counter *atomic.Int64) []pipeline.Node {
				return []pipeline.Node{counting("count", counter).Then(pipeline.Subscribe("missing"))}
			},
			wantMissing: []string{"missing"},
		},
		"every missing name sorted": {
			roots: func(counter *atomic.Int64) []pipeline.Node {
				return []pipeline.Node{
					pipeline.Subscribe("b").With(counting("count", counter)),
					pipeline.Subscribe("a").Then(pipeline.Publish("c")),
					pipeline.Subscribe("c"),
				}
			},
			wantMissing: []string{"a", "b"},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			counter := &atomic.Int64{}
			_, err := pipeline.New(tt.roots(counter))
			require.ErrorIs(t, err, pipeline.ErrOutputMismatch)

			var mismatch *pipeline.OutputMismatchError
			require.ErrorAs(t, err, &mismatch)
			assert.Equal(t, tt.wantMissing, mismatch.Missing)
			assert.Equal(t, int64(0), counter.Load())
		})
	}
}

func TestNewPublisherInAnotherRoot(t *testing.T) {
	t.Parallel()

	_, err := pipeline.New([]pipeline.Node{
		pipeline.Subscribe("x"),
		pipeline.Task0(genA).Then(pipeline.Publish("x")),
	})
	assert.NoError(t, err)
}

func TestNewInvalidRoots(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		roots   []pipeline.Node
		wantErr error
	}{
		"no root":  {roots: nil, wantErr: pipeline.ErrNoRoot},
		"nil root": {roots: []pipeline.Node{pipeline.Task0(genA), nil}, wantErr: pipeline.ErrNilNode},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := pipeline.New(tt.roots)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRunFailureCarriesTaskName(t *testing.T) {
	t.Parallel()

	var after atomic.Int64
	pipe, err := pipeline.New([]pipeline.Node{
		pipeline.Task0(genA).Then(pipeline.Task0(failing, pipeline.TaskName("broken"))).Then(counting("after", &after)),
	})
	require.NoError(t, err)

	_, err = pipe.Run(context.Background())
	require.ErrorIs(t, err, pipeline.ErrTaskExecution)
	require.ErrorIs(t, err, assert.AnError)

	var taskErr *pipeline.TaskExecutionError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, "broken", taskErr.Task)
	assert.Equal(t, int64(0), after.Load())
}

func TestRunRootFailureCancelsOtherRoots(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New([]pipeline.Node{
		pipeline.Subscribe("never").Then(pipeline.Task1(convertA)),
		pipeline.Task0(failing).Then(pipeline.Publish("never")),
	})
	require.NoError(t, err)

	_, err = pipe.Run(context.Background())
	require.ErrorIs(t, err, assert.AnError)
}

func TestRunStagedWithSharedContext(t *testing.T) {
	t.Parallel()

	first, err := pipeline.New([]pipeline.Node{pipeline.Task0(genA).Then(pipeline.Publish("generated"))})
	require.NoError(t, err)

	reader := pipeline.NewContextTask(func(_ context.Context, pc *pipeline.PipelineContext, _ pipeline.Input) (any, error) {
		v, ok := pc.Output("generated")
		if !ok {
			return nil, assert.AnError
		}

		return v, nil
	}, pipeline.TaskName("reader"))
	second, err := pipeline.New([]pipeline.Node{reader.Then(pipeline.Task1(convertA))})
	require.NoError(t, err)

	pc := pipeline.NewPipelineContext()
	_, err = first.RunInput(context.Background(), pc, pipeline.Input{})
	require.NoError(t, err)
	got, err := second.RunInput(context.Background(), pc, pipeline.Input{})
	require.NoError(t, err)
	assert.Equal(t, "Generated A Convert B", got)

	_, err = second.Run(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestRunNamedInputs(t *testing.T) {
	t.Parallel()

	greet := pipeline.NewTask(func(_ context.Context, in pipeline.Input) (any, error) {
		return in.Named["greeting"].(string) + " " + in.Args[0].(string), nil
	}, pipeline.TaskName("greet"))
	pipe, err := pipeline.New([]pipeline.Node{greet, greet})
	require.NoError(t, err)

	got, err := pipe.RunInput(context.Background(), nil, pipeline.Input{
		Args:  []any{"world"},
		Named: map[string]any{"greeting": "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, pipeline.Results{"hello world", "hello world"}, got)
}

func TestRunID(t *testing.T) {
	t.Parallel()

	ids := make(chan string, 2)
	task := pipeline.NewTask(func(ctx context.Context, _ pipeline.Input) (any, error) {
		ids <- pipeline.RunID(ctx)

		return nil, nil
	}, pipeline.TaskName("id"))
	pipe, err := pipeline.New([]pipeline.Node{task})
	require.NoError(t, err)

	_, err = pipe.Run(context.Background())
	require.NoError(t, err)
	_, err = pipe.Run(context.Background())
	require.NoError(t, err)

	first, second := <-ids, <-ids
	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
	assert.Empty(t, pipeline.RunID(context.Background()))
}

func TestNodeInfo(t *testing.T) {
	t.Parallel()

	a := pipeline.Task0(genA)
	other := pipeline.Task0(genA)
	pub := pipeline.Publish("genA")
	sub := pipeline.Subscribe("genA")
	pipe, err := pipeline.New([]pipeline.Node{a.Then(pub), other.Then(sub)})
	require.NoError(t, err)

	tests := map[string]struct {
		node pipeline.Node
		want model.NodeInfo
	}{
		"first task": {node: a, want: model.NodeInfo{ID: "genA", Name: "genA", Type: model.TaskNodeType}},
		"same name":  {node: other, want: model.NodeInfo{ID: "genA#2", Name: "genA", Type: model.TaskNodeType}},
		"publisher":  {node: pub, want: model.NodeInfo{ID: "publish:genA", Name: "genA", Type: model.PublishNodeType, Slot: "genA"}},
		"subscriber": {node: sub, want: model.NodeInfo{ID: "subscribe:genA", Name: "genA", Type: model.SubscribeNodeType, Slot: "genA"}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			info, ok := pipe.NodeInfo(tt.node)
			require.True(t, ok)
			assert.Equal(t, tt.want, *info)
		})
	}

	_, ok := pipe.NodeInfo(pipeline.Task0(letterA))
	assert.False(t, ok)
}

func TestHooks(t *testing.T) {
	t.Parallel()

	a := pipeline.Task0(genA)
	sub := pipeline.Subscribe("x")
	producer := a.Then(pipeline.Publish("x"))
	consumer := sub.Then(pipeline.Task1(convertA))

	hook := &recordingHook{}
	pipe, err := pipeline.New([]pipeline.Node{producer, consumer}, pipeline.PipelineHooks(hook))
	require.NoError(t, err)

	assert.Equal(t, 1, hook.news)
	assert.Equal(t, [][2]string{
		{"start", "(genA >> x)"},
		{"(genA >> x)", "genA"},
		{"(genA >> x)", "publish:x"},
		{"start", "(x >> convertA)"},
		{"(x >> convertA)", "subscribe:x"},
		{"(x >> convertA)", "convertA"},
	}, hook.nodes)
	assert.Equal(t, [][2]string{{"publish:x", "subscribe:x"}}, hook.slotLinks)

	_, err = pipe.Run(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"genA", "publish:x", "subscribe:x", "convertA"}, hook.outputNodes())
	assert.Equal(t, 1, hook.finishes)
}

func TestHooksOnFailure(t *testing.T) {
	t.Parallel()

	hook := &recordingHook{}
	pipe, err := pipeline.New([]pipeline.Node{pipeline.Task0(failing)}, pipeline.PipelineHooks(hook))
	require.NoError(t, err)

	_, err = pipe.Run(context.Background())
	require.Error(t, err)
	require.Len(t, hook.outputs, 1)
	assert.Equal(t, "failing", hook.outputs[0].node)
	assert.ErrorIs(t, hook.outputs[0].err, assert.AnError)
	assert.Equal(t, 0, hook.finishes)
}

func TestHookNewError(t *testing.T) {
	t.Parallel()

	_, err := pipeline.New([]pipeline.Node{pipeline.Task0(genA)},
		pipeline.PipelineHooks(&recordingHook{newErr: assert.AnError}))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestPipelineLogger(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	pipe, err := pipeline.New([]pipeline.Node{pipeline.Task0(genA)},
		pipeline.PipelineName("logged"), pipeline.PipelineLogger(logger))
	require.NoError(t, err)

	_, err = pipe.Run(context.Background())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"pipeline started","pipeline":"logged"`)
	assert.Contains(t, out, `"msg":"node completed"`)
	assert.Contains(t, out, `"node":"genA"`)
	assert.Contains(t, out, `"msg":"pipeline completed","pipeline":"logged"`)
	assert.Contains(t, out, `"run_id":"`)
}
