package pipeline_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/askiada/go-taskflow/pkg/pipeline"
	"github.com/askiada/go-taskflow/pkg/pipeline/model"
)

func genA(context.Context) (string, error) {
	return "Generated A", nil
}

func convertA(_ context.Context, x string) (string, error) {
	return x + " Convert B", nil
}

func letterA(context.Context) (string, error) {
	return "A", nil
}

func letterB(context.Context) (string, error) {
	return "B", nil
}

func combine(_ context.Context, a, b string) (string, error) {
	return a + "+" + b, nil
}

func addOne(_ context.Context, i int) (int, error) {
	return i + 1, nil
}

func double(_ context.Context, i int) (int, error) {
	return i * 2, nil
}

func square(_ context.Context, i int) (int, error) {
	return i * i, nil
}

func failing(context.Context) (string, error) {
	return "", assert.AnError
}

// delayed returns a task sleeping d before returning value.
func delayed(name string, d time.Duration, value any) *pipeline.Task {
	return pipeline.NewTask(func(ctx context.Context, _ pipeline.Input) (any, error) {
		select {
		case <-time.After(d):
			return value, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, pipeline.TaskName(name))
}

// counting returns a task counting its invocations and passing its first argument through.
func counting(name string, counter *atomic.Int64) *pipeline.Task {
	return pipeline.NewTask(func(_ context.Context, in pipeline.Input) (any, error) {
		counter.Add(1)
		if len(in.Args) == 0 {
			return nil, nil
		}

		return in.Args[0], nil
	}, pipeline.TaskName(name))
}

type output struct {
	node     string
	duration time.Duration
	err      error
}

// recordingHook records every hook call.
type recordingHook struct {
	mu        sync.Mutex
	newErr    error
	news      int
	nodes     [][2]string
	slotLinks [][2]string
	outputs   []output
	finishes  int
}

func (h *recordingHook) New() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.news++

	return h.newErr
}

func (h *recordingHook) PrepareNode(parent, node *model.NodeInfo) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nodes = append(h.nodes, [2]string{parent.ID, node.ID})

	return nil
}

func (h *recordingHook) PrepareSlotLink(publisher, subscriber *model.NodeInfo) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.slotLinks = append(h.slotLinks, [2]string{publisher.ID, subscriber.ID})

	return nil
}

func (h *recordingHook) OnNodeOutput(node *model.NodeInfo, duration time.Duration, err error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outputs = append(h.outputs, output{node: node.ID, duration: duration, err: err})

	return nil
}

func (h *recordingHook) Finish() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.finishes++

	return nil
}

func (h *recordingHook) outputNodes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.outputs))
	for i, o := range h.outputs {
		out[i] = o.node
	}

	return out
}
