package pipeline

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// PipelineContext is the store shared by every branch of one pipeline run.
//
// A value published under a name wakes every branch waiting on that name. The intended protocol
// is a single publisher per name and per run: a second publish overwrites the stored value but is
// not observed by subscribers that already resumed.
type PipelineContext struct {
	mu      sync.Mutex
	outputs map[string]any
	// ready holds one channel per name, closed once the name is published.
	ready map[string]chan struct{}
}

// NewPipelineContext returns an empty context.
func NewPipelineContext() *PipelineContext {
	return &PipelineContext{
		outputs: make(map[string]any),
		ready:   make(map[string]chan struct{}),
	}
}

// signal returns the channel for name. The lock must be held.
func (pc *PipelineContext) signal(name string) chan struct{} {
	ch, ok := pc.ready[name]
	if !ok {
		ch = make(chan struct{})
		pc.ready[name] = ch
	}

	return ch
}

// SetOutput stores value under name and wakes the branches waiting for it.
func (pc *PipelineContext) SetOutput(name string, value any) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.outputs[name] = value
	ch := pc.signal(name)
	select {
	case <-ch:
	default:
		close(ch)
	}
}

// Output returns the value stored under name without waiting.
func (pc *PipelineContext) Output(name string) (any, bool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	v, ok := pc.outputs[name]

	return v, ok
}

// WaitOutput returns the value stored under name, waiting until it is published or ctx is done.
func (pc *PipelineContext) WaitOutput(ctx context.Context, name string) (any, error) {
	pc.mu.Lock()
	if v, ok := pc.outputs[name]; ok {
		pc.mu.Unlock()

		return v, nil
	}
	ch := pc.signal(name)
	pc.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "waiting for output %q", name)
	case <-ch:
	}

	v, _ := pc.Output(name)

	return v, nil
}

// Names returns the names published so far.
func (pc *PipelineContext) Names() []string {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	names := make([]string, 0, len(pc.outputs))
	for name := range pc.outputs {
		names = append(names, name)
	}

	return names
}
