package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-taskflow/pkg/pipeline/model"
)

// PublishSlot stores its input in the pipeline context and passes it through unchanged.
type PublishSlot struct {
	name string
}

// Publish returns a node publishing its single positional input under name.
func Publish(name string) *PublishSlot {
	return &PublishSlot{name: name}
}

func (s *PublishSlot) Name() string { return s.name }

func (s *PublishSlot) Type() model.NodeType { return model.PublishNodeType }

func (s *PublishSlot) Children() []Node { return nil }

func (s *PublishSlot) Then(next Node) *TaskGroup { return Then(s, next) }

func (s *PublishSlot) With(other Node) *TaskGroup { return With(s, other) }

func (s *PublishSlot) Invoke(ctx context.Context, pc *PipelineContext, in Input) (any, error) {
	if len(in.Args) != 1 {
		return nil, errors.Wrapf(ErrArity, "publish %q expects 1 positional argument, got %d", s.name, len(in.Args))
	}
	value := in.Args[0]
	pc.SetOutput(s.name, value)

	if err := observe(ctx, s, 0, nil); err != nil {
		return nil, err
	}

	return value, nil
}

func (s *PublishSlot) String() string {
	return fmt.Sprintf("Publish(%s)", s.name)
}

// SubscribeSlot returns the value published under its name, waiting for it when needed.
type SubscribeSlot struct {
	name string
}

// Subscribe returns a node reading name from the pipeline context. Its own inputs are ignored.
func Subscribe(name string) *SubscribeSlot {
	return &SubscribeSlot{name: name}
}

func (s *SubscribeSlot) Name() string { return s.name }

func (s *SubscribeSlot) Type() model.NodeType { return model.SubscribeNodeType }

func (s *SubscribeSlot) Children() []Node { return nil }

func (s *SubscribeSlot) Then(next Node) *TaskGroup { return Then(s, next) }

func (s *SubscribeSlot) With(other Node) *TaskGroup { return With(s, other) }

func (s *SubscribeSlot) Invoke(ctx context.Context, pc *PipelineContext, _ Input) (any, error) {
	start := time.Now()
	value, err := pc.WaitOutput(ctx, s.name)

	if hookErr := observe(ctx, s, time.Since(start), err); err == nil && hookErr != nil {
		return nil, hookErr
	}
	if err != nil {
		return nil, err
	}

	return value, nil
}

func (s *SubscribeSlot) String() string {
	return fmt.Sprintf("Subscribe(%s)", s.name)
}
