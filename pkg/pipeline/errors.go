package pipeline

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrNoRoot         = errors.New("at least one root node must be set")
	ErrNilNode        = errors.New("node must be set")
	ErrOutputMismatch = errors.New("subscribed outputs are never published")
	ErrTaskExecution  = errors.New("task execution failed")
	ErrArity          = errors.New("unexpected number of positional arguments")
	ErrArgumentType   = errors.New("unexpected argument type")
)

// OutputMismatchError is returned by New when some subscribed names have no publisher
// anywhere among the roots.
type OutputMismatchError struct {
	// Missing is sorted.
	Missing []string
}

func newOutputMismatchError(missing map[string]struct{}) *OutputMismatchError {
	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)

	return &OutputMismatchError{Missing: names}
}

func (e *OutputMismatchError) Error() string {
	return ErrOutputMismatch.Error() + ": " + strings.Join(e.Missing, ", ")
}

func (e *OutputMismatchError) Is(target error) bool {
	return target == ErrOutputMismatch
}

// TaskExecutionError wraps any failure raised by the body of a task.
type TaskExecutionError struct {
	Task  string
	Cause error
}

func (e *TaskExecutionError) Error() string {
	return "task " + e.Task + ": " + e.Cause.Error()
}

func (e *TaskExecutionError) Unwrap() error {
	return e.Cause
}

func (e *TaskExecutionError) Is(target error) bool {
	return target == ErrTaskExecution
}

type errorChans struct {
	mu   sync.Mutex
	list []*errorChan
}

func (ec *errorChans) add(errChan *errorChan) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.list = append(ec.list, errChan)
}

type errorChan struct {
	c    <-chan error
	name string
}

func newErrorChan(name string, c <-chan error) *errorChan {
	return &errorChan{
		c:    c,
		name: name,
	}
}

// mergeErrors merges multiple channels of errors.
// Based on https://blog.golang.org/pipelines.
func mergeErrors(cs ...*errorChan) <-chan error {
	var wg sync.WaitGroup
	// The output channel holds one error per input channel so that it never blocks,
	// even if waitForRoots returns early.
	out := make(chan error, len(cs))

	output := func(c *errorChan) {
		defer wg.Done()
		if c.c == nil {
			return
		}
		for n := range c.c {
			out <- errors.Wrap(n, c.name)
		}
	}
	wg.Add(len(cs))
	for _, c := range cs {
		go output(c)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
