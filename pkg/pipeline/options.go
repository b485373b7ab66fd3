package pipeline

import (
	"log/slog"

	"github.com/askiada/go-taskflow/pkg/pipeline/model"
)

type Option func(p *Pipeline)

// PipelineName names the pipeline in logs and spans.
func PipelineName(name string) Option {
	return func(p *Pipeline) {
		p.name = name
	}
}

// PipelineLogger sets the logger. slog.Default() is used otherwise.
func PipelineLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// PipelineHooks registers observers of the pipeline graph and runs.
func PipelineHooks(hooks ...model.PipelineHook) Option {
	return func(p *Pipeline) {
		p.hooks = append(p.hooks, hooks...)
	}
}
