package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/askiada/go-taskflow/pkg/checkpoint"
	"github.com/askiada/go-taskflow/pkg/pipeline"
	"github.com/askiada/go-taskflow/pkg/pipeline/drawer"
	"github.com/askiada/go-taskflow/pkg/pipeline/measure"
	"github.com/askiada/go-taskflow/pkg/pipeline/metrics"
	"github.com/askiada/go-taskflow/pkg/pipeline/model"
	"github.com/askiada/go-taskflow/pkg/resumable"
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

func newDemoCmd(a *app) *cobra.Command {
	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Run example pipelines",
	}

	pipelineCmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run the chained, fanned-in and publish/subscribe example pipelines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runDemoPipelines(cmd)
		},
	}

	stepsCmd := &cobra.Command{
		Use:   "steps <id>",
		Short: "Run the resumable example steps, checkpointed under id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDemoSteps(cmd, args[0])
		},
	}

	demoCmd.AddCommand(pipelineCmd, stepsCmd)

	return demoCmd
}

func (a *app) demoHooks(reg *prometheus.Registry, name string) ([]model.PipelineHook, error) {
	m := measure.NewDefaultMeasure()
	hooks := []model.PipelineHook{measure.PipelineMeasure(m)}

	if a.cfg.Metrics.Textfile != "" {
		hook, err := metrics.PipelineMetrics(reg, name)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, hook)
	}
	if a.cfg.Draw.Output != "" {
		output := strings.TrimSuffix(a.cfg.Draw.Output, ".dot") + "-" + name + ".dot"
		hooks = append(hooks, drawer.PipelineDrawer(drawer.NewDOTDrawer(output), m))
	}

	return hooks, nil
}

func (a *app) runDemoPipelines(cmd *cobra.Command) error {
	reg := prometheus.NewRegistry()

	gen := pipeline.Task0(genA)
	fanIn := pipeline.Task0(letterA).With(pipeline.Task0(letterB)).Then(pipeline.Task2(combine))
	producer := pipeline.Task0(genA).Then(pipeline.Publish("generated"))
	consumer := pipeline.Subscribe("generated").Then(pipeline.Task1(convertA))

	demos := []struct {
		name  string
		roots []pipeline.Node
	}{
		{name: "chain", roots: []pipeline.Node{gen.Then(pipeline.Task1(convertA))}},
		{name: "fan-in", roots: []pipeline.Node{fanIn}},
		{name: "slots", roots: []pipeline.Node{consumer, producer}},
	}

	for _, demo := range demos {
		hooks, err := a.demoHooks(reg, demo.name)
		if err != nil {
			return err
		}
		pipe, err := pipeline.New(demo.roots,
			pipeline.PipelineName(demo.name),
			pipeline.PipelineLogger(a.logger),
			pipeline.PipelineHooks(hooks...),
		)
		if err != nil {
			return errors.Wrapf(err, "unable to create pipeline %s", demo.name)
		}

		out, err := pipe.Run(cmd.Context())
		if err != nil {
			return errors.Wrapf(err, "pipeline %s failed", demo.name)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", demo.name, out)
	}

	if a.cfg.Metrics.Textfile != "" {
		err := prometheus.WriteToTextfile(a.cfg.Metrics.Textfile, reg)
		if err != nil {
			return errors.Wrap(err, "unable to write metrics")
		}
	}

	return nil
}

func prompt(_ context.Context, data checkpoint.Data) (checkpoint.Data, error) {
	data["prompt"] = "a lighthouse at dusk"

	return data, nil
}

func describe(_ context.Context, data checkpoint.Data) (checkpoint.Data, error) {
	data["description"] = fmt.Sprintf("a painting of %v", data["prompt"])

	return data, nil
}

func tag(_ context.Context, data checkpoint.Data) (checkpoint.Data, error) {
	data["tags"] = []string{"landscape", "sea"}

	return data, nil
}

func caption(_ context.Context, data checkpoint.Data) (checkpoint.Data, error) {
	data["caption"] = fmt.Sprintf("%v (%v)", data["description"], data["tags"])

	return data, nil
}

func (a *app) runDemoSteps(cmd *cobra.Command, id string) error {
	strategy, closeFn, err := a.cfg.Checkpoint.OpenStrategy(a.logger)
	if err != nil {
		return err
	}
	defer closeFn()

	steps := []resumable.Step{
		resumable.Single(prompt),
		resumable.Concurrent([]resumable.StepFunc{describe, tag}),
		resumable.Single(caption),
	}

	data, err := resumable.NewRunner(strategy, resumable.RunnerLogger(a.logger)).
		Execute(cmd.Context(), id, steps, checkpoint.Data{})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), data["caption"])

	return nil
}
