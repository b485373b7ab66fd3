// Package pipeline provides a composition engine for graphs of tasks.
//
// A graph is built once from leaf tasks and two composition operators. Then chains nodes: each
// node receives the result of the previous one. With fans out: every node is started at once
// with the same input and the results are collected in declaration order.
//
//	gen := pipeline.Task0(generate)
//	convert := pipeline.Task1(convertImage)
//	pipe, err := pipeline.New([]pipeline.Node{gen.Then(convert)})
//	out, err := pipe.Run(ctx)
//
// Independent subgraphs can be given to a pipeline as separate roots. They run concurrently and
// rendezvous through a PipelineContext created for every run: Publish stores a value under a name
// and Subscribe waits until that name is published. Pipelines are validated when they are created,
// a subscription without any publisher among the roots is an OutputMismatchError and nothing runs.
//
// Any failure of a task body, including a panic, is returned as a TaskExecutionError carrying the
// task name. A sequential chain stops on its first failure; a parallel group cancels the context
// of the siblings still running and returns the first failure.
//
// The pipeline never retries a task. Bodies that need it can be wrapped with Retrying.
package pipeline
