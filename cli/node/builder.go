// This file contains the implementation of a CLI builder.

package node

import (
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/tokenlock"
	"go.dedis.ch/tokenlock/cli"
	"go.dedis.ch/tokenlock/cli/ucli"
	"golang.org/x/xerrors"
)

const (
	// FlagConfig is the name of the flag of the configuration folder.
	FlagConfig = "config"

	// FlagMetrics is the name of the flag of the metrics file.
	FlagMetrics = "metrics"
)

// CLIBuilder is an application builder that will build a CLI whose actions run
// on the components of the initializers.
//
// - implements node.Builder
// - implements cli.Builder
type CLIBuilder struct {
	cli.Builder

	inits  []Initializer
	writer io.Writer
}

// NewBuilder returns a new empty builder.
func NewBuilder(inits ...Initializer) *CLIBuilder {
	return NewBuilderWithCfg(nil, nil, inits...)
}

// NewBuilderWithCfg returns a new empty builder with specific configurations.
// The flags are available to every command on top of the configuration folder
// and the metrics file.
func NewBuilderWithCfg(out io.Writer, flags []cli.Flag, inits ...Initializer) *CLIBuilder {
	if out == nil {
		out = os.Stdout
	}

	global := []cli.Flag{
		cli.StringFlag{
			Name:  FlagConfig,
			Usage: "path to the config folder",
			Value: ".tokenlock",
		},
		cli.StringFlag{
			Name:  FlagMetrics,
			Usage: "if provided, write the metrics to that file after the command",
		},
	}

	// We are using urfave cli builder
	builder := ucli.NewBuilder("tokenlock", nil, append(global, flags...)...)

	return &CLIBuilder{
		Builder: builder,
		inits:   inits,
		writer:  out,
	}
}

// MakeAction implements node.Builder. It creates a CLI action from the
// template. The action starts the components of the initializers, executes
// the template and stops the components.
func (b *CLIBuilder) MakeAction(tmpl ActionTemplate) cli.Action {
	return func(flags cli.Flags) error {
		dir := flags.Path(FlagConfig)
		if dir != "" {
			err := os.MkdirAll(dir, 0700)
			if err != nil {
				return xerrors.Errorf("couldn't make path: %v", err)
			}
		}

		injector := NewInjector()

		for i, controller := range b.inits {
			err := controller.OnStart(flags, injector)
			if err != nil {
				b.stop(injector, i)

				return xerrors.Errorf("couldn't run the controller: %v", err)
			}
		}

		ctx := Context{
			Injector: injector,
			Flags:    flags,
			Out:      b.writer,
		}

		err := tmpl.Execute(ctx)

		stopErr := b.stop(injector, len(b.inits))

		if err != nil {
			return err
		}

		if stopErr != nil {
			return xerrors.Errorf("couldn't stop controller: %v", stopErr)
		}

		path := flags.Path(FlagMetrics)
		if path != "" {
			err = writeMetrics(path)
			if err != nil {
				return xerrors.Errorf("couldn't write metrics: %v", err)
			}
		}

		return nil
	}
}

// Build implements node.Builder. It returns the application.
func (b *CLIBuilder) Build() cli.Application {
	for _, controller := range b.inits {
		controller.SetCommands(b)
	}

	return b.Builder.Build()
}

// stop stops the first n controllers in reverse order so that high level
// components are stopped before lower level ones (i.e. stop a service before
// the database). It returns the first error.
func (b *CLIBuilder) stop(inj Injector, n int) error {
	var first error

	for i := n - 1; i >= 0; i-- {
		err := b.inits[i].OnStop(inj)
		if err != nil && first == nil {
			first = err
		}
	}

	tokenlock.Logger.Trace().Int("controllers", n).Msg("controllers have been stopped")

	return first
}

func writeMetrics(path string) error {
	registry := prometheus.NewRegistry()

	for _, c := range tokenlock.PromCollectors {
		err := registry.Register(c)
		if err != nil {
			return xerrors.Errorf("failed to register: %v", err)
		}
	}

	err := prometheus.WriteToTextfile(path, registry)
	if err != nil {
		return xerrors.Errorf("failed to write: %v", err)
	}

	return nil
}
