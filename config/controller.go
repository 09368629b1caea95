package config

import (
	"fmt"

	"go.dedis.ch/tokenlock/cli"
	"go.dedis.ch/tokenlock/cli/node"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// controller is a CLI initializer that loads the configuration and injects it
// for the other controllers.
//
// - implements node.Initializer
type controller struct{}

// NewController returns a new controller initializer.
func NewController() node.Initializer {
	return controller{}
}

// SetCommands implements node.Initializer. It defines the commands to show and
// save the configuration.
func (controller) SetCommands(builder node.Builder) {
	cmd := builder.SetCommand("config")
	cmd.SetDescription("manage the configuration")

	sub := cmd.SetSubCommand("show")
	sub.SetDescription("print the configuration in effect")
	sub.SetAction(builder.MakeAction(showAction{}))

	sub = cmd.SetSubCommand("save")
	sub.SetDescription("write the configuration in effect to the config folder")
	sub.SetAction(builder.MakeAction(saveAction{}))
}

// OnStart implements node.Initializer. It loads the configuration file of the
// config folder, applies the flags and injects the result.
func (controller) OnStart(flags cli.Flags, inj node.Injector) error {
	cfg, err := Load(flags.Path(node.FlagConfig))
	if err != nil {
		return xerrors.Errorf("failed to load config: %v", err)
	}

	cfg = cfg.Override(flags)

	err = cfg.Validate()
	if err != nil {
		return xerrors.Errorf("invalid config: %v", err)
	}

	inj.Inject(cfg)

	return nil
}

// OnStop implements node.Initializer.
func (controller) OnStop(node.Injector) error {
	return nil
}

// showAction prints the configuration.
//
// - implements node.ActionTemplate
type showAction struct{}

// Execute implements node.ActionTemplate.
func (showAction) Execute(ctx node.Context) error {
	var cfg Config
	err := ctx.Injector.Resolve(&cfg)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return xerrors.Errorf("failed to marshal: %v", err)
	}

	fmt.Fprint(ctx.Out, string(data))

	return nil
}

// saveAction writes the configuration to the config folder.
//
// - implements node.ActionTemplate
type saveAction struct{}

// Execute implements node.ActionTemplate.
func (saveAction) Execute(ctx node.Context) error {
	var cfg Config
	err := ctx.Injector.Resolve(&cfg)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	err = cfg.Save(ctx.Flags.Path(node.FlagConfig))
	if err != nil {
		return xerrors.Errorf("failed to save: %v", err)
	}

	fmt.Fprintf(ctx.Out, "configuration saved to %s\n", FileName)

	return nil
}
