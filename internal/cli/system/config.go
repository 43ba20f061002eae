package system

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/daystreak/internal/cli"
	"github.com/julianstephens/daystreak/internal/keyring"
)

type ConfigCmd struct {
	Show ConfigShowCmd `cmd:"" default:"1" help:"Print the effective configuration."`
}

// ConfigShowCmd prints the configuration after file, environment and flag
// overrides were applied.
type ConfigShowCmd struct{}

func (c *ConfigShowCmd) Run(ctx *cli.Context) error {
	cfg := ctx.Config
	cfg.Database = keyring.MaskPassword(cfg.Database)
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	ctx.Printf("%s", out)
	return nil
}
