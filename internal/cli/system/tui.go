package system

import (
	"github.com/julianstephens/daystreak/internal/cli"
	"github.com/julianstephens/daystreak/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	ctx.PerformAutomaticBackup()
	return tui.Run(ctx.Context(), ctx.Tracker)
}
