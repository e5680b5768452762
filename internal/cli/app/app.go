package app

import (
	"github.com/urfave/cli/v2"

	"github.com/timqwees/qwees/internal/cli/install"
	"github.com/timqwees/qwees/internal/cli/self"
	"github.com/timqwees/qwees/internal/console"
)

// New builds the qwees command tree.
func New(version string) *cli.App {
	return &cli.App{
		Name:    "qwees",
		Usage:   "Scaffold a new QweesCore PHP project",
		Version: version,
		Action: func(c *cli.Context) error {
			// No subcommand: show how to get started and fail.
			(&console.Printer{Out: c.App.Writer, Err: c.App.ErrWriter}).Usage()
			_ = cli.ShowAppHelp(c)
			return cli.Exit("", 1)
		},
		Commands: []*cli.Command{
			install.NewInstallCommand(),
			self.NewSelfCommand(),
		},
	}
}
