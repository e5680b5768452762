package install

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/timqwees/qwees/internal/console"
	"github.com/timqwees/qwees/internal/core/config"
	"github.com/timqwees/qwees/internal/core/installer"
	"github.com/timqwees/qwees/internal/core/source"
	"github.com/timqwees/qwees/internal/core/target"
)

// NewInstallCommand creates a new cli.Command for the "install" command.
func NewInstallCommand() *cli.Command {
	return &cli.Command{
		Name:      "install",
		Usage:     "Creates a new QweesCore project in ./<project-name>",
		ArgsUsage: "<project-name>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML settings file",
				Value:   config.ConfigFileName,
			},
			&cli.StringFlag{
				Name:  "source",
				Usage: "Release to install: github:owner/repo[@tag|#branch] or an archive/release URL",
			},
			&cli.StringFlag{
				Name:  "ref",
				Usage: "Release tag to install, \"latest\" for the newest release (or a branch with --branch)",
			},
			&cli.BoolFlag{
				Name:  "branch",
				Usage: "Treat --ref as a branch name instead of a tag",
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "Archive host, e.g. https://github.com",
				EnvVars: []string{"QWEES_BASE_URL"},
			},
			&cli.StringFlag{
				Name:  "sha256",
				Usage: "Expected SHA256 of the release archive",
			},
			&cli.BoolFlag{
				Name:  "skip-deps",
				Usage: "Do not run the dependency installation script",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output",
			},
		},
		Action: installAction,
	}
}

func installAction(c *cli.Context) error {
	printer := &console.Printer{Out: c.App.Writer, Err: c.App.ErrWriter}

	if c.NArg() == 0 {
		printer.Usage()
		return cli.Exit("", 1)
	}
	name := c.Args().First()

	logger := log.NewWithOptions(c.App.ErrWriter, log.Options{
		Prefix:          "qwees",
		ReportTimestamp: false,
		Level:           log.InfoLevel,
	})
	if c.Bool("verbose") {
		logger.SetLevel(log.DebugLevel)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(console.CrashLine(installer.Label(err), err.Error()), 1)
	}
	logger.Debug("loaded configuration", "archive", cfg.Release.ArchiveURL(), "expected_root", cfg.Release.ExpectedRoot())

	wd, err := os.Getwd()
	if err != nil {
		return cli.Exit(console.CrashLine(installer.LabelUnhandledFailure, fmt.Sprintf("Could not determine working directory: %v", err)), 1)
	}

	report, err := installer.Install(c.Context, installer.Options{
		Config:  cfg,
		WorkDir: wd,
		Name:    name,
		Printer: printer,
		Logger:  logger,
		Animate: !color.NoColor && c.App.Writer == os.Stdout,
	})
	if err != nil {
		if errors.Is(err, target.ErrAlreadyExists) {
			return cli.Exit(console.CrashLine(installer.LabelAlreadyExists, "Folder already exists: "+name), 1)
		}
		return cli.Exit(console.CrashLine(installer.Label(err), "Error: "+err.Error()), 1)
	}

	clean := true
	for _, label := range report.Outcomes() {
		logger.Debug("non-fatal outcome", "label", label)
		if label != installer.LabelDependenciesSkipped {
			clean = false
		}
	}
	printer.Finish(clean)
	return nil
}

// loadConfig reads the settings file and applies flag overrides on top.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("source") {
		loc, err := source.Parse(c.String("source"))
		if err != nil {
			return nil, err
		}
		loc.Apply(&cfg.Release)
	}
	if c.IsSet("ref") {
		cfg.Release.Ref = c.String("ref")
	}
	if c.Bool("branch") {
		cfg.Release.RefKind = config.RefKindHeads
	}
	if c.IsSet("base-url") {
		cfg.Release.BaseURL = c.String("base-url")
	}
	if c.IsSet("sha256") {
		cfg.Release.SHA256 = c.String("sha256")
	}
	if c.Bool("skip-deps") {
		cfg.Install.Skip = true
	}
	return cfg, cfg.Validate()
}
