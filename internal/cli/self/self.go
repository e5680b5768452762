package self

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/urfave/cli/v2"

	"github.com/timqwees/qwees/internal/console"
)

// DefaultSource is the GitHub repository qwees releases are published to.
const DefaultSource = "timqwees/qwees"

// NewSelfCommand creates a new command for self-management.
func NewSelfCommand() *cli.Command {
	return &cli.Command{
		Name:  "self",
		Usage: "Manage the qwees CLI application itself",
		Subcommands: []*cli.Command{
			{
				Name:  "update",
				Usage: "Update qwees to the latest version",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Automatically confirm the update",
					},
					&cli.BoolFlag{
						Name:  "check",
						Usage: "Check for available updates without installing",
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "GitHub update source as 'owner/repo'",
						Value: DefaultSource,
					},
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "Enable verbose output",
					},
				},
				Action: updateAction,
			},
		},
	}
}

// ParseCurrentVersion accepts "vX.Y.Z" or "X.Y.Z".
func ParseCurrentVersion(v string) (*semver.Version, error) {
	parsed, err := semver.NewVersion(strings.TrimPrefix(strings.TrimSpace(v), "v"))
	if err != nil {
		return nil, fmt.Errorf("error parsing current version '%s': %w. Ensure version is like vX.Y.Z or X.Y.Z", v, err)
	}
	return parsed, nil
}

// ParseSource validates an "owner/repo" slug.
func ParseSource(s string) (string, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("invalid --source format. Expected 'owner/repo', got: %s", s)
	}
	return s, nil
}

// Confirm reads a y/N answer from r. Anything but "y" declines.
func Confirm(w io.Writer, r io.Reader, prompt string) bool {
	_, _ = fmt.Fprint(w, prompt)
	input, _ := bufio.NewReader(r).ReadString('\n')
	return strings.TrimSpace(strings.ToLower(input)) == "y"
}

func updateAction(c *cli.Context) error {
	printer := &console.Printer{Out: c.App.Writer, Err: c.App.ErrWriter}
	logger := log.NewWithOptions(c.App.ErrWriter, log.Options{Prefix: "qwees self"})
	if c.Bool("verbose") {
		logger.SetLevel(log.DebugLevel)
	}

	current, err := ParseCurrentVersion(c.App.Version)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	logger.Debug("current version", "version", current.String())

	slug, err := ParseSource(c.String("source"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	logger.Debug("update source", "repo", slug)

	ghSource, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error creating GitHub source: %v", err), 1)
	}
	updater, err := selfupdate.NewUpdater(selfupdate.Config{Source: ghSource})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to initialize updater: %v", err), 1)
	}

	latest, found, err := updater.DetectLatest(c.Context, selfupdate.ParseSlug(slug))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error detecting latest version: %v", err), 1)
	}
	if !found || !latest.GreaterThan(current.String()) {
		printer.Success("Current version %s is already the latest.", c.App.Version)
		return nil
	}
	logger.Debug("latest release", "version", latest.Version(), "url", latest.URL, "asset", latest.AssetURL)

	printer.Info("New version available: %s (current: %s)", latest.Version(), c.App.Version)
	if c.Bool("check") {
		return nil
	}

	if !c.Bool("yes") && !Confirm(printer.Stdout(), os.Stdin, "Do you want to update? (y/N): ") {
		printer.Info("Update cancelled.")
		return nil
	}

	execPath, err := os.Executable()
	if err != nil {
		return cli.Exit(fmt.Sprintf("Could not get executable path: %v", err), 1)
	}
	logger.Debug("replacing executable", "path", execPath)

	if err := updater.UpdateTo(c.Context, latest, execPath); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to update: %v", err), 1)
	}
	printer.Success("Successfully updated to version %s.", latest.Version())
	return nil
}
