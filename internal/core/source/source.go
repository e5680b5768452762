package source

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/timqwees/qwees/internal/core/config"
)

// ErrInvalidSource is wrapped by every Parse failure.
var ErrInvalidSource = errors.New("invalid source")

// Locator names a repository archive on a GitHub-style host.
// An empty Ref means "keep the configured ref".
type Locator struct {
	BaseURL string
	Owner   string
	Repo    string
	RefKind string
	Ref     string
}

// Parse accepts one of:
//
//	github:owner/repo            configured ref
//	github:owner/repo@v2.0.0     tag
//	github:owner/repo#main       branch
//	https://host/owner/repo/archive/refs/tags/v2.0.0.zip
//	https://host/owner/repo/releases/tag/v2.0.0
func Parse(s string) (*Locator, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "github:"); ok {
		return parseShorthand(s, rest)
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse source URL '%s': %w", ErrInvalidSource, s, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: '%s' is neither a github: shorthand nor an http(s) URL", ErrInvalidSource, s)
	}
	return parseURL(u)
}

func parseShorthand(raw, rest string) (*Locator, error) {
	l := &Locator{BaseURL: "https://github.com"}
	repoPart := rest
	if i := strings.LastIndexAny(rest, "@#"); i != -1 {
		repoPart = rest[:i]
		l.Ref = rest[i+1:]
		l.RefKind = config.RefKindTags
		if rest[i] == '#' {
			l.RefKind = config.RefKindHeads
		}
		if l.Ref == "" {
			return nil, fmt.Errorf("%w: '%s': ref part is empty after %c", ErrInvalidSource, raw, rest[i])
		}
	}

	parts := strings.Split(repoPart, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: '%s': expected github:owner/repo[@tag|#branch]", ErrInvalidSource, raw)
	}
	l.Owner, l.Repo = parts[0], parts[1]
	return l, nil
}

func parseURL(u *url.URL) (*Locator, error) {
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: URL path %s: expected at least /<owner>/<repo>", ErrInvalidSource, u.Path)
	}
	l := &Locator{
		BaseURL: u.Scheme + "://" + u.Host,
		Owner:   parts[0],
		Repo:    parts[1],
	}

	rest := parts[2:]
	switch {
	case len(rest) == 0:
	case len(rest) == 4 && rest[0] == "archive" && rest[1] == "refs" &&
		(rest[2] == config.RefKindTags || rest[2] == config.RefKindHeads) && strings.HasSuffix(rest[3], ".zip"):
		l.RefKind = rest[2]
		l.Ref = strings.TrimSuffix(rest[3], ".zip")
	case len(rest) == 3 && rest[0] == "releases" && rest[1] == "tag":
		l.RefKind = config.RefKindTags
		l.Ref = rest[2]
	default:
		return nil, fmt.Errorf("%w: unsupported URL path %s. Use an /archive/refs/<tags|heads>/<ref>.zip or /releases/tag/<tag> URL", ErrInvalidSource, u.Path)
	}
	if l.RefKind != "" && l.Ref == "" {
		return nil, fmt.Errorf("%w: URL %s names no ref", ErrInvalidSource, u.String())
	}
	return l, nil
}

// Apply overlays the locator onto r.
func (l *Locator) Apply(r *config.Release) {
	r.BaseURL = l.BaseURL
	r.Owner = l.Owner
	r.Repo = l.Repo
	if l.Ref != "" {
		r.RefKind = l.RefKind
		r.Ref = l.Ref
	}
}

// String returns the canonical shorthand, e.g. github:timqwees/QweesCore@v2.0.0.
func (l *Locator) String() string {
	s := fmt.Sprintf("github:%s/%s", l.Owner, l.Repo)
	switch {
	case l.Ref == "":
		return s
	case l.RefKind == config.RefKindHeads:
		return s + "#" + l.Ref
	default:
		return s + "@" + l.Ref
	}
}
