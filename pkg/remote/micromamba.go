package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/Justype/modules/pkg/catalog"
	"github.com/Justype/modules/pkg/runner"
	"github.com/Justype/modules/pkg/telemetry"
	"github.com/Justype/modules/pkg/version"
)

// searchOutput is the part of "search --json" output that is used.
type searchOutput struct {
	Result struct {
		Status string `json:"status"`
		Msg    string `json:"msg"`
		Pkgs   []struct {
			Name    string `json:"name"`
			Version string `json:"version"`
			Channel string `json:"channel"`
		} `json:"pkgs"`
	} `json:"result"`
}

// channelArgs renders "-c <channel>" for every configured channel.
func channelArgs(channels []string) []string {
	args := make([]string, 0, 2*len(channels))
	for _, ch := range channels {
		args = append(args, "-c", ch)
	}
	return args
}

// SearchCommand builds the package manager search invocation for name.
func SearchCommand(micromamba, rootPrefix string, channels []string, name string) *runner.Command {
	args := []string{"--root-prefix", rootPrefix, "search"}
	args = append(args, channelArgs(channels)...)
	args = append(args, name, "--json")
	return &runner.Command{Name: micromamba, Args: args, CaptureStdout: true}
}

// CreateCommand builds the package manager invocation that installs
// name=version into prefix.
func CreateCommand(micromamba, rootPrefix string, channels []string, prefix, name, ver string) *runner.Command {
	args := []string{"--root-prefix", rootPrefix, "create", "--prefix", prefix}
	args = append(args, channelArgs(channels)...)
	args = append(args, fmt.Sprintf("%s=%s", name, ver), "-q", "-y")
	return &runner.Command{Name: micromamba, Args: args}
}

// Versions searches the configured channels for name. It returns ErrNotFound
// when the search succeeds without results.
func (c *Client) Versions(ctx context.Context, name string) (*Versions, error) {
	ctx, span := c.tel.Tracer.StartPackageSpan(ctx, "remote.versions", name, "")
	var result *Versions
	err := c.retry(ctx, "search remote versions", name, func() error {
		out, err := c.search(ctx, name)
		if err != nil {
			return err
		}
		result = out
		return nil
	})
	telemetry.EndSpan(span, err)
	c.record("versions", err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) search(ctx context.Context, name string) (*Versions, error) {
	cmd := SearchCommand(c.opts.Micromamba, c.opts.RootPrefix, c.opts.Channels, name)
	res, err := c.runner.Run(ctx, cmd)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if !res.Success() {
		return nil, fmt.Errorf("search exited with status %d: %s", res.ExitCode, strings.TrimSpace(res.StderrTail))
	}

	versions, err := ParseSearchOutput([]byte(res.Stdout), name)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if !catalog.ValidChannel(versions.Channel) {
		if len(c.opts.Channels) == 0 {
			return nil, backoff.Permanent(fmt.Errorf("search output for %s names no usable channel", name))
		}
		c.logger.Debug().
			Str("package", name).
			Str("reported", versions.Channel).
			Str("channel", c.opts.Channels[0]).
			Msg("Search output has no usable channel, using the first configured one")
		versions.Channel = c.opts.Channels[0]
	}
	return versions, nil
}

// ParseSearchOutput extracts the channel and the ordered, distinct versions
// of name from "search --json" output.
func ParseSearchOutput(data []byte, name string) (*Versions, error) {
	var out searchOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode search output: %w", err)
	}

	var (
		channel string
		raw     []string
	)
	for _, pkg := range out.Result.Pkgs {
		if pkg.Name != "" && pkg.Name != name {
			continue
		}
		if pkg.Version == "" {
			continue
		}
		if channel == "" {
			channel = normalizeChannel(pkg.Channel)
		}
		raw = append(raw, pkg.Version)
	}
	if len(raw) == 0 {
		return nil, ErrNotFound
	}

	return &Versions{
		Channel: channel,
		List:    version.Order(version.Dedupe(raw), true),
	}, nil
}

// normalizeChannel reduces channel URLs such as
// "https://conda.anaconda.org/bioconda/linux-64" to the channel name.
func normalizeChannel(ch string) string {
	if !strings.Contains(ch, "://") {
		name, _, _ := strings.Cut(ch, "/")
		return name
	}
	u, err := url.Parse(ch)
	if err != nil {
		return ch
	}
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			return seg
		}
	}
	return ch
}
