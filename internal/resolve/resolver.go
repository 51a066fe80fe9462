// Package resolve extracts file dependency graphs from a source tree.
package resolve

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

// ErrNoFiles is returned when a resolver is asked to scan nothing.
var ErrNoFiles = errors.New("no files specified")

// Resolver produces a dependency graph.
type Resolver interface {
	Resolve(ctx context.Context) (*depgraph.Graph, error)
}

// MadgeOptions mirror the madge configuration flags.
type MadgeOptions struct {
	Command       string
	Exclude       string
	TSConfig      string
	WebpackConfig string
	RequireConfig string
	Extensions    []string
	Dir           string
	Timeout       time.Duration
}

// MadgeResolver runs `madge --json` over a set of paths.
type MadgeResolver struct {
	files []string
	opts  MadgeOptions
}

// NewMadge returns a resolver scanning files with opts.
func NewMadge(files []string, opts MadgeOptions) *MadgeResolver {
	if opts.Command == "" {
		opts.Command = "madge"
	}
	return &MadgeResolver{files: files, opts: opts}
}

// Args returns the madge command line, without the command itself.
func (r *MadgeResolver) Args() []string {
	args := []string{"--json"}
	if r.opts.Exclude != "" {
		args = append(args, "--exclude", r.opts.Exclude)
	}
	if r.opts.TSConfig != "" {
		args = append(args, "--ts-config", r.opts.TSConfig)
	}
	if r.opts.WebpackConfig != "" {
		args = append(args, "--webpack-config", r.opts.WebpackConfig)
	}
	if r.opts.RequireConfig != "" {
		args = append(args, "--require-config", r.opts.RequireConfig)
	}
	if len(r.opts.Extensions) > 0 {
		args = append(args, "--extensions", strings.Join(r.opts.Extensions, ","))
	}
	return append(args, r.files...)
}

// Resolve runs madge and decodes its output.
func (r *MadgeResolver) Resolve(ctx context.Context) (*depgraph.Graph, error) {
	if len(r.files) == 0 {
		return nil, ErrNoFiles
	}
	timeout := r.opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := r.Args()
	cmd := exec.CommandContext(ctx, r.opts.Command, args...)
	cmd.Dir = r.opts.Dir

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("resolving dependencies", "command", r.opts.Command, "args", args)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s %v failed: %w\n%s", r.opts.Command, args, err, stderr.Bytes())
	}

	g, err := depgraph.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode %s output: %w", r.opts.Command, err)
	}
	return g, nil
}

// FileResolver reads a dependency graph saved as JSON.
type FileResolver struct {
	Path string
}

// Resolve loads the graph from disk.
func (r FileResolver) Resolve(ctx context.Context) (*depgraph.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return depgraph.Load(r.Path)
}
