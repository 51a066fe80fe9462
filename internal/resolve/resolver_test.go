package resolve

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"

	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

func TestMadgeArgs(t *testing.T) {
	tests := []struct {
		name string
		opts MadgeOptions
		want []string
	}{
		{"bare", MadgeOptions{}, []string{"--json", "src"}},
		{
			"all flags",
			MadgeOptions{
				Exclude:       "^node_modules",
				TSConfig:      "tsconfig.json",
				WebpackConfig: "webpack.config.js",
				RequireConfig: "require.js",
				Extensions:    []string{"js", "ts"},
			},
			[]string{
				"--json",
				"--exclude", "^node_modules",
				"--ts-config", "tsconfig.json",
				"--webpack-config", "webpack.config.js",
				"--require-config", "require.js",
				"--extensions", "js,ts",
				"src",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewMadge([]string{"src"}, tt.opts).Args()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Args() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMadgeDefaultsCommand(t *testing.T) {
	r := NewMadge([]string{"src"}, MadgeOptions{})
	if r.opts.Command != "madge" {
		t.Errorf("command = %q, want madge", r.opts.Command)
	}
}

func TestMadgeNoFiles(t *testing.T) {
	_, err := NewMadge(nil, MadgeOptions{}).Resolve(context.Background())
	if !errors.Is(err, ErrNoFiles) {
		t.Fatalf("expected ErrNoFiles, got %v", err)
	}
}

func fakeMadge(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "madge")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMadgeResolve(t *testing.T) {
	cmd := fakeMadge(t, `echo '{"src/b.js": ["src/a.js"], "src/a.js": []}'`+"\n")

	g, err := NewMadge([]string{"src"}, MadgeOptions{Command: cmd}).Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := []string{"src/b.js", "src/a.js"}; !reflect.DeepEqual(g.Files(), want) {
		t.Errorf("files = %v, want %v", g.Files(), want)
	}
	if want := []string{"src/a.js"}; !reflect.DeepEqual(g.Dependencies("src/b.js"), want) {
		t.Errorf("deps = %v, want %v", g.Dependencies("src/b.js"), want)
	}
}

func TestMadgeResolveFailure(t *testing.T) {
	cmd := fakeMadge(t, "echo boom >&2\nexit 3\n")

	_, err := NewMadge([]string{"src"}, MadgeOptions{Command: cmd}).Resolve(context.Background())
	if err == nil {
		t.Fatal("expected error from failing command")
	}
}

func TestMadgeResolveMalformed(t *testing.T) {
	cmd := fakeMadge(t, "echo '[1, 2]'\n")

	_, err := NewMadge([]string{"src"}, MadgeOptions{Command: cmd}).Resolve(context.Background())
	if !errors.Is(err, depgraph.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestFileResolver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deps.json")
	if err := os.WriteFile(path, []byte(`{"a/x": ["b/y"]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	g, err := FileResolver{Path: path}.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if g.Len() != 1 || g.EdgeCount() != 1 {
		t.Errorf("got %d files, %d edges; want 1, 1", g.Len(), g.EdgeCount())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (FileResolver{Path: path}).Resolve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
