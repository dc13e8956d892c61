package bundler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Kind selects the bundle target.
type Kind string

const (
	KindClient Kind = "client"
	KindServer Kind = "server"
)

// Config describes one compilation pass. It is serialized to JSON and fed
// to the bundler toolchain on stdin.
type Config struct {
	// Kind is the bundle target.
	Kind Kind `json:"kind"`

	// ProjectDir is the root directory of the project.
	ProjectDir string `json:"projectDir"`

	// OutputDir is where the bundles are written.
	OutputDir string `json:"outputDir"`

	// BuildID namespaces the emitted assets.
	BuildID string `json:"buildId"`

	// Pages maps page paths to their source files, relative to ProjectDir.
	Pages map[string]string `json:"pages"`

	// Env is the runtime environment inlined into the bundles.
	Env map[string]string `json:"env,omitempty"`

	// Modern additionally emits module-format variants of client bundles.
	Modern bool `json:"modern,omitempty"`
}

// Result is the bundler's report for one compilation pass. A populated
// Errors slice means the pass failed; Warnings alone do not.
type Result struct {
	// Errors are the fatal diagnostics, in the order the bundler found them.
	Errors []string `json:"errors"`

	// Warnings are the non-fatal diagnostics.
	Warnings []string `json:"warnings"`

	// Duration is how long the pass took.
	Duration time.Duration `json:"-"`
}

// Bundler compiles page sources into bundles.
type Bundler interface {
	Compile(ctx context.Context, cfg Config) (*Result, error)
}

// ExecBundler runs the bundler toolchain as a subprocess. The command
// receives the Config as JSON on stdin and must write a Result report as
// JSON to stdout, even when compilation fails.
type ExecBundler struct {
	// Command is the bundler executable.
	Command string

	// Args are passed before the generated flags.
	Args []string
}

// Compile invokes the bundler command and decodes its report. An error is
// returned only when the toolchain itself breaks; compile diagnostics come
// back inside the Result.
func (b *ExecBundler) Compile(ctx context.Context, cfg Config) (*Result, error) {
	start := time.Now()

	payload, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode bundler config: %w", err)
	}

	args := append(append([]string{}, b.Args...), "--kind="+string(cfg.Kind))
	cmd := exec.CommandContext(ctx, b.Command, args...)
	cmd.Dir = cfg.ProjectDir
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	res, decodeErr := decodeReport(stdout.Bytes())
	if decodeErr != nil {
		if runErr != nil {
			detail := strings.TrimSpace(stderr.String())
			if detail == "" {
				detail = runErr.Error()
			}
			return nil, compileFailed(cfg.Kind).WithDetail(detail).Wrap(runErr)
		}
		return nil, compileFailed(cfg.Kind).
			WithDetail("The bundler exited cleanly but its report could not be read.").
			Wrap(decodeErr)
	}

	res.Duration = time.Since(start)
	return res, nil
}

// decodeReport parses the toolchain's JSON report.
func decodeReport(data []byte) (*Result, error) {
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode bundler report: %w", err)
	}
	return &res, nil
}
