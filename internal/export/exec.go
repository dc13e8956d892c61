package export

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"

	"github.com/kiln-dev/kiln/internal/errors"
)

// ExecExporter renders pages by spawning the page-runtime exporter. The
// options go to its stdin as JSON and the report comes back on stdout.
type ExecExporter struct {
	// Command is the exporter executable.
	Command string

	// Args are passed before the generated arguments.
	Args []string
}

var _ Exporter = (*ExecExporter)(nil)

func (e *ExecExporter) ExportApp(ctx context.Context, projectDir string, opts Options) (*Report, error) {
	payload, err := json.Marshal(opts)
	if err != nil {
		return nil, errors.New("E220").Wrap(err)
	}

	cmd := exec.CommandContext(ctx, e.Command, e.Args...)
	cmd.Dir = projectDir
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.New("E220").
			WithDetail(strings.TrimSpace(stderr.String())).
			Wrap(err)
	}

	var report Report
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		return nil, errors.New("E220").
			WithDetail("The exporter exited cleanly but its report could not be read.").
			Wrap(err)
	}
	return &report, nil
}
