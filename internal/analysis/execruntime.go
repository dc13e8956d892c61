package analysis

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// execResponse is one line of the helper's stdout protocol.
type execResponse struct {
	Analysis      *PageAnalysis `json:"analysis"`
	InvalidExport bool          `json:"invalidExport"`
	Error         string        `json:"error"`
}

// ExecRuntime drives an analysis helper process over a line-delimited JSON
// protocol: one Request per stdin line, one response per stdout line. The
// process holds a single isolated module context, so each pool worker gets
// its own.
type ExecRuntime struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	out    *bufio.Scanner
	mu     sync.Mutex
	broken bool
}

// StartExecRuntime launches the helper and wires up its pipes.
func StartExecRuntime(command string, args ...string) (*ExecRuntime, error) {
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("analysis runtime stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("analysis runtime stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start analysis runtime: %w", err)
	}

	out := bufio.NewScanner(stdout)
	// Prerender route lists can run long.
	out.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	return &ExecRuntime{cmd: cmd, stdin: stdin, out: out}, nil
}

// ExecRuntimeFactory starts one helper process per pool worker.
func ExecRuntimeFactory(command string, args ...string) RuntimeFactory {
	return func() (Runtime, error) {
		return StartExecRuntime(command, args...)
	}
}

// Analyze sends one request and blocks for its response. A context
// cancellation mid-exchange leaves the protocol out of sync, so the
// runtime refuses further requests afterwards.
func (r *ExecRuntime) Analyze(ctx context.Context, req Request) (*PageAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.broken {
		return nil, fmt.Errorf("analysis runtime is out of sync")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode analysis request: %w", err)
	}
	if _, err := r.stdin.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("write analysis request: %w", err)
	}

	type scanned struct {
		line string
		err  error
	}
	ch := make(chan scanned, 1)
	go func() {
		if r.out.Scan() {
			ch <- scanned{line: r.out.Text()}
			return
		}
		err := r.out.Err()
		if err == nil {
			err = io.EOF
		}
		ch <- scanned{err: err}
	}()

	select {
	case <-ctx.Done():
		r.broken = true
		return nil, ctx.Err()
	case sc := <-ch:
		if sc.err != nil {
			return nil, fmt.Errorf("read analysis response: %w", sc.err)
		}
		var resp execResponse
		if err := json.Unmarshal([]byte(sc.line), &resp); err != nil {
			return nil, fmt.Errorf("decode analysis response: %w", err)
		}
		if resp.InvalidExport {
			return nil, &InvalidExportError{Page: req.Page}
		}
		if resp.Error != "" {
			return nil, fmt.Errorf("analyze %s: %s", req.Page, resp.Error)
		}
		return resp.Analysis, nil
	}
}

// Close ends the helper's stdin and waits for it to exit, killing it after
// a grace period.
func (r *ExecRuntime) Close() error {
	r.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- r.cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		r.cmd.Process.Kill()
		<-done
		return nil
	}
}
