package oracle

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os/exec"
	"sync"
)

// processRequest is one line written to the helper's stdin.
type processRequest struct {
	Terms     []string `json:"terms"`
	Algorithm string   `json:"algorithm"`
	Field     Field    `json:"field"`
}

// processResponse is one line read from the helper's stdout.
type processResponse struct {
	Found      bool   `json:"found"`
	ClosedForm string `json:"closed_form"`
	Error      string `json:"error,omitempty"`
}

// Process is a Guesser backed by a long-running helper program, typically a
// computer algebra script. Requests and responses are single JSON lines:
//
//	-> {"terms":["0","1","1","2"],"algorithm":"guess","field":"QQ"}
//	<- {"found":true,"closed_form":"..."}
//
// The helper is started on first use and restarted after a timeout or
// crash. Calls are serialised.
type Process struct {
	command    []string
	algorithms []string
	logger     *slog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
}

// NewProcess returns a guesser running command (program plus arguments)
// that supports the given algorithms.
func NewProcess(command []string, algorithms []string) (*Process, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, errors.New("oracle process: empty command")
	}
	if len(algorithms) == 0 {
		return nil, errors.New("oracle process: no algorithms configured")
	}
	return &Process{
		command:    append([]string(nil), command...),
		algorithms: append([]string(nil), algorithms...),
		logger:     slog.Default(),
	}, nil
}

// Algorithms implements Guesser.
func (p *Process) Algorithms() []string { return p.algorithms }

// Guess implements Guesser. If ctx ends before the helper answers, the
// helper is killed so the next call starts from a clean process.
func (p *Process) Guess(ctx context.Context, terms []*big.Int, algorithm string, field Field) (Solution, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureStarted(); err != nil {
		return Solution{}, err
	}

	req := processRequest{Terms: make([]string, len(terms)), Algorithm: algorithm, Field: field}
	for i, t := range terms {
		req.Terms[i] = t.String()
	}
	line, err := json.Marshal(req)
	if err != nil {
		return Solution{}, fmt.Errorf("oracle process: encode request: %w", err)
	}
	if _, err := p.stdin.Write(append(line, '\n')); err != nil {
		p.stop()
		return Solution{}, fmt.Errorf("oracle process: write request: %w", err)
	}

	type reply struct {
		line []byte
		err  error
	}
	ch := make(chan reply, 1)
	stdout := p.stdout
	go func() {
		b, err := stdout.ReadBytes('\n')
		ch <- reply{line: b, err: err}
	}()

	select {
	case <-ctx.Done():
		p.stop()
		return Solution{}, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			p.stop()
			return Solution{}, fmt.Errorf("oracle process: read response: %w", r.err)
		}
		var resp processResponse
		if err := json.Unmarshal(r.line, &resp); err != nil {
			return Solution{}, fmt.Errorf("oracle process: decode response: %w", err)
		}
		if resp.Error != "" {
			return Solution{}, fmt.Errorf("oracle process: %s", resp.Error)
		}
		return Solution{Found: resp.Found, ClosedForm: resp.ClosedForm}, nil
	}
}

// Close stops the helper.
func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stop()
	return nil
}

func (p *Process) ensureStarted() error {
	if p.cmd != nil {
		return nil
	}
	cmd := exec.Command(p.command[0], p.command[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("oracle process: stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("oracle process: stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("oracle process: start %s: %w", p.command[0], err)
	}
	p.logger.Debug("oracle helper started", "command", p.command[0], "pid", cmd.Process.Pid)
	p.cmd, p.stdin, p.stdout = cmd, stdin, bufio.NewReader(stdout)
	return nil
}

func (p *Process) stop() {
	if p.cmd == nil {
		return
	}
	_ = p.stdin.Close()
	_ = p.cmd.Process.Kill()
	_ = p.cmd.Wait()
	p.cmd, p.stdin, p.stdout = nil, nil, nil
}
