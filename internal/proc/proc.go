// internal/proc/proc.go
package proc

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Proc gives a goroutine the lifecycle of a child process: it runs one
// function in isolation, records an exit code when the function returns
// (or panics), stays observable via Alive/ExitCode, and can be killed.
// Kill is a cancellation broadcast delivered through the run context; the
// function is expected to notice it at its next blocking operation.
type Proc struct {
	name string
	kill context.CancelFunc
	done chan struct{}

	mu   sync.Mutex
	err  error
	code int
}

// A Coder error carries an explicit process exit code.
type Coder interface{ ExitCode() int }

// Spawn starts run in its own goroutine. A recovered panic is treated as a
// crash: it never propagates to other procs and surfaces only as a nonzero
// exit code, like an unhandled fault in a child process.
func Spawn(ctx context.Context, name string, run func(context.Context) error) *Proc {
	pctx, cancel := context.WithCancel(ctx)
	p := &Proc{name: name, kill: cancel, done: make(chan struct{})}

	go func() {
		defer cancel()
		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%s: panic: %v", name, r)
				}
			}()
			return run(pctx)
		}()

		p.mu.Lock()
		p.err = err
		p.code = exitCode(err)
		p.mu.Unlock()
		close(p.done)
	}()

	return p
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var c Coder
	if errors.As(err, &c) {
		return c.ExitCode()
	}
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}

func (p *Proc) Name() string { return p.name }

// Alive reports whether the proc has not yet exited.
func (p *Proc) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Done is closed when the proc has exited.
func (p *Proc) Done() <-chan struct{} { return p.done }

// Kill broadcasts cancellation to the proc. It does not wait.
func (p *Proc) Kill() { p.kill() }

// Wait blocks until the proc exits or ctx is done. It reports only whether
// the wait itself succeeded; the proc's outcome is read via ExitCode/Err.
func (p *Proc) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExitCode returns the recorded exit code, or -1 while the proc is alive.
func (p *Proc) ExitCode() int {
	select {
	case <-p.done:
	default:
		return -1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.code
}

// Err returns the error the proc exited with, nil for a clean exit or while
// the proc is still alive.
func (p *Proc) Err() error {
	select {
	case <-p.done:
	default:
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// WithCode wraps err so the proc exits with the given code.
func WithCode(code int, err error) error {
	return &codedError{code: code, err: err}
}

type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return fmt.Sprintf("exit %d: %v", e.code, e.err) }
func (e *codedError) ExitCode() int { return e.code }
func (e *codedError) Unwrap() error { return e.err }
