// internal/supervise/supervisor.go
package supervise

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kinscan/internal/proc"
)

const (
	// DefaultPollInterval bounds failure-detection latency: a crash is
	// noticed at most one interval after it happens.
	DefaultPollInterval = time.Second

	// DefaultKillGrace is how long killed children get to exit before the
	// supervisor stops waiting and logs them as stuck.
	DefaultKillGrace = 3 * time.Second
)

// ExitError reports the first monitored child observed to exit nonzero.
// Its code becomes the whole run's exit code.
type ExitError struct {
	Name string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("supervise: %s exited with code %d", e.Name, e.Code)
}

func (e *ExitError) ExitCode() int { return e.Code }

// Config holds supervisor tuning; zero values select the defaults.
type Config struct {
	PollInterval time.Duration
	KillGrace    time.Duration
	Logger       *slog.Logger
}

// Supervisor watches a fixed set of procs and enforces fail-fast
// termination. It never performs work itself: it only observes and, on
// failure, intervenes.
type Supervisor struct {
	procs    []*proc.Proc
	interval time.Duration
	grace    time.Duration
	log      *slog.Logger
}

func New(cfg Config, procs ...*proc.Proc) *Supervisor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = DefaultKillGrace
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Supervisor{
		procs:    procs,
		interval: cfg.PollInterval,
		grace:    cfg.KillGrace,
		log:      cfg.Logger,
	}
}

// Watch polls liveness and exit status of every monitored proc. If any proc
// has exited nonzero, Watch kills every other still-alive proc and returns
// the corresponding *ExitError — no partial-result flush, no retry. If all
// procs exit cleanly, Watch returns nil. If ctx is canceled the failure is
// already propagating elsewhere, so Watch kills any survivors and returns
// nil rather than masking the original error.
func (s *Supervisor) Watch(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		allExited := true
		for _, p := range s.procs {
			if p.Alive() {
				allExited = false
				continue
			}
			if code := p.ExitCode(); code != 0 {
				s.log.Error("child exited abnormally, aborting run",
					"child", p.Name(), "code", code, "err", p.Err())
				s.killAll()
				return &ExitError{Name: p.Name(), Code: code}
			}
		}
		if allExited {
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			s.killAll()
			return nil
		}
	}
}

// killAll broadcasts kill to every live proc and waits up to the grace
// period for them to exit.
func (s *Supervisor) killAll() {
	for _, p := range s.procs {
		if p.Alive() {
			s.log.Warn("terminating child", "child", p.Name())
			p.Kill()
		}
	}

	timer := time.NewTimer(s.grace)
	defer timer.Stop()
	expired := false
	for _, p := range s.procs {
		if expired {
			if p.Alive() {
				s.log.Warn("child did not exit within grace period", "child", p.Name())
			}
			continue
		}
		select {
		case <-p.Done():
		case <-timer.C:
			expired = true
			if p.Alive() {
				s.log.Warn("child did not exit within grace period", "child", p.Name())
			}
		}
	}
}
