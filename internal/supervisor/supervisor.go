// Package supervisor launches the agent and dashboard processes as children
// and watches them until shutdown.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	logx "github.com/startupx/agents/pkg/logger"
)

type Config struct {
	StartDelay      time.Duration `envconfig:"SUPERVISOR_START_DELAY" default:"2s"`
	MonitorInterval time.Duration `envconfig:"SUPERVISOR_MONITOR_INTERVAL" default:"5s"`
	StopTimeout     time.Duration `envconfig:"SUPERVISOR_STOP_TIMEOUT" default:"5s"`
	// MaxRestarts is per child; zero only warns.
	MaxRestarts int    `envconfig:"SUPERVISOR_MAX_RESTARTS" default:"0"`
	LogDir      string `envconfig:"SUPERVISOR_LOG_DIR" default:"."`
}

// Process is one child: Name picks the log file, Args follow the executable.
type Process struct {
	Name string
	Args []string
}

// State is a point-in-time view of one child.
type State struct {
	Name     string
	PID      int
	Running  bool
	ExitCode int
	Restarts int
}

type child struct {
	spec     Process
	cmd      *exec.Cmd
	logFile  *os.File
	done     chan struct{}
	exitCode int
	restarts int
	warned   bool
}

func (c *child) exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

type Supervisor struct {
	cfg   Config
	exe   string
	procs []Process
	log   zerolog.Logger

	mu       sync.Mutex
	children []*child
}

func New(cfg Config, exe string, procs []Process) *Supervisor {
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = 5 * time.Second
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 5 * time.Second
	}
	if cfg.LogDir == "" {
		cfg.LogDir = "."
	}
	return &Supervisor{
		cfg:   cfg,
		exe:   exe,
		procs: procs,
		log:   logx.Component("supervisor"),
	}
}

// Run starts every process in order, then monitors them until ctx is done.
// All children are terminated before Run returns.
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.stopAll()

	if err := os.MkdirAll(s.cfg.LogDir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	for i, p := range s.procs {
		if i > 0 && s.cfg.StartDelay > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.cfg.StartDelay):
			}
		}
		c := &child{spec: p}
		if err := s.start(c, false); err != nil {
			return err
		}
		s.mu.Lock()
		s.children = append(s.children, c)
		s.mu.Unlock()
	}
	s.log.Info().Int("processes", len(s.procs)).Msg("All StartupX processes launched. Press Ctrl+C to stop.")

	ticker := time.NewTicker(s.cfg.MonitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Stopping all processes...")
			return nil
		case <-ticker.C:
			s.check()
		}
	}
}

// States reports every launched child.
func (s *Supervisor) States() []State {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]State, 0, len(s.children))
	for _, c := range s.children {
		st := State{Name: c.spec.Name, Restarts: c.restarts, Running: !c.exited()}
		if c.cmd.Process != nil {
			st.PID = c.cmd.Process.Pid
		}
		if !st.Running {
			st.ExitCode = c.exitCode
		}
		out = append(out, st)
	}
	return out
}

func (s *Supervisor) logPath(name string) string {
	return filepath.Join(s.cfg.LogDir, name+".log")
}

// start launches c. The log is truncated on first start and appended to on
// restarts.
func (s *Supervisor) start(c *child, restart bool) error {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if restart {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(s.logPath(c.spec.Name), flags, 0o644)
	if err != nil {
		return fmt.Errorf("open log for %s: %w", c.spec.Name, err)
	}

	cmd := exec.Command(s.exe, c.spec.Args...)
	cmd.Stdout = f
	cmd.Stderr = f
	cmd.Env = os.Environ()
	if err := cmd.Start(); err != nil {
		_ = f.Close()
		return fmt.Errorf("start %s: %w", c.spec.Name, err)
	}

	done := make(chan struct{})
	s.mu.Lock()
	c.cmd, c.logFile, c.done, c.warned = cmd, f, done, false
	s.mu.Unlock()

	go func() {
		err := cmd.Wait()
		code := 0
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else if err != nil {
			code = -1
		}
		s.mu.Lock()
		c.exitCode = code
		s.mu.Unlock()
		close(done)
	}()

	s.log.Info().Str("process", c.spec.Name).Int("pid", cmd.Process.Pid).Str("log", f.Name()).Msg("Started process")
	return nil
}

func (s *Supervisor) check() {
	s.mu.Lock()
	children := append([]*child(nil), s.children...)
	s.mu.Unlock()

	for _, c := range children {
		if !c.exited() {
			continue
		}
		s.mu.Lock()
		code, restarts, warned := c.exitCode, c.restarts, c.warned
		s.mu.Unlock()

		if restarts < s.cfg.MaxRestarts {
			_ = c.logFile.Close()
			s.mu.Lock()
			c.restarts++
			s.mu.Unlock()
			s.log.Warn().Str("process", c.spec.Name).Int("exit_code", code).Int("restart", restarts+1).Msg("Process stopped, restarting")
			if err := s.start(c, true); err != nil {
				s.log.Error().Err(err).Str("process", c.spec.Name).Msg("Restart failed")
			}
			continue
		}
		if !warned {
			s.log.Warn().Str("process", c.spec.Name).Int("exit_code", code).Msgf("Warning: %s has stopped unexpectedly. Exit code: %d", c.spec.Name, code)
			s.mu.Lock()
			c.warned = true
			s.mu.Unlock()
		}
	}
}

// stopAll sends SIGTERM, waits up to StopTimeout, then kills stragglers.
func (s *Supervisor) stopAll() {
	s.mu.Lock()
	children := append([]*child(nil), s.children...)
	s.mu.Unlock()

	for _, c := range children {
		if c.done == nil || c.exited() {
			continue
		}
		if err := c.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			s.log.Debug().Err(err).Str("process", c.spec.Name).Msg("Signal failed")
		}
	}

	timer := time.NewTimer(s.cfg.StopTimeout)
	defer timer.Stop()
	expired := false
	for _, c := range children {
		if c.done == nil {
			continue
		}
		if !expired {
			select {
			case <-c.done:
			case <-timer.C:
				expired = true
			}
		}
		if expired && !c.exited() {
			s.log.Warn().Str("process", c.spec.Name).Msg("Process did not stop, killing")
			_ = c.cmd.Process.Kill()
		}
		<-c.done
		_ = c.logFile.Close()
		s.log.Info().Str("process", c.spec.Name).Msg("Stopped process")
	}
}
