package dashboard

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/teslashibe/go-blindaid/pkg/hub"
)

// DefaultStopTimeout is how long Stop waits for a graceful exit before
// killing the process group.
const DefaultStopTimeout = 5 * time.Second

// CommandFunc returns the program and arguments for one detection run.
type CommandFunc func(settingsPath string) (name string, args []string)

// RunCommand launches this binary's run subcommand.
func RunCommand(settingsPath string) (string, []string) {
	exe, err := os.Executable()
	if err != nil {
		exe = "blindaid"
	}
	return exe, []string{"run", "--settings", settingsPath}
}

// SupervisorConfig configures the detection process supervisor.
type SupervisorConfig struct {
	SettingsPath string
	Command      CommandFunc
	LogLines     int
	StopTimeout  time.Duration
	Env          []string

	// Stdin is forwarded line by line to whichever process is running, so
	// the calibration distance prompt can be answered from the dashboard's
	// terminal. Lines read while no process runs are dropped. Optional.
	Stdin io.Reader

	// Hub receives every output line and status change. Optional.
	Hub *hub.Hub

	Clock  clock.Clock
	Logger *slog.Logger
}

// Status describes the supervised process.
type Status struct {
	Running   bool       `json:"running"`
	RunID     string     `json:"run_id,omitempty"`
	PID       int        `json:"pid,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	ExitedAt  *time.Time `json:"exited_at,omitempty"`
	ExitError string     `json:"exit_error,omitempty"`
}

// Supervisor starts and stops the detection process and collects its
// output.
type Supervisor struct {
	cfg    SupervisorConfig
	clock  clock.Clock
	logger *slog.Logger
	logs   *LogBuffer

	forwardOnce sync.Once

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	done   chan struct{}
	status Status
}

// NewSupervisor creates an idle supervisor.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	if cfg.Command == nil {
		cfg.Command = RunCommand
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Supervisor{
		cfg:    cfg,
		clock:  cfg.Clock,
		logger: cfg.Logger.With("component", "dashboard.supervisor"),
		logs:   NewLogBuffer(cfg.LogLines),
	}
}

// Start launches a detection process. ctx bounds the process lifetime, so
// it should outlive the request that triggered it.
func (s *Supervisor) Start(ctx context.Context) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.Running {
		return s.status, ErrAlreadyRunning
	}

	name, args := s.cfg.Command(s.cfg.SettingsPath)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), s.cfg.Env...)
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killGroup(cmd) }
	cmd.WaitDelay = s.cfg.StopTimeout

	var stdin io.WriteCloser
	if s.cfg.Stdin != nil {
		w, err := cmd.StdinPipe()
		if err != nil {
			return s.status, fmt.Errorf("stdin pipe: %w", err)
		}
		stdin = w
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return s.status, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return s.status, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return s.status, fmt.Errorf("start %s: %w", name, err)
	}

	runID := uuid.NewString()
	started := s.clock.Now()
	s.cmd = cmd
	s.stdin = stdin
	s.done = make(chan struct{})
	s.status = Status{
		Running:   true,
		RunID:     runID,
		PID:       cmd.Process.Pid,
		StartedAt: &started,
	}
	s.logger.Info("detection process started", "run_id", runID, "pid", cmd.Process.Pid)
	s.publish(hub.StatusEvent(runID, true, started))

	var scanners sync.WaitGroup
	scanners.Add(2)
	go s.scan(&scanners, runID, "stdout", stdout)
	go s.scan(&scanners, runID, "stderr", stderr)
	go s.wait(&scanners, cmd, runID, s.done)
	if stdin != nil {
		s.forwardOnce.Do(func() { go s.forwardStdin() })
	}

	return s.status, nil
}

func (s *Supervisor) scan(wg *sync.WaitGroup, runID, stream string, r io.Reader) {
	defer wg.Done()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := LogLine{Time: s.clock.Now(), RunID: runID, Stream: stream, Text: sc.Text()}
		line = s.logs.Add(line)
		ev := hub.LogEvent(runID, stream, line.Text, line.Time)
		ev.Seq = line.Seq
		s.publish(ev)
	}
}

func (s *Supervisor) wait(scanners *sync.WaitGroup, cmd *exec.Cmd, runID string, done chan struct{}) {
	scanners.Wait()
	err := cmd.Wait()
	exited := s.clock.Now()

	s.mu.Lock()
	if s.status.RunID == runID {
		s.status.Running = false
		s.status.ExitedAt = &exited
		if err != nil {
			s.status.ExitError = err.Error()
		}
		s.cmd = nil
		s.stdin = nil
	}
	s.mu.Unlock()
	close(done)

	s.logger.Info("detection process exited", "run_id", runID, "error", err)
	s.publish(hub.StatusEvent(runID, false, exited))
}

// forwardStdin copies cfg.Stdin to the current process until it is
// exhausted. The child never shares the terminal directly: it runs in its
// own process group and would be stopped by SIGTTIN on a terminal read.
func (s *Supervisor) forwardStdin() {
	sc := bufio.NewScanner(s.cfg.Stdin)
	for sc.Scan() {
		s.mu.Lock()
		w := s.stdin
		s.mu.Unlock()
		if w == nil {
			s.logger.Debug("input dropped, detection not running")
			continue
		}
		if _, err := io.WriteString(w, sc.Text()+"\n"); err != nil {
			s.logger.Debug("forward input", "error", err)
		}
	}
	if err := sc.Err(); err != nil {
		s.logger.Warn("read input", "error", err)
	}
}

// Stop asks the process group to terminate and waits for it. After
// StopTimeout the group is killed.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.status.Running || s.cmd == nil {
		s.mu.Unlock()
		return ErrNotRunning
	}
	cmd, done := s.cmd, s.done
	s.mu.Unlock()

	if err := terminateGroup(cmd); err != nil {
		s.logger.Warn("terminate process group", "error", err)
	}

	select {
	case <-done:
		return nil
	case <-s.clock.After(s.cfg.StopTimeout):
	case <-ctx.Done():
	}

	s.logger.Warn("detection process did not exit, killing")
	if err := killGroup(cmd); err != nil {
		return fmt.Errorf("kill process group: %w", err)
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a snapshot of the process state.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Done is closed when the current process exits. It is nil before the
// first Start.
func (s *Supervisor) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Logs returns up to n of the newest output lines.
func (s *Supervisor) Logs(n int) []LogLine {
	return s.logs.Last(n)
}

func (s *Supervisor) publish(ev hub.Event) {
	if s.cfg.Hub == nil {
		return
	}
	if err := s.cfg.Hub.Publish(ev); err != nil {
		s.logger.Debug("publish event", "error", err)
	}
}
