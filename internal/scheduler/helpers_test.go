package scheduler

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/anda/internal/command"
	"github.com/vk/anda/internal/manifest"
	"github.com/vk/anda/internal/vars"
)

// ExecutionRecord holds the start and end times of a single command.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// spyExecutor records every command it is asked to run. Commands starting
// with "fail" exit 1; "sleep:<duration> <id>" sleeps before succeeding.
type spyExecutor struct {
	mu       sync.Mutex
	calls    []command.Request
	records  map[string]*ExecutionRecord
	running  atomic.Int32
	maxSeen  atomic.Int32
	exitCode int
}

func newSpy() *spyExecutor {
	return &spyExecutor{records: make(map[string]*ExecutionRecord), exitCode: 1}
}

func (s *spyExecutor) Run(_ context.Context, req command.Request) (command.Result, error) {
	cur := s.running.Add(1)
	defer s.running.Add(-1)
	for {
		prev := s.maxSeen.Load()
		if cur <= prev || s.maxSeen.CompareAndSwap(prev, cur) {
			break
		}
	}

	start := time.Now()
	if rest, ok := strings.CutPrefix(req.Command, "sleep:"); ok {
		d, _, _ := strings.Cut(rest, " ")
		dur, _ := time.ParseDuration(d)
		time.Sleep(dur)
	}
	end := time.Now()

	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.records[req.Command] = &ExecutionRecord{Start: start, End: end}
	s.mu.Unlock()

	if strings.HasPrefix(req.Command, "fail") {
		return command.Result{ExitCode: s.exitCode, Output: []byte("failure output")}, nil
	}
	return command.Result{}, nil
}

func (s *spyExecutor) commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.calls))
	for _, c := range s.calls {
		out = append(out, c.Command)
	}
	return out
}

func (s *spyExecutor) ran(cmd string) bool {
	for _, c := range s.commands() {
		if c == cmd {
			return true
		}
	}
	return false
}

func st(name string, cmds []string, deps ...string) *manifest.Stage {
	return &manifest.Stage{Name: name, Commands: cmds, Depends: deps}
}

func noVars(p *manifest.Project) vars.Context {
	return vars.NewContext(p.Name, "", "", p.Env)
}

// recordingObserver collects observer callbacks.
type recordingObserver struct {
	mu       sync.Mutex
	started  []string
	finished map[string]StageOutcome
	reports  []*Report
}

func (o *recordingObserver) StageStarted(_ context.Context, _, _, stage string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, stage)
}

func (o *recordingObserver) StageFinished(_ context.Context, _, _ string, res StageResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.finished == nil {
		o.finished = make(map[string]StageOutcome)
	}
	o.finished[res.Stage] = res.Outcome
}

func (o *recordingObserver) RunFinished(_ context.Context, r *Report) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reports = append(o.reports, r)
}
