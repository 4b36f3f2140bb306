// Package notify publishes scheduler progress to a socket.io server so a
// dashboard can follow runs live.
package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/anda/internal/ctxlog"
	"github.com/vk/anda/internal/scheduler"
)

// DefaultEvent is the socket.io event name progress is emitted under.
const DefaultEvent = "anda:progress"

const connectTimeout = 15 * time.Second

// Config selects the server to publish to.
type Config struct {
	URL                string
	Namespace          string
	Event              string
	InsecureSkipVerify bool
}

// Event is the payload of every emitted message.
type Event struct {
	Type       string `json:"type"`
	RunID      string `json:"run_id"`
	Project    string `json:"project"`
	Stage      string `json:"stage,omitempty"`
	Outcome    string `json:"outcome,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Time       string `json:"time"`
}

const (
	EventStageStarted  = "stage_started"
	EventStageFinished = "stage_finished"
	EventRunFinished   = "run_finished"
)

// Publisher is a scheduler.Observer that emits Events. Emitting never blocks
// on the server.
type Publisher struct {
	event string
	emit  func(event string, payload Event)
	close func()
	now   func() time.Time
}

var _ scheduler.Observer = (*Publisher)(nil)

// Dial connects to the server and waits for the handshake.
func Dial(ctx context.Context, cfg Config) (*Publisher, error) {
	logger := ctxlog.FromContext(ctx).With("url", cfg.URL)

	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("notify URL %q must include scheme and host", cfg.URL)
	}

	opts := socket.DefaultOptions()
	if parsed.Path != "" && parsed.Path != "/" {
		opts.SetPath(parsed.Path)
	}
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connected := make(chan error, 1)
	manager := socket.NewManager(fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host), opts)
	io := manager.Socket(cfg.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err, ok := errs[0].(error)
		if !ok {
			err = fmt.Errorf("%v", errs[0])
		}
		connected <- err
	})
	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, errors.New("context cancelled while waiting for socket.io connection")
	case <-time.After(connectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", connectTimeout)
	}
	logger.Info("Connected to progress server.", "sid", io.Id())

	p := newPublisher(cfg.Event, func(event string, payload Event) {
		io.Emit(event, payload)
	})
	p.close = func() { io.Disconnect() }
	return p, nil
}

func newPublisher(event string, emit func(string, Event)) *Publisher {
	if event == "" {
		event = DefaultEvent
	}
	return &Publisher{event: event, emit: emit, now: time.Now}
}

// Close disconnects from the server.
func (p *Publisher) Close() {
	if p.close != nil {
		p.close()
	}
}

func (p *Publisher) send(e Event) {
	e.Time = p.now().UTC().Format(time.RFC3339Nano)
	p.emit(p.event, e)
}

func (p *Publisher) StageStarted(_ context.Context, runID, project, stage string) {
	p.send(Event{Type: EventStageStarted, RunID: runID, Project: project, Stage: stage})
}

func (p *Publisher) StageFinished(_ context.Context, runID, project string, res scheduler.StageResult) {
	e := Event{
		Type:       EventStageFinished,
		RunID:      runID,
		Project:    project,
		Stage:      res.Stage,
		Outcome:    res.Outcome.String(),
		DurationMS: res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		e.Error = res.Err.Error()
	}
	p.send(e)
}

func (p *Publisher) RunFinished(_ context.Context, report *scheduler.Report) {
	e := Event{
		Type:       EventRunFinished,
		RunID:      report.RunID,
		Project:    report.Project,
		Outcome:    report.Outcome.String(),
		DurationMS: report.Duration.Milliseconds(),
	}
	if err := report.Err(); err != nil {
		e.Error = err.Error()
	}
	p.send(e)
}
