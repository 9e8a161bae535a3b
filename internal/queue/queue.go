// Package queue dispatches run invocations, enforcing at most one in-flight
// invocation per build, and consumes run requests from NATS.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ErrBusy is returned when a build already has an invocation in flight.
var ErrBusy = errors.New("invocation already in flight")

// RunRequest is the wire form of one run invocation.
type RunRequest struct {
	BuildID    string `json:"build_id"`
	ResumeFrom int    `json:"resume_from"`
}

// Runner executes one pipeline invocation for a build.
type Runner interface {
	Run(ctx context.Context, buildID string, resumeFrom int) error
}

// Dispatcher serializes invocations per build. Concurrent invocations of the
// same build would race on state and artifacts, so a second request for a
// busy build is rejected with ErrBusy; the caller retries once the current
// invocation suspends or finishes. Distinct builds run concurrently.
type Dispatcher struct {
	runner Runner
	logger *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

// NewDispatcher creates a dispatcher around the runner.
func NewDispatcher(runner Runner, logger *zap.Logger) (*Dispatcher, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		runner:   runner,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}, nil
}

// Submit starts an invocation on its own goroutine. Returns ErrBusy when the
// build already has one running.
func (d *Dispatcher) Submit(ctx context.Context, buildID string, resumeFrom int) error {
	if buildID == "" {
		return errors.New("build id is required")
	}
	if !d.acquire(buildID) {
		return ErrBusy
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.release(buildID)

		if err := d.runner.Run(ctx, buildID, resumeFrom); err != nil {
			d.logger.Error("invocation failed",
				zap.String("build_id", buildID),
				zap.Int("resume_from", resumeFrom),
				zap.Error(err),
			)
		}
	}()
	return nil
}

func (d *Dispatcher) acquire(buildID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inFlight[buildID]; busy {
		return false
	}
	d.inFlight[buildID] = struct{}{}
	return true
}

func (d *Dispatcher) release(buildID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, buildID)
}

// InFlight reports whether a build has an invocation running.
func (d *Dispatcher) InFlight(buildID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, busy := d.inFlight[buildID]
	return busy
}

// Wait blocks until all running invocations finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Consumer subscribes to the run subject and feeds requests through a
// dispatcher. Requests for busy builds are dropped with a log line.
type Consumer struct {
	nc         *nats.Conn
	dispatcher *Dispatcher
	subject    string
	logger     *zap.Logger
	sub        *nats.Subscription
}

// NewConsumer creates a consumer. All arguments except logger are required.
func NewConsumer(nc *nats.Conn, dispatcher *Dispatcher, subject string, logger *zap.Logger) (*Consumer, error) {
	if nc == nil {
		return nil, errors.New("nats connection is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if subject == "" {
		return nil, errors.New("subject is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		nc:         nc,
		dispatcher: dispatcher,
		subject:    subject,
		logger:     logger,
	}, nil
}

// Start subscribes to the run subject. ctx bounds dispatched invocations.
func (c *Consumer) Start(ctx context.Context) error {
	sub, err := c.nc.Subscribe(c.subject, func(msg *nats.Msg) {
		var req RunRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.logger.Warn("dropping malformed run request", zap.Error(err))
			return
		}
		if err := c.dispatcher.Submit(ctx, req.BuildID, req.ResumeFrom); err != nil {
			c.logger.Warn("dropping run request",
				zap.String("build_id", req.BuildID),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		return err
	}
	c.sub = sub
	c.logger.Info("queue consumer started", zap.String("subject", c.subject))
	return nil
}

// Close drains the subscription and waits for running invocations.
func (c *Consumer) Close() error {
	var err error
	if c.sub != nil {
		err = c.sub.Drain()
	}
	c.dispatcher.Wait()
	return err
}
