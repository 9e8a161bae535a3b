package queue

import (
	"context"
	"encoding/json"

	"github.com/fyrsmithlabs/pipelined/internal/pipeline"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ProgressEvent is the wire form of one progress update.
type ProgressEvent struct {
	BuildID string `json:"build_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Pct     int    `json:"pct"`
}

// MessageEvent is the wire form of one human-facing message.
type MessageEvent struct {
	BuildID string `json:"build_id"`
	Phase   string `json:"phase"`
	Text    string `json:"text"`
}

// Notifier publishes progress and messages to per-build NATS subjects so
// operator tooling can follow a run live. Publishing is fire and forget;
// a failed publish is logged and never affects the run.
type Notifier struct {
	nc     *nats.Conn
	prefix string
	logger *zap.Logger
}

// NewNotifier creates a notifier. Events go to <prefix>.progress.<build_id>
// and <prefix>.messages.<build_id>.
func NewNotifier(nc *nats.Conn, prefix string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "pipelined"
	}
	return &Notifier{nc: nc, prefix: prefix, logger: logger}
}

// ReportProgress implements pipeline.Reporter.
func (n *Notifier) ReportProgress(_ context.Context, buildID string, update pipeline.ProgressUpdate) {
	n.publish(n.prefix+".progress."+buildID, ProgressEvent{
		BuildID: buildID,
		Status:  string(update.Status),
		Message: update.Message,
		Pct:     update.Pct,
	})
}

// Post implements pipeline.MessageLog.
func (n *Notifier) Post(_ context.Context, buildID, text, phase string) {
	n.publish(n.prefix+".messages."+buildID, MessageEvent{
		BuildID: buildID,
		Phase:   phase,
		Text:    text,
	})
}

func (n *Notifier) publish(subject string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("failed to encode event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := n.nc.Publish(subject, data); err != nil {
		n.logger.Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}
