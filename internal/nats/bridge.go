package nats

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Controller executes control actions for a job and returns the resulting
// run state.
type Controller interface {
	StartJob(jobID string) (string, error)
	StopJob(jobID string) (string, error)
}

// ControlBridge subscribes to control subjects and forwards them to a Controller.
type ControlBridge struct {
	url        string
	controller Controller
	conn       *nats.Conn
	sub        *nats.Subscription
	logger     *slog.Logger
	mu         sync.Mutex
}

// NewControlBridge creates a bridge driving controller.
func NewControlBridge(url string, controller Controller, logger *slog.Logger) *ControlBridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &ControlBridge{
		url:        url,
		controller: controller,
		logger:     logger.With("component", "nats-control"),
	}
}

// Start connects to NATS and subscribes to control subjects.
func (b *ControlBridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, err := nats.Connect(b.url,
		nats.Name("framegraph-control"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.logger.Warn("NATS control bridge disconnected", "error", err)
			}
		}),
	)
	if err != nil {
		return err
	}

	sub, err := conn.Subscribe(SubjectControlPrefix+".>", b.handle)
	if err != nil {
		conn.Close()
		return err
	}

	b.conn = conn
	b.sub = sub
	b.logger.Info("NATS control bridge subscribed", "subject", SubjectControlPrefix+".>")
	return nil
}

func (b *ControlBridge) handle(msg *nats.Msg) {
	jobID, action, ok := parseControlSubject(msg.Subject)
	if !ok {
		b.logger.Warn("Ignoring malformed control subject", "subject", msg.Subject)
		return
	}
	reply := ControlReply{JobID: jobID, Action: action}

	ctrl, err := UnmarshalControl(msg.Data)
	if err != nil {
		reply.Error = "invalid control message: " + err.Error()
		b.respond(msg, reply)
		return
	}
	b.logger.Info("Received control command", "job_id", jobID, "action", action, "reason", ctrl.Reason)

	var state string
	switch action {
	case ActionStart:
		state, err = b.controller.StartJob(jobID)
	case ActionStop:
		state, err = b.controller.StopJob(jobID)
	default:
		reply.Error = "unknown action " + action
		b.respond(msg, reply)
		return
	}
	if err != nil {
		reply.Error = err.Error()
	} else {
		reply.State = state
	}
	b.respond(msg, reply)
}

func (b *ControlBridge) respond(msg *nats.Msg, reply ControlReply) {
	if msg.Reply == "" {
		if reply.Error != "" {
			b.logger.Warn("Control command failed", "job_id", reply.JobID, "action", reply.Action, "error", reply.Error)
		}
		return
	}
	data, err := reply.Marshal()
	if err != nil {
		b.logger.Warn("Failed to marshal control reply", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		b.logger.Warn("Failed to send control reply", "error", err)
	}
}

// Stop closes the bridge connection.
func (b *ControlBridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sub != nil {
		_ = b.sub.Unsubscribe()
		b.sub = nil
	}
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	b.logger.Info("NATS control bridge stopped")
}

// IsConnected returns true if the bridge is connected to NATS.
func (b *ControlBridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.conn.IsConnected()
}
