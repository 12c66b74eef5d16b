package nats

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Subject prefixes for NATS topics.
const (
	SubjectGraphsPrefix  = "framegraph.graphs"
	SubjectJobsPrefix    = "framegraph.jobs"
	SubjectControlPrefix = "framegraph.control"
)

// Control actions.
const (
	ActionStart = "start"
	ActionStop  = "stop"
)

// SubjectGraphEvent returns the subject of a graph event.
func SubjectGraphEvent(graphID, event string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectGraphsPrefix, token(graphID), event)
}

// SubjectJobReloaded returns the subject announcing a reloaded job.
func SubjectJobReloaded(jobID string) string {
	return fmt.Sprintf("%s.%s.reloaded", SubjectJobsPrefix, token(jobID))
}

// SubjectControl returns the subject of a control action for a job.
func SubjectControl(jobID, action string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectControlPrefix, token(jobID), action)
}

// parseControlSubject splits a control subject into job ID and action.
func parseControlSubject(subject string) (jobID, action string, ok bool) {
	rest, found := strings.CutPrefix(subject, SubjectControlPrefix+".")
	if !found {
		return "", "", false
	}
	i := strings.LastIndexByte(rest, '.')
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}

// token makes an ID usable as a single subject token.
func token(id string) string {
	if id == "" {
		return "_"
	}
	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(id)
}

// ControlMessage is the optional body of a control request.
type ControlMessage struct {
	Timestamp string `json:"timestamp,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// ControlReply answers a control request.
type ControlReply struct {
	JobID  string `json:"job_id"`
	Action string `json:"action"`
	State  string `json:"state,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Marshal serializes the message to JSON.
func (m ControlReply) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalControl deserializes a ControlMessage. An empty body is valid.
func UnmarshalControl(data []byte) (ControlMessage, error) {
	var m ControlMessage
	if len(data) == 0 {
		return m, nil
	}
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalReply deserializes a ControlReply.
func UnmarshalReply(data []byte) (ControlReply, error) {
	var m ControlReply
	err := json.Unmarshal(data, &m)
	return m, err
}
