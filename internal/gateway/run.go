package gateway

import (
	"context"
	"time"

	"github.com/user/chatcal/internal/types"
)

// RunStatus represents the lifecycle state of a Run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one inbound message waiting for, or being turned into, a reply.
type Run struct {
	ID         types.RunID
	ChatID     types.ChatID
	Message    *types.InboundMessage
	Status     RunStatus
	CreatedAt  time.Time
	StartedAt  *time.Time
	EndedAt    *time.Time
	Error      error
	OnComplete func(reply string)
	Ctx        context.Context
}

// NewRun creates a Run in the Queued state for msg.
func NewRun(msg *types.InboundMessage) *Run {
	return &Run{
		ID:        types.NewRunID(),
		ChatID:    msg.ChatID,
		Message:   msg,
		Status:    RunStatusQueued,
		CreatedAt: time.Now(),
	}
}

func (r *Run) start() {
	now := time.Now()
	r.StartedAt = &now
	r.Status = RunStatusRunning
}

func (r *Run) finish(err error) {
	now := time.Now()
	r.EndedAt = &now
	r.Error = err
	if err != nil {
		r.Status = RunStatusFailed
		return
	}
	r.Status = RunStatusComplete
}
