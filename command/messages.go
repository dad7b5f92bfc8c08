package command

import (
	"strings"

	"github.com/goliatone/go-lawcast/core"
)

const (
	TypeRegisterDestination = "lawcast.command.destination.register"
	TypeRemoveDestination   = "lawcast.command.destination.remove"
	TypeRunPoll             = "lawcast.command.poll.run"
)

type RegisterDestinationMessage struct {
	Request core.RegisterDestinationRequest
}

func (RegisterDestinationMessage) Type() string { return TypeRegisterDestination }

func (m RegisterDestinationMessage) Validate() error {
	if strings.TrimSpace(m.Request.URL) == "" {
		return commandValidationError("url", "webhook url is required")
	}
	return nil
}

type RemoveDestinationMessage struct {
	DestinationID int64
}

func (RemoveDestinationMessage) Type() string { return TypeRemoveDestination }

func (m RemoveDestinationMessage) Validate() error {
	if m.DestinationID <= 0 {
		return commandValidationError("destination_id", "destination id must be positive")
	}
	return nil
}

// RunPollMessage asks for one poll cycle outside the schedule.
type RunPollMessage struct {
	Reason string
}

func (RunPollMessage) Type() string { return TypeRunPoll }

func (m RunPollMessage) Validate() error {
	if len(m.Reason) > 200 {
		return commandValidationError("reason", "reason must be at most 200 characters")
	}
	return nil
}
