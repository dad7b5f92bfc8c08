package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-lawcast/core"
)

type MutatingService interface {
	RegisterDestination(ctx context.Context, req core.RegisterDestinationRequest) (core.RegistrationResult, error)
	RemoveDestination(ctx context.Context, id int64) error
	RunPoll(ctx context.Context) (core.CycleReport, error)
}

type RegisterDestinationCommand struct {
	service MutatingService
}

func NewRegisterDestinationCommand(service MutatingService) *RegisterDestinationCommand {
	return &RegisterDestinationCommand{service: service}
}

func (c *RegisterDestinationCommand) Execute(ctx context.Context, msg RegisterDestinationMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: destination service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.RegisterDestination(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RemoveDestinationCommand struct {
	service MutatingService
}

func NewRemoveDestinationCommand(service MutatingService) *RemoveDestinationCommand {
	return &RemoveDestinationCommand{service: service}
}

func (c *RemoveDestinationCommand) Execute(ctx context.Context, msg RemoveDestinationMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: destination service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.service.RemoveDestination(ctx, msg.DestinationID)
}

type RunPollCommand struct {
	service MutatingService
}

func NewRunPollCommand(service MutatingService) *RunPollCommand {
	return &RunPollCommand{service: service}
}

func (c *RunPollCommand) Execute(ctx context.Context, msg RunPollMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: poll service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	report, err := c.service.RunPoll(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, report)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
