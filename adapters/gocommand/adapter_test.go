package gocommand

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-command"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	lawcast "github.com/goliatone/go-lawcast"
	lawcastcommand "github.com/goliatone/go-lawcast/command"
	"github.com/goliatone/go-lawcast/core"
	lawcastquery "github.com/goliatone/go-lawcast/query"
)

type okMessage struct{}

func (okMessage) Type() string { return "lawcast.test.ok" }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "" }

type failingMessage struct{}

func (failingMessage) Type() string { return "lawcast.test.fail" }

func (failingMessage) Validate() error { return errors.New("invalid payload") }

type dispatchMessage struct {
	ID string
}

func (dispatchMessage) Type() string { return "lawcast.test.dispatch" }

type queueMessage struct{}

func (queueMessage) Type() string { return "lawcast.test.queue" }

func TestValidateMessageContract(t *testing.T) {
	if err := ValidateMessageContract(okMessage{}); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
	if err := ValidateMessageContract(invalidMessage{}); err == nil {
		t.Fatalf("expected empty type to fail contract validation")
	}
	if err := ValidateMessageContract(failingMessage{}); err == nil {
		t.Fatalf("expected Validate() failure to bubble")
	}
}

func TestRegistryAndDispatchWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	executed := 0
	customResolverCalled := 0

	cmd := command.CommandFunc[dispatchMessage](func(context.Context, dispatchMessage) error {
		executed++
		return nil
	})

	if _, err := RegisterAndSubscribe(adapter, cmd); err != nil {
		t.Fatalf("register and subscribe: %v", err)
	}
	if err := adapter.AddResolver("custom", func(any, command.CommandMeta, *command.Registry) error {
		customResolverCalled++
		return nil
	}); err != nil {
		t.Fatalf("add resolver: %v", err)
	}
	if !adapter.HasResolver("custom") {
		t.Fatalf("expected custom resolver to be registered")
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}
	if customResolverCalled == 0 {
		t.Fatalf("expected resolver hook to run during initialization")
	}

	if err := Dispatch(context.Background(), dispatchMessage{ID: "m1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if executed != 1 {
		t.Fatalf("expected command execution count=1, got %d", executed)
	}
}

func TestQueueResolverHookWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	queueRegistry := jobqueuecommand.NewRegistry()

	cmd := command.CommandFunc[queueMessage](func(context.Context, queueMessage) error { return nil })

	if err := adapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if err := adapter.RegisterCommand(cmd); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	if _, ok := queueRegistry.Get("lawcast.test.queue"); !ok {
		t.Fatalf("expected command to be mirrored into queue registry")
	}
}

func TestRegisterFacadeDispatchesCommandsAndQueries(t *testing.T) {
	svc := &stubFacadeService{}
	facade, err := lawcast.NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	adapter := NewRegistryAdapter(command.NewRegistry())
	subscriptions, err := RegisterFacade(adapter, facade)
	if err != nil {
		t.Fatalf("register facade: %v", err)
	}
	defer subscriptions.Unsubscribe()
	if len(subscriptions) != 8 {
		t.Fatalf("expected 8 subscriptions, got %d", len(subscriptions))
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	ctx := context.Background()
	if err := Dispatch(ctx, lawcastcommand.RemoveDestinationMessage{DestinationID: 4}); err != nil {
		t.Fatalf("dispatch remove: %v", err)
	}
	if svc.removed != 4 {
		t.Fatalf("expected destination 4 removed, got %d", svc.removed)
	}

	health, err := Query[lawcastquery.HealthMessage, core.HealthStatus](ctx, lawcastquery.HealthMessage{})
	if err != nil {
		t.Fatalf("query health: %v", err)
	}
	if !health.Ready {
		t.Fatalf("expected ready health from service")
	}
}

func TestRegisterFacadeRequiresFacade(t *testing.T) {
	if _, err := RegisterFacade(NewRegistryAdapter(nil), nil); err == nil {
		t.Fatalf("expected missing facade error")
	}
}

type stubFacadeService struct {
	removed int64
}

func (s *stubFacadeService) RegisterDestination(context.Context, core.RegisterDestinationRequest) (core.RegistrationResult, error) {
	return core.RegistrationResult{Registered: true}, nil
}

func (s *stubFacadeService) RemoveDestination(_ context.Context, id int64) error {
	s.removed = id
	return nil
}

func (s *stubFacadeService) RunPoll(context.Context) (core.CycleReport, error) {
	return core.CycleReport{}, nil
}

func (s *stubFacadeService) RecentNotices(int) []core.Notice {
	return nil
}

func (s *stubFacadeService) CacheInfo() core.CacheInfo {
	return core.CacheInfo{}
}

func (s *stubFacadeService) Stats(context.Context) (core.ServiceStats, error) {
	return core.ServiceStats{}, nil
}

func (s *stubFacadeService) Health() core.HealthStatus {
	return core.HealthStatus{Healthy: true, Ready: true}
}
