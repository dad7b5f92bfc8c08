package lawcast

import (
	"context"
	"testing"

	gocmd "github.com/goliatone/go-command"
	lawcastcommand "github.com/goliatone/go-lawcast/command"
	"github.com/goliatone/go-lawcast/core"
	lawcastquery "github.com/goliatone/go-lawcast/query"
)

func TestNewFacade_WiresCommandsAndQueries(t *testing.T) {
	svc := newTestService(t, newMemoryStore(), staticFetcher(), &recordingDeliverer{})
	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	commands := facade.Commands()
	if commands.RegisterDestination == nil || commands.RemoveDestination == nil || commands.RunPoll == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	queries := facade.Queries()
	if queries.RecentNotices == nil || queries.CacheInfo == nil || queries.Stats == nil ||
		queries.Health == nil || queries.DeliveryHistory == nil {
		t.Fatalf("expected query handlers to be wired")
	}
	if facade.Service() != svc {
		t.Fatalf("expected facade to expose its service")
	}

	if _, err := NewFacade(nil); err == nil {
		t.Fatalf("expected nil service to be rejected")
	}
}

func TestFacade_CommandAndQueryDelegation(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	svc := newTestService(t, store, staticFetcher(core.Notice{Number: 4}, core.Notice{Number: 5}), &recordingDeliverer{})
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	facade, err := NewFacade(svc, WithHistoryReader(svc))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	collector := gocmd.NewResult[core.RegistrationResult]()
	if err := facade.Commands().RegisterDestination.Execute(
		gocmd.ContextWithResult(ctx, collector),
		lawcastcommand.RegisterDestinationMessage{Request: core.RegisterDestinationRequest{URL: testHook(1)}},
	); err != nil {
		t.Fatalf("execute register: %v", err)
	}
	registered, ok := collector.Load()
	if !ok || !registered.Registered {
		t.Fatalf("expected stored registration result, got %#v", registered)
	}

	notices, err := facade.Queries().RecentNotices.Query(ctx, lawcastquery.RecentNoticesMessage{Limit: 1})
	if err != nil {
		t.Fatalf("query recent notices: %v", err)
	}
	if len(notices) != 1 || notices[0].Number != 5 {
		t.Fatalf("unexpected recent notices %#v", notices)
	}

	stats, err := facade.Queries().Stats.Query(ctx, lawcastquery.StatsMessage{})
	if err != nil {
		t.Fatalf("query stats: %v", err)
	}
	if stats.Destinations.Active != 1 || stats.Cache.Size != 2 {
		t.Fatalf("unexpected stats %#v", stats)
	}

	if err := facade.Commands().RemoveDestination.Execute(ctx, lawcastcommand.RemoveDestinationMessage{
		DestinationID: registered.Destination.ID,
	}); err != nil {
		t.Fatalf("execute remove: %v", err)
	}
	if count, _ := store.CountActive(ctx); count != 0 {
		t.Fatalf("expected destination removed, active=%d", count)
	}

	health, err := facade.Queries().Health.Query(ctx, lawcastquery.HealthMessage{})
	if err != nil || !health.Ready {
		t.Fatalf("unexpected health %#v %v", health, err)
	}
}
