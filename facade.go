package lawcast

import (
	"fmt"

	lawcastcommand "github.com/goliatone/go-lawcast/command"
	lawcastquery "github.com/goliatone/go-lawcast/query"
)

type CommandQueryService interface {
	lawcastcommand.MutatingService
	lawcastquery.NoticeReader
	lawcastquery.StatsReader
	lawcastquery.HealthReader
}

type Commands struct {
	RegisterDestination *lawcastcommand.RegisterDestinationCommand
	RemoveDestination   *lawcastcommand.RemoveDestinationCommand
	RunPoll             *lawcastcommand.RunPollCommand
}

type Queries struct {
	RecentNotices   *lawcastquery.RecentNoticesQuery
	CacheInfo       *lawcastquery.CacheInfoQuery
	Stats           *lawcastquery.StatsQuery
	Health          *lawcastquery.HealthQuery
	DeliveryHistory *lawcastquery.DeliveryHistoryQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	historyReader lawcastquery.DeliveryHistoryReader
}

func WithHistoryReader(reader lawcastquery.DeliveryHistoryReader) FacadeOption {
	return func(options *facadeOptions) {
		options.historyReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("lawcast: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.historyReader
	if reader == nil {
		if candidate, ok := service.(lawcastquery.DeliveryHistoryReader); ok {
			reader = candidate
		}
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		RegisterDestination: lawcastcommand.NewRegisterDestinationCommand(service),
		RemoveDestination:   lawcastcommand.NewRemoveDestinationCommand(service),
		RunPoll:             lawcastcommand.NewRunPollCommand(service),
	}
	facade.queries = Queries{
		RecentNotices:   lawcastquery.NewRecentNoticesQuery(service),
		CacheInfo:       lawcastquery.NewCacheInfoQuery(service),
		Stats:           lawcastquery.NewStatsQuery(service),
		Health:          lawcastquery.NewHealthQuery(service),
		DeliveryHistory: lawcastquery.NewDeliveryHistoryQuery(reader),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

var _ CommandQueryService = (*Service)(nil)
