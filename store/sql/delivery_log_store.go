package sqlstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-lawcast/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type DeliveryLogStore struct {
	db   *bun.DB
	repo repository.Repository[*deliveryLogRecord]
}

func NewDeliveryLogStore(db *bun.DB) (*DeliveryLogStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*deliveryLogRecord](db, deliveryLogHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid delivery log repository wiring: %w", err)
		}
	}
	return &DeliveryLogStore{db: db, repo: repo}, nil
}

// Record stores one attempt. A replay of the same (cycle, notice,
// destination) attempt is ignored.
func (s *DeliveryLogStore) Record(ctx context.Context, entry core.DeliveryLogEntry) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: delivery log store is not configured")
	}
	cycleID := strings.TrimSpace(entry.CycleID)
	if cycleID == "" {
		return fmt.Errorf("sqlstore: delivery log cycle id is required")
	}
	if !entry.Outcome.Valid() {
		return fmt.Errorf("sqlstore: invalid delivery outcome %q", entry.Outcome)
	}
	record := &deliveryLogRecord{
		ID:            uuid.NewString(),
		CycleID:       cycleID,
		NoticeNumber:  entry.NoticeNumber,
		DestinationID: entry.DestinationID,
		Outcome:       string(entry.Outcome),
		Error:         strings.TrimSpace(entry.Error),
		Metadata:      copyAnyMap(entry.Metadata),
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := s.repo.Create(ctx, record); err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	return nil
}

func (s *DeliveryLogStore) List(ctx context.Context, filter core.DeliveryLogFilter) (core.DeliveryLogPage, error) {
	if s == nil || s.repo == nil {
		return core.DeliveryLogPage{}, fmt.Errorf("sqlstore: delivery log store is not configured")
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 25
	}
	offset := (page - 1) * perPage

	selectors := []repository.SelectCriteria{
		repository.OrderBy("created_at DESC"),
		repository.SelectPaginate(perPage, offset),
	}
	if filter.DestinationID > 0 {
		selectors = append(selectors, repository.SelectBy("destination_id", "=", strconv.FormatInt(filter.DestinationID, 10)))
	}
	if cycleID := strings.TrimSpace(filter.CycleID); cycleID != "" {
		selectors = append(selectors, repository.SelectBy("cycle_id", "=", cycleID))
	}
	if outcome := strings.TrimSpace(string(filter.Outcome)); outcome != "" {
		selectors = append(selectors, repository.SelectBy("outcome", "=", outcome))
	}

	records, total, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return core.DeliveryLogPage{}, err
	}
	items := make([]core.DeliveryLogRecord, 0, len(records))
	for _, record := range records {
		items = append(items, record.toDomain())
	}
	return core.DeliveryLogPage{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		HasNext: offset+len(items) < total,
	}, nil
}

func (r *deliveryLogRecord) toDomain() core.DeliveryLogRecord {
	return core.DeliveryLogRecord{
		ID:            r.ID,
		CycleID:       r.CycleID,
		NoticeNumber:  r.NoticeNumber,
		DestinationID: r.DestinationID,
		Outcome:       core.DeliveryOutcome(r.Outcome),
		Error:         r.Error,
		Metadata:      copyAnyMap(r.Metadata),
		CreatedAt:     r.CreatedAt.UTC(),
	}
}
