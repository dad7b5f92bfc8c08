package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-lawcast/core"
	"github.com/uptrace/bun"
)

// DestinationStore keeps webhook destinations. Destinations are never
// deleted; removal and retirement both clear is_active.
type DestinationStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewDestinationStore(db *bun.DB) (*DestinationStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &DestinationStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *DestinationStore) Create(ctx context.Context, url string) (core.Destination, error) {
	if s == nil || s.db == nil {
		return core.Destination{}, fmt.Errorf("sqlstore: destination store is not configured")
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return core.Destination{}, fmt.Errorf("sqlstore: destination url is required")
	}
	now := s.now()
	record := &destinationRecord{
		URL:       url,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return core.Destination{}, fmt.Errorf("%w: %s", core.ErrDestinationExists, url)
		}
		return core.Destination{}, err
	}
	return s.FindByURL(ctx, url)
}

func (s *DestinationStore) Get(ctx context.Context, id int64) (core.Destination, error) {
	if s == nil || s.db == nil {
		return core.Destination{}, fmt.Errorf("sqlstore: destination store is not configured")
	}
	record := &destinationRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Destination{}, fmt.Errorf("%w: id %d", core.ErrDestinationNotFound, id)
		}
		return core.Destination{}, err
	}
	return record.toDomain(), nil
}

func (s *DestinationStore) FindByURL(ctx context.Context, url string) (core.Destination, error) {
	if s == nil || s.db == nil {
		return core.Destination{}, fmt.Errorf("sqlstore: destination store is not configured")
	}
	record := &destinationRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.url = ?", strings.TrimSpace(url)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Destination{}, fmt.Errorf("%w: url %q", core.ErrDestinationNotFound, url)
		}
		return core.Destination{}, err
	}
	return record.toDomain(), nil
}

func (s *DestinationStore) ListActive(ctx context.Context) ([]core.Destination, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: destination store is not configured")
	}
	records := []destinationRecord{}
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.is_active = ?", true).
		OrderExpr("?TableAlias.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Destination, 0, len(records))
	for i := range records {
		out = append(out, records[i].toDomain())
	}
	return out, nil
}

// DeactivateMany retires all ids in one statement. Unknown ids are ignored.
func (s *DestinationStore) DeactivateMany(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: destination store is not configured")
	}
	_, err := s.db.NewUpdate().
		Model((*destinationRecord)(nil)).
		Set("is_active = ?", false).
		Set("updated_at = ?", s.now()).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	return err
}

func (s *DestinationStore) Deactivate(ctx context.Context, id int64) error {
	_, err := s.setActive(ctx, id, false)
	return err
}

func (s *DestinationStore) Reactivate(ctx context.Context, id int64) (core.Destination, error) {
	if _, err := s.setActive(ctx, id, true); err != nil {
		return core.Destination{}, err
	}
	return s.Get(ctx, id)
}

func (s *DestinationStore) setActive(ctx context.Context, id int64, active bool) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: destination store is not configured")
	}
	res, err := s.db.NewUpdate().
		Model((*destinationRecord)(nil)).
		Set("is_active = ?", active).
		Set("updated_at = ?", s.now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, fmt.Errorf("%w: id %d", core.ErrDestinationNotFound, id)
	}
	return affected, nil
}

func (s *DestinationStore) CountActive(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: destination store is not configured")
	}
	return s.db.NewSelect().
		Model((*destinationRecord)(nil)).
		Where("?TableAlias.is_active = ?", true).
		Count(ctx)
}

func (s *DestinationStore) Stats(ctx context.Context) (core.DestinationStats, error) {
	if s == nil || s.db == nil {
		return core.DestinationStats{}, fmt.Errorf("sqlstore: destination store is not configured")
	}
	total, err := s.db.NewSelect().Model((*destinationRecord)(nil)).Count(ctx)
	if err != nil {
		return core.DestinationStats{}, err
	}
	active, err := s.CountActive(ctx)
	if err != nil {
		return core.DestinationStats{}, err
	}
	return core.DestinationStats{Total: total, Active: active, Inactive: total - active}, nil
}

func (r destinationRecord) toDomain() core.Destination {
	return core.Destination{
		ID:        r.ID,
		URL:       r.URL,
		Active:    r.IsActive,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}
