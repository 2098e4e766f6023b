package vehicle

import (
	"context"

	"bustrack/internal/model"
	pg "bustrack/internal/postgres"
)

// Ledger is the append-only position history. Rows are never updated or
// deleted by this service.
type Ledger interface {
	Append(ctx context.Context, sample *model.PositionSample) error
	// Recent returns up to limit samples for a vehicle, newest first.
	Recent(ctx context.Context, vehicleID string, limit int) ([]*model.PositionSample, error)
	// Trail returns up to limit samples for a vehicle in capture order.
	Trail(ctx context.Context, vehicleID string, limit int) ([]*model.PositionSample, error)
}

// pgLedger persists samples through the global GORM connection
type pgLedger struct{}

// NewPGLedger returns the PostgreSQL-backed ledger
func NewPGLedger() Ledger {
	return &pgLedger{}
}

func (l *pgLedger) Append(ctx context.Context, sample *model.PositionSample) error {
	return pg.GetDB().WithContext(ctx).Create(sample).Error
}

func (l *pgLedger) Recent(ctx context.Context, vehicleID string, limit int) ([]*model.PositionSample, error) {
	var samples []*model.PositionSample
	err := pg.GetDB().WithContext(ctx).
		Where("vehicle_id = ?", vehicleID).
		Order("captured_at desc").
		Limit(limit).
		Find(&samples).Error
	return samples, err
}

func (l *pgLedger) Trail(ctx context.Context, vehicleID string, limit int) ([]*model.PositionSample, error) {
	var samples []*model.PositionSample
	err := pg.GetDB().WithContext(ctx).
		Where("vehicle_id = ?", vehicleID).
		Order("captured_at asc").
		Limit(limit).
		Find(&samples).Error
	return samples, err
}
