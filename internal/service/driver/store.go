package driver

import (
	"context"
	"errors"
	"time"

	"bustrack/internal/model"
	pg "bustrack/internal/postgres"

	"gorm.io/gorm"
)

// Link carries the fields written onto a roster entry when a driver
// registers with their invite code
type Link struct {
	UserID    string
	FullName  string
	Contact   string
	VehicleID string
	LinkedAt  time.Time
}

// Store persists the driver roster and identity records
type Store interface {
	Create(ctx context.Context, d *model.Driver) error
	ByID(ctx context.Context, id string) (*model.Driver, error)
	ByInvite(ctx context.Context, code string) ([]*model.Driver, error)
	List(ctx context.Context) ([]*model.Driver, error)
	Delete(ctx context.Context, id string) error
	// Link creates the identity record and updates the roster entry in
	// one transaction.
	Link(ctx context.Context, driverID string, link Link, user *model.User) error
	AssignVehicle(ctx context.Context, driverID, vehicleID string) error
}

// pgStore persists the roster through the global GORM connection
type pgStore struct{}

// NewPGStore returns the PostgreSQL-backed store
func NewPGStore() Store {
	return &pgStore{}
}

func (s *pgStore) Create(ctx context.Context, d *model.Driver) error {
	return pg.GetDB().WithContext(ctx).Create(d).Error
}

func (s *pgStore) ByID(ctx context.Context, id string) (*model.Driver, error) {
	var d model.Driver
	err := pg.GetDB().WithContext(ctx).First(&d, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDriverNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *pgStore) ByInvite(ctx context.Context, code string) ([]*model.Driver, error) {
	var drivers []*model.Driver
	err := pg.GetDB().WithContext(ctx).Where("invite_code = ?", code).Find(&drivers).Error
	return drivers, err
}

func (s *pgStore) List(ctx context.Context) ([]*model.Driver, error) {
	var drivers []*model.Driver
	err := pg.GetDB().WithContext(ctx).Order("created_at asc").Find(&drivers).Error
	return drivers, err
}

func (s *pgStore) Delete(ctx context.Context, id string) error {
	result := pg.GetDB().WithContext(ctx).Delete(&model.Driver{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDriverNotFound
	}
	return nil
}

func (s *pgStore) Link(ctx context.Context, driverID string, link Link, user *model.User) error {
	return pg.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		result := tx.Model(&model.Driver{}).Where("id = ?", driverID).Updates(map[string]any{
			"user_id":    link.UserID,
			"full_name":  link.FullName,
			"contact":    link.Contact,
			"vehicle_id": link.VehicleID,
			"linked_at":  link.LinkedAt,
			"updated_at": link.LinkedAt,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrDriverNotFound
		}
		return nil
	})
}

func (s *pgStore) AssignVehicle(ctx context.Context, driverID, vehicleID string) error {
	result := pg.GetDB().WithContext(ctx).Model(&model.Driver{}).
		Where("id = ?", driverID).
		Update("vehicle_id", vehicleID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDriverNotFound
	}
	return nil
}
