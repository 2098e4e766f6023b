package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bustrack/internal/model"
	"bustrack/internal/util"
)

const inviteCodeLength = 8

var (
	ErrInviteNotFound  = errors.New("invalid invite code")
	ErrAmbiguousInvite = errors.New("invite code matches more than one driver")
	ErrDriverNotFound  = errors.New("driver not found")
	ErrNameRequired    = errors.New("full name is required")
	ErrEmailRequired   = errors.New("email is required")
)

// DriverService manages the driver roster and the invite-code
// registration flow that links a roster entry to an identity.
type DriverService struct {
	store Store
	now   func() time.Time
}

var (
	driverServiceInstance *DriverService
	driverServiceOnce     sync.Once
)

// GetDriverService returns the singleton instance backed by PostgreSQL
func GetDriverService() *DriverService {
	driverServiceOnce.Do(func() {
		driverServiceInstance = NewDriverService(NewPGStore())
	})
	return driverServiceInstance
}

// NewDriverService creates a service over the given store
func NewDriverService(store Store) *DriverService {
	return &DriverService{store: store, now: time.Now}
}

// CreateDriver creates a roster entry with a fresh invite code. The code
// column carries a unique index, so duplicate codes cannot be created.
func (s *DriverService) CreateDriver(ctx context.Context, fullName, contact, email, vehicleID string) (*model.Driver, error) {
	if fullName == "" {
		return nil, ErrNameRequired
	}

	code, err := util.NewInviteCode(inviteCodeLength)
	if err != nil {
		return nil, err
	}

	d := &model.Driver{
		ID:         util.ShortUUID(),
		FullName:   fullName,
		Contact:    contact,
		Email:      email,
		InviteCode: code,
		VehicleID:  vehicleID,
		CreatedAt:  s.now(),
		UpdatedAt:  s.now(),
	}
	if err := s.store.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}
	return d, nil
}

// ResolveInvite finds the single roster entry for an invite code. Zero
// matches is an explicit failure; more than one match means the unique
// index was bypassed and is reported loudly instead of silently picking
// the first row.
func (s *DriverService) ResolveInvite(ctx context.Context, code string) (*model.Driver, error) {
	if code == "" {
		return nil, ErrInviteNotFound
	}

	matches, err := s.store.ByInvite(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up invite code: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, ErrInviteNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, ErrAmbiguousInvite
	}
}

// Registration is the driver-side registration request
type Registration struct {
	FullName   string `json:"full_name"`
	Contact    string `json:"contact"`
	Email      string `json:"email"`
	InviteCode string `json:"invite_code"`
	VehicleID  string `json:"vehicle_id"`
}

// RegisterWithInvite resolves the invite, creates the identity record and
// links the roster entry, all atomically: a failure leaves no orphaned
// identity and no partial link.
func (s *DriverService) RegisterWithInvite(ctx context.Context, reg Registration) (*model.Driver, *model.User, error) {
	if reg.FullName == "" {
		return nil, nil, ErrNameRequired
	}
	if reg.Email == "" {
		return nil, nil, ErrEmailRequired
	}

	d, err := s.ResolveInvite(ctx, reg.InviteCode)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	user := &model.User{
		ID:          util.ShortUUID(),
		Email:       reg.Email,
		DisplayName: reg.FullName,
		Role:        model.RoleDriver,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	vehicleID := reg.VehicleID
	if vehicleID == "" {
		vehicleID = d.VehicleID
	}

	link := Link{
		UserID:    user.ID,
		FullName:  reg.FullName,
		Contact:   reg.Contact,
		VehicleID: vehicleID,
		LinkedAt:  now,
	}
	if err := s.store.Link(ctx, d.ID, link, user); err != nil {
		return nil, nil, fmt.Errorf("failed to link driver: %w", err)
	}

	d.UserID = user.ID
	d.FullName = reg.FullName
	d.Contact = reg.Contact
	d.VehicleID = vehicleID
	d.LinkedAt = &now
	return d, user, nil
}

// AssignVehicle points a roster entry at a vehicle. The reference is
// weak; the vehicle record is not touched.
func (s *DriverService) AssignVehicle(ctx context.Context, driverID, vehicleID string) error {
	if err := s.store.AssignVehicle(ctx, driverID, vehicleID); err != nil {
		return fmt.Errorf("failed to assign vehicle: %w", err)
	}
	return nil
}

// GetDriver returns one roster entry
func (s *DriverService) GetDriver(ctx context.Context, id string) (*model.Driver, error) {
	return s.store.ByID(ctx, id)
}

// ListDrivers returns the roster
func (s *DriverService) ListDrivers(ctx context.Context) ([]*model.Driver, error) {
	return s.store.List(ctx)
}

// DeleteDriver removes a roster entry
func (s *DriverService) DeleteDriver(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
