package vehicle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"bustrack/internal/config"
	"bustrack/internal/model"
	pg "bustrack/internal/postgres"
	redis_client "bustrack/internal/redis"
	"bustrack/internal/service/storage"
	"bustrack/internal/util"

	"gorm.io/gorm"
)

const VehicleRedisKey = "vehicle"

// VehicleService owns the in-memory vehicle registry: the latest-value
// record per bus, the append-only sample ledger behind it, and the change
// feed observers subscribe to.
type VehicleService struct {
	storage storage.Storage[string, *model.Vehicle]
	ledger  Ledger
	feed    *Feed

	// lastActive remembers each vehicle's previous liveness classification
	// so the liveness worker can publish flips
	lastActive map[string]bool
	activeMu   sync.Mutex

	now func() time.Time

	initialized bool
	initMutex   sync.RWMutex
}

var (
	vehicleServiceInstance *VehicleService
	vehicleServiceOnce     sync.Once
)

// GetVehicleService returns the singleton instance backed by the
// PostgreSQL ledger.
func GetVehicleService() *VehicleService {
	vehicleServiceOnce.Do(func() {
		vehicleServiceInstance = NewVehicleService(NewPGLedger())
	})
	return vehicleServiceInstance
}

// NewVehicleService creates a service over the given ledger
func NewVehicleService(ledger Ledger) *VehicleService {
	return &VehicleService{
		storage:    storage.NewMemoryStorage[string, *model.Vehicle](),
		ledger:     ledger,
		feed:       NewFeed(),
		lastActive: make(map[string]bool),
		now:        time.Now,
	}
}

// InitService loads vehicles from PostgreSQL and overlays newer Redis
// records on top.
func (s *VehicleService) InitService(ctx context.Context) error {
	s.initMutex.Lock()
	defer s.initMutex.Unlock()

	if s.initialized {
		return nil
	}

	log.Println("Initializing VehicleService...")
	startTime := time.Now()

	pgVehicles, err := s.loadAllVehiclesFromPG()
	if err != nil {
		return fmt.Errorf("failed to load vehicles from PostgreSQL: %w", err)
	}
	log.Printf("Loaded %d vehicles from PostgreSQL in %v", len(pgVehicles), time.Since(startTime))

	redisVehicles, err := s.loadAllVehiclesFromRedis(ctx)
	if err != nil {
		return fmt.Errorf("failed to load vehicles from Redis: %w", err)
	}
	log.Printf("Loaded %d vehicle updates from Redis", len(redisVehicles))

	mergedCount := s.mergeVehiclesIntoMemory(pgVehicles, redisVehicles)
	log.Printf("Merged %d newer vehicles from Redis", mergedCount)

	log.Printf("Initialization complete: %d vehicles in memory, took %v",
		s.storage.Count(), time.Since(startTime))

	s.initialized = true
	return nil
}

func (s *VehicleService) loadAllVehiclesFromPG() ([]*model.Vehicle, error) {
	db := pg.GetDB()
	var pgVehicles []*model.VehiclePG

	result := db.Find(&pgVehicles)
	if result.Error != nil {
		return nil, result.Error
	}

	vehicles := make([]*model.Vehicle, len(pgVehicles))
	for i, pgVehicle := range pgVehicles {
		vehicles[i] = model.VehicleFromPG(pgVehicle)
	}

	return vehicles, nil
}

func (s *VehicleService) loadAllVehiclesFromRedis(ctx context.Context) (map[string]*model.Vehicle, error) {
	client := redis_client.GetClient()

	keys, err := redis_client.ScanKeys(ctx, fmt.Sprintf("%s:*", VehicleRedisKey))
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return make(map[string]*model.Vehicle), nil
	}

	jsonData, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	vehicles := make(map[string]*model.Vehicle)
	for _, data := range jsonData {
		if data == nil {
			continue
		}

		jsonStr, ok := data.(string)
		if !ok || jsonStr == "" {
			continue
		}

		redisVehicle := &model.VehicleRedis{}
		if err := json.Unmarshal([]byte(jsonStr), redisVehicle); err != nil {
			continue
		}

		vehicles[redisVehicle.ID] = model.VehicleFromRedis(redisVehicle)
	}

	return vehicles, nil
}

// mergeVehiclesIntoMemory loads the PostgreSQL vehicles and overrides them
// with newer Redis records, preserving the fields Redis does not carry.
func (s *VehicleService) mergeVehiclesIntoMemory(pgVehicles []*model.Vehicle, redisVehicles map[string]*model.Vehicle) int {
	for _, pgVehicle := range pgVehicles {
		s.storage.Set(pgVehicle.ID, pgVehicle)
	}

	mergedCount := 0
	for id, redisVehicle := range redisVehicles {
		existing, exists := s.storage.Get(id)
		if !exists || redisVehicle.UpdatedAt.After(existing.UpdatedAt) {
			if exists {
				// Redis stores only the ingestion-mutated fields
				redisVehicle.Label = existing.Label
				redisVehicle.DriverID = existing.DriverID
				redisVehicle.CreatedAt = existing.CreatedAt
				redisVehicle.DeletedAt = existing.DeletedAt
			}
			s.storage.Set(id, redisVehicle)
			mergedCount++
		}
	}

	// Startup dirty flags would re-save everything we just loaded
	keys := make([]string, 0, s.storage.Count())
	for id := range s.storage.GetAll() {
		keys = append(keys, id)
	}
	s.storage.ClearDirty(keys)

	return mergedCount
}

// ApplyFix applies one admitted fix: a partial-field merge into the
// vehicle's latest-value record, then one immutable ledger append. Both
// effects are attempted; a merge problem does not suppress the append.
// LastSeen is always set from the service clock, whether or not the
// position changed.
func (s *VehicleService) ApplyFix(ctx context.Context, vehicleID, driverID string, fix model.Fix) error {
	if vehicleID == "" {
		return ErrVehicleIDRequired
	}

	now := s.now()

	v, exists := s.storage.Get(vehicleID)
	if !exists {
		v = &model.Vehicle{ID: vehicleID, CreatedAt: now}
	} else {
		v = v.Clone()
	}

	distance := 0.0
	if v.HasPosition {
		distance = util.HaversineDistance(v.Lat, v.Lng, fix.Lat, fix.Lng)
	}

	// Partial merge: only position fields and LastSeen change, Label and
	// the driver assignment survive untouched
	v.HasPosition = true
	v.Lat = fix.Lat
	v.Lng = fix.Lng
	v.Accuracy = fix.Accuracy
	v.Speed = fix.Speed
	v.Heading = fix.Heading
	v.CapturedAt = fix.CapturedAt
	if driverID != "" {
		v.DriverID = driverID
	}
	v.LastSeen = now
	v.UpdatedAt = now

	s.storage.Set(vehicleID, v)
	s.feed.Publish(Event{Type: EventUpdate, VehicleID: vehicleID, Vehicle: v.Clone(), Active: true})

	sample := &model.PositionSample{
		ID:         util.ShortUUID(),
		VehicleID:  vehicleID,
		DriverID:   driverID,
		Lat:        fix.Lat,
		Lng:        fix.Lng,
		Accuracy:   fix.Accuracy,
		Speed:      fix.Speed,
		Heading:    fix.Heading,
		DistanceM:  distance,
		CapturedAt: fix.CapturedAt,
		RecordedAt: now,
	}
	if err := s.ledger.Append(ctx, sample); err != nil {
		return fmt.Errorf("failed to append position sample: %w", err)
	}

	return nil
}

// VehiclePatch is a partial roster update; nil fields are left untouched
type VehiclePatch struct {
	Label    *string `json:"label"`
	DriverID *string `json:"driver_id"`
}

// UpsertVehicle creates or partially updates a roster entry. Position
// fields are never touched here.
func (s *VehicleService) UpsertVehicle(id string, patch VehiclePatch) (*model.Vehicle, error) {
	if id == "" {
		return nil, ErrVehicleIDRequired
	}

	now := s.now()

	v, exists := s.storage.Get(id)
	if !exists {
		v = &model.Vehicle{ID: id, CreatedAt: now}
	} else {
		v = v.Clone()
	}

	if patch.Label != nil {
		v.Label = *patch.Label
	}
	if patch.DriverID != nil {
		v.DriverID = *patch.DriverID
	}
	v.UpdatedAt = now

	s.storage.Set(id, v)
	s.feed.Publish(Event{Type: EventUpdate, VehicleID: id, Vehicle: v.Clone(), Active: s.IsActive(v, now)})

	return v.Clone(), nil
}

// ClearPosition removes the vehicle's current position. Observers tear
// down any marker they hold for it.
func (s *VehicleService) ClearPosition(id string) error {
	v, exists := s.storage.Get(id)
	if !exists {
		return ErrVehicleNotFound
	}

	v = v.Clone()
	v.HasPosition = false
	v.Lat = 0
	v.Lng = 0
	v.Accuracy = nil
	v.Speed = nil
	v.Heading = nil
	v.CapturedAt = time.Time{}
	v.UpdatedAt = s.now()

	s.storage.Set(id, v)
	s.feed.Publish(Event{Type: EventRemove, VehicleID: id})
	return nil
}

// DeleteVehicle removes the vehicle from the registry, Redis and
// PostgreSQL. The sample ledger is left untouched.
func (s *VehicleService) DeleteVehicle(ctx context.Context, id string) error {
	if !s.storage.Delete(id) {
		return ErrVehicleNotFound
	}

	s.activeMu.Lock()
	delete(s.lastActive, id)
	s.activeMu.Unlock()

	if client := redis_client.GetClient(); client != nil {
		if err := client.Del(ctx, fmt.Sprintf("%s:%s", VehicleRedisKey, id)).Err(); err != nil {
			log.Printf("Failed to delete vehicle %s from Redis: %v", id, err)
		}
	}
	if db := pg.GetDB(); db != nil {
		if err := db.WithContext(ctx).Delete(&model.VehiclePG{ID: id}).Error; err != nil {
			log.Printf("Failed to delete vehicle %s from PostgreSQL: %v", id, err)
		}
	}

	s.feed.Publish(Event{Type: EventRemove, VehicleID: id})
	return nil
}

// GetVehicle returns a copy of one vehicle
func (s *VehicleService) GetVehicle(id string) (*model.Vehicle, bool) {
	v, exists := s.storage.Get(id)
	if !exists {
		return nil, false
	}
	return v.Clone(), true
}

// ListVehicles returns copies of all vehicles sorted by ID
func (s *VehicleService) ListVehicles() []*model.Vehicle {
	vehicles := s.storage.GetAllValues()
	result := make([]*model.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		result = append(result, v.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// IsActive reports whether the vehicle reported within the active window.
// Computed from the given clock on every call, never cached.
func (s *VehicleService) IsActive(v *model.Vehicle, now time.Time) bool {
	if v.LastSeen.IsZero() {
		return false
	}
	return now.Sub(v.LastSeen) <= config.ActiveWindow
}

// IsTracked reports whether the vehicle has a current position, stale or
// not. Independent of liveness.
func (s *VehicleService) IsTracked(v *model.Vehicle) bool {
	return v.HasPosition
}

// Stats holds the dashboard counters
type Stats struct {
	Total   int `json:"total"`
	Tracked int `json:"tracked"`
	Active  int `json:"active"`
}

// ComputeStats derives the dashboard counters at the given instant
func (s *VehicleService) ComputeStats(now time.Time) Stats {
	stats := Stats{}
	s.storage.ForEach(func(id string, v *model.Vehicle) bool {
		stats.Total++
		if s.IsTracked(v) {
			stats.Tracked++
		}
		if s.IsActive(v, now) {
			stats.Active++
		}
		return true
	})
	return stats
}

// Subscribe attaches an observer to the change feed
func (s *VehicleService) Subscribe() (<-chan Event, func()) {
	return s.feed.Subscribe()
}

// RecomputeLiveness re-derives every vehicle's classification from the
// wall clock and publishes status events for the ones that flipped. A
// vehicle goes inactive purely from time passing, with no new write, so
// the data feed alone would never report this transition.
func (s *VehicleService) RecomputeLiveness() int {
	now := s.now()
	flipped := 0

	s.activeMu.Lock()
	defer s.activeMu.Unlock()

	s.storage.ForEach(func(id string, v *model.Vehicle) bool {
		active := s.IsActive(v, now)
		prev, known := s.lastActive[id]
		if !known || prev != active {
			s.lastActive[id] = active
			if known {
				s.feed.Publish(Event{Type: EventStatus, VehicleID: id, Active: active})
				flipped++
			}
		}
		return true
	})

	return flipped
}

// Samples returns recent ledger rows for one vehicle, newest first
func (s *VehicleService) Samples(ctx context.Context, vehicleID string, limit int) ([]*model.PositionSample, error) {
	return s.ledger.Recent(ctx, vehicleID, limit)
}

// Trail returns ledger rows for one vehicle in capture order
func (s *VehicleService) Trail(ctx context.Context, vehicleID string, limit int) ([]*model.PositionSample, error) {
	return s.ledger.Trail(ctx, vehicleID, limit)
}

// StartPersistenceWorkers starts workers for persisting the registry to
// Redis and PostgreSQL
func (s *VehicleService) StartPersistenceWorkers() {
	redisTimer := time.NewTicker(config.RedisBackupInterval)
	go func() {
		for range redisTimer.C {
			if err := s.SaveDirtyVehiclesToRedis(); err != nil {
				log.Printf("Error saving to Redis: %v", err)
			}
		}
	}()

	pgTimer := time.NewTicker(config.PostgresBackupInterval)
	go func() {
		for range pgTimer.C {
			if err := s.SaveAllVehiclesToPG(); err != nil {
				log.Printf("Error saving to PostgreSQL: %v", err)
			}
		}
	}()
}

// SaveDirtyVehiclesToRedis saves modified vehicles to Redis in one pipeline
func (s *VehicleService) SaveDirtyVehiclesToRedis() error {
	dirtyVehicles := s.storage.GetDirty()
	if len(dirtyVehicles) == 0 {
		return nil
	}

	client := redis_client.GetClient()
	ctx := context.Background()
	pipe := client.Pipeline()

	// Collect keys to clear flags after successful save
	keys := make([]string, 0, len(dirtyVehicles))

	for id, v := range dirtyVehicles {
		vehicleKey := fmt.Sprintf("%s:%s", VehicleRedisKey, id)
		vehicleJSON, err := json.Marshal(v.ToRedis())
		if err != nil {
			return err
		}
		pipe.Set(ctx, vehicleKey, vehicleJSON, 0)
		keys = append(keys, id)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		return err
	}

	// Clear flags only after successful save
	s.storage.ClearDirty(keys)

	log.Printf("Saved %d vehicles to Redis", len(dirtyVehicles))
	return nil
}

// SaveAllVehiclesToPG saves all vehicles to PostgreSQL in batches
func (s *VehicleService) SaveAllVehiclesToPG() error {
	allVehicles := s.storage.GetAllValues()
	if len(allVehicles) == 0 {
		return nil
	}

	db := pg.GetDB()
	batchSize := 1000

	for i := 0; i < len(allVehicles); i += batchSize {
		end := i + batchSize
		if end > len(allVehicles) {
			end = len(allVehicles)
		}

		batch := allVehicles[i:end]

		err := db.Transaction(func(tx *gorm.DB) error {
			for _, v := range batch {
				result := tx.Save(v.ToPG())
				if result.Error != nil {
					return result.Error
				}
			}
			return nil
		})

		if err != nil {
			return err
		}
	}

	return nil
}
