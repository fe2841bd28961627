// Package store is the Record Store: durable, uniquely-keyed storage for
// registrations backed by Postgres through gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"expo-registration/internal/models"
)

var ErrNotFound = errors.New("registration not found")

// DuplicatePhoneError carries the already-stored record so handlers can
// answer a conflict with the existing registration's public fields.
type DuplicatePhoneError struct {
	Existing models.Registration
}

func (e *DuplicatePhoneError) Error() string {
	return fmt.Sprintf("phone %s already registered as %s", e.Existing.Phone, e.Existing.RegistrationID)
}

type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and configures the connection pool. Connections
// are pooled per process; handlers borrow one per query and gorm returns it
// when the query finishes.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing gorm handle. Tests use this with in-memory sqlite.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&models.Registration{})
}

// Create inserts a new registration with NeedsSync set. On a duplicate phone
// it returns DuplicatePhoneError with the stored record; it never overwrites.
func (s *Store) Create(ctx context.Context, reg *models.Registration) error {
	reg.NeedsSync = true
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Registration
		err := tx.Where("phone = ?", reg.Phone).First(&existing).Error
		if err == nil {
			return &DuplicatePhoneError{Existing: existing}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(reg).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost a race with a concurrent insert; fetch the winner.
		var existing models.Registration
		if ferr := s.db.WithContext(ctx).Where("phone = ?", reg.Phone).First(&existing).Error; ferr == nil {
			return &DuplicatePhoneError{Existing: existing}
		}
	}
	return err
}

func (s *Store) FindByPhone(ctx context.Context, phone string) (models.Registration, error) {
	return s.findOne(ctx, "phone = ?", phone)
}

func (s *Store) FindByRegistrationID(ctx context.Context, regID string) (models.Registration, error) {
	return s.findOne(ctx, "registration_id = ?", regID)
}

func (s *Store) findOne(ctx context.Context, cond string, arg string) (models.Registration, error) {
	var reg models.Registration
	err := s.db.WithContext(ctx).Where(cond, arg).First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return reg, ErrNotFound
	}
	return reg, err
}

// ListDirty returns every record pending propagation to the mirror, oldest
// first so a truncated run prioritizes the longest-waiting records next time.
func (s *Store) ListDirty(ctx context.Context) ([]models.Registration, error) {
	var regs []models.Registration
	err := s.db.WithContext(ctx).
		Where("needs_sync = ?", true).
		Order("created_at ASC").
		Find(&regs).Error
	return regs, err
}

// ClearDirty drops the dirty flag for the given ids in a single UPDATE,
// all-or-nothing. The updated_at guard keeps the flag on any record that was
// mutated after the reconciler read its dirty set: that mutation has not been
// mirrored, so clearing it would be a false negative.
func (s *Store) ClearDirty(ctx context.Context, regIDs []string, asOf time.Time) error {
	if len(regIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Registration{}).
		Where("registration_id IN ? AND updated_at <= ?", regIDs, asOf).
		Update("needs_sync", false).Error
}

// CheckIn stamps the record and re-marks it dirty in the same update.
func (s *Store) CheckIn(ctx context.Context, regID string) (models.Registration, error) {
	now := time.Now()
	return s.mutate(ctx, regID, map[string]interface{}{
		"checked_in_at": &now,
		"needs_sync":    true,
	})
}

func (s *Store) UndoCheckIn(ctx context.Context, regID string) (models.Registration, error) {
	return s.mutate(ctx, regID, map[string]interface{}{
		"checked_in_at": nil,
		"needs_sync":    true,
	})
}

func (s *Store) mutate(ctx context.Context, regID string, fields map[string]interface{}) (models.Registration, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Registration{}).
		Where("registration_id = ?", regID).
		Updates(fields)
	if res.Error != nil {
		return models.Registration{}, res.Error
	}
	if res.RowsAffected == 0 {
		return models.Registration{}, ErrNotFound
	}
	return s.FindByRegistrationID(ctx, regID)
}

// ListAll returns every record ordered by creation time; used by the full
// rebuild export.
func (s *Store) ListAll(ctx context.Context) ([]models.Registration, error) {
	var regs []models.Registration
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&regs).Error
	return regs, err
}

type Stats struct {
	Total              int64      `json:"total"`
	CheckedIn          int64      `json:"checked_in"`
	PendingSync        int64      `json:"pending_sync"`
	LastRegistrationAt *time.Time `json:"last_registration_at,omitempty"`
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.WithContext(ctx).Model(&models.Registration{}).Count(&st.Total).Error; err != nil {
		return st, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Registration{}).
		Where("checked_in_at IS NOT NULL").Count(&st.CheckedIn).Error; err != nil {
		return st, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Registration{}).
		Where("needs_sync = ?", true).Count(&st.PendingSync).Error; err != nil {
		return st, err
	}
	var last models.Registration
	err := s.db.WithContext(ctx).Order("created_at DESC").First(&last).Error
	if err == nil {
		st.LastRegistrationAt = &last.CreatedAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return st, err
	}
	return st, nil
}
