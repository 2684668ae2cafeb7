package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"tutorcore/pkg/domain"
)

// GormStore implements ProfileStore using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the profile database. It never migrates: the schema
// belongs to the services that write these records.
func NewGormStore(dsn string) (*GormStore, error) {
	if dsn == "" {
		return nil, errors.New("database URL required")
	}
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return NewGormStoreFromDB(db), nil
}

// NewGormStoreFromDB wraps an already opened handle.
func NewGormStoreFromDB(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks database connectivity.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// FindUserProfileByIdentity looks up a profile by identity-provider subject.
func (s *GormStore) FindUserProfileByIdentity(ctx context.Context, externalID string) (domain.UserProfile, bool, error) {
	var model UserProfileModel
	if err := s.db.WithContext(ctx).First(&model, "external_id = ?", externalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UserProfile{}, false, nil
		}
		return domain.UserProfile{}, false, err
	}
	return userProfileFromModel(model), true, nil
}

// FindTeacherProfileByUserID returns the teacher record owned by a user profile.
func (s *GormStore) FindTeacherProfileByUserID(ctx context.Context, userID string) (domain.TeacherProfile, bool, error) {
	var model TeacherProfileModel
	if err := s.db.WithContext(ctx).First(&model, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.TeacherProfile{}, false, nil
		}
		return domain.TeacherProfile{}, false, err
	}
	return teacherProfileFromModel(model), true, nil
}

// FindCurrentApplicationByUserID picks the newest application; id breaks ties
// between rows created in the same instant.
func (s *GormStore) FindCurrentApplicationByUserID(ctx context.Context, userID string) (domain.TeacherApplication, bool, error) {
	var models []TeacherApplicationModel
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Find(&models).Error; err != nil {
		return domain.TeacherApplication{}, false, err
	}
	if len(models) == 0 {
		return domain.TeacherApplication{}, false, nil
	}
	return applicationFromModel(models[0]), true, nil
}

func userProfileFromModel(m UserProfileModel) domain.UserProfile {
	return domain.UserProfile{
		ID:         m.ID,
		ExternalID: m.ExternalID,
		Role:       domain.UserRole(m.Role),
		CreatedAt:  m.CreatedAt,
	}
}

func teacherProfileFromModel(m TeacherProfileModel) domain.TeacherProfile {
	return domain.TeacherProfile{
		ID:        m.ID,
		UserID:    m.UserID,
		Verified:  m.Verified,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func applicationFromModel(m TeacherApplicationModel) domain.TeacherApplication {
	return domain.TeacherApplication{
		ID:        m.ID,
		UserID:    m.UserID,
		Status:    domain.ApplicationStatus(m.Status),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
