package store

import "time"

// GORM models mapped onto the profile database. The schema is owned by the
// onboarding/review services; these mappings only cover what the core reads.
type UserProfileModel struct {
	ID         string    `gorm:"primaryKey"`
	ExternalID string    `gorm:"column:external_id;uniqueIndex;not null"`
	Role       string    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (UserProfileModel) TableName() string { return "user_profiles" }

type TeacherProfileModel struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"column:user_id;uniqueIndex;not null"`
	Verified  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time
}

func (TeacherProfileModel) TableName() string { return "teacher_profiles" }

type TeacherApplicationModel struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"column:user_id;not null;index"`
	Status    string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time
}

func (TeacherApplicationModel) TableName() string { return "teacher_applications" }
