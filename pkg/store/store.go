package store

import (
	"context"

	"tutorcore/pkg/domain"
)

// ProfileStore is the read-only contract the core needs from the profile
// database. Lookups return (value, found, err); a missing record is not an error.
type ProfileStore interface {
	FindUserProfileByIdentity(ctx context.Context, externalID string) (domain.UserProfile, bool, error)
	FindTeacherProfileByUserID(ctx context.Context, userID string) (domain.TeacherProfile, bool, error)
	// FindCurrentApplicationByUserID returns the most recently created
	// application of the user.
	FindCurrentApplicationByUserID(ctx context.Context, userID string) (domain.TeacherApplication, bool, error)
}
