package app

import (
	"context"

	"tutorcore/internal/identity"
	"tutorcore/internal/util"
	"tutorcore/pkg/domain"
	"tutorcore/pkg/result"
)

// ResolveVerification computes the caller's teacher eligibility snapshot.
//
// Lookups run strictly in order (user profile, teacher profile, current
// application) and stop as soon as the answer is known, so a missing user
// profile never leads to a teacher-profile query.
func (a *App) ResolveVerification(ctx context.Context) (domain.VerificationStatus, error) {
	caller, ok := identity.FromContext(ctx)
	if !ok {
		return domain.VerificationStatus{}, ErrNotAuthenticated
	}
	logger := util.LoggerFromContext(ctx).With("caller_id", caller.ID)

	profile, ok, err := a.profiles.FindUserProfileByIdentity(ctx, caller.ID)
	if err != nil {
		logger.Error("find user profile failed", "err", err)
		return domain.VerificationStatus{}, result.LookupFailed(msgLookupFailed, err)
	}
	if !ok {
		return domain.VerificationStatus{}, ErrProfileNotFound
	}
	if profile.Role != domain.RoleTeacher {
		return domain.VerificationStatus{}, ErrNotATeacher
	}

	teacher, ok, err := a.profiles.FindTeacherProfileByUserID(ctx, profile.ID)
	if err != nil {
		logger.Error("find teacher profile failed", "user_id", profile.ID, "err", err)
		return domain.VerificationStatus{}, result.LookupFailed(msgLookupFailed, err)
	}
	if ok && teacher.Verified {
		// Approved teachers never expose the application id.
		approved := domain.ApplicationApproved
		return domain.VerificationStatus{
			IsVerified:        true,
			HasApplication:    true,
			ApplicationStatus: &approved,
		}, nil
	}

	application, ok, err := a.profiles.FindCurrentApplicationByUserID(ctx, profile.ID)
	if err != nil {
		logger.Error("find current application failed", "user_id", profile.ID, "err", err)
		return domain.VerificationStatus{}, result.LookupFailed(msgLookupFailed, err)
	}
	if !ok {
		return domain.VerificationStatus{}, nil
	}
	status := application.Status
	id := application.ID
	return domain.VerificationStatus{
		HasApplication:    true,
		ApplicationStatus: &status,
		ApplicationID:     &id,
	}, nil
}
