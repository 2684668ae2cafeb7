package app

import "tutorcore/pkg/result"

// Caller-facing failures. Messages are shown to end users as-is.
var (
	ErrNotAuthenticated = result.Unauthorized("Not authenticated")
	ErrProfileNotFound  = result.NotFound("Profile not found")
	ErrNotATeacher      = result.Forbidden("Only teachers can check verification status")

	ErrUnauthorized  = result.Unauthorized("Unauthorized")
	ErrNotFileOwner  = result.Unauthorized("You can only delete your own files")
	ErrNoFile        = result.Validation("No file provided")
	ErrUnknownBucket = result.Validation("Unknown bucket")
	ErrInvalidFolder = result.Validation("Invalid folder")
	ErrUploadLimited = result.RateLimited("Too many uploads, please try again later")
	// ErrFileTooLarge is reported when the request body exceeds every
	// profile's limit before the file can be inspected.
	ErrFileTooLarge = sizeExceeded(documentProfile)
)

const (
	msgLookupFailed = "Failed to check verification status"
	msgUploadFailed = "Upload failed"
	msgDeleteFailed = "Delete failed"
)
