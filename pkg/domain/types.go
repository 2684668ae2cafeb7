package domain

import "time"

type UserRole string

const (
	RoleParent  UserRole = "PARENT"
	RoleTeacher UserRole = "TEACHER"
)

type ApplicationStatus string

const (
	ApplicationPending            ApplicationStatus = "PENDING"
	ApplicationUnderReview        ApplicationStatus = "UNDER_REVIEW"
	ApplicationInterviewScheduled ApplicationStatus = "INTERVIEW_SCHEDULED"
	ApplicationInterviewCompleted ApplicationStatus = "INTERVIEW_COMPLETED"
	ApplicationApproved           ApplicationStatus = "APPROVED"
	ApplicationRejected           ApplicationStatus = "REJECTED"
)

// UserProfile is the application-level identity of an authenticated person.
type UserProfile struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"externalId"`
	Role       UserRole  `json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TeacherProfile exists only once an application has been approved.
type TeacherProfile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type TeacherApplication struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Status    ApplicationStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// VerificationStatus is a teacher's eligibility snapshot.
type VerificationStatus struct {
	IsVerified        bool               `json:"isVerified"`
	HasApplication    bool               `json:"hasApplication"`
	ApplicationStatus *ApplicationStatus `json:"applicationStatus"`
	ApplicationID     *string            `json:"applicationId"`
}

// StoredFile describes a blob placed under a caller-scoped path.
type StoredFile struct {
	Bucket      string `json:"bucket"`
	Path        string `json:"path"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	URL         string `json:"url"`
}
