package store

import (
	"context"
	"sync"

	"tutorcore/pkg/domain"
)

// MemoryStore keeps profile records in-process for local runs and tests.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[string]domain.UserProfile          // external id -> profile
	teachers     map[string]domain.TeacherProfile       // user id -> teacher profile
	applications map[string][]domain.TeacherApplication // user id -> applications
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]domain.UserProfile),
		teachers:     make(map[string]domain.TeacherProfile),
		applications: make(map[string][]domain.TeacherApplication),
	}
}

// PutUserProfile stores or replaces a user profile keyed by its external id.
func (m *MemoryStore) PutUserProfile(p domain.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[p.ExternalID] = p
}

// PutTeacherProfile stores or replaces the teacher profile of p.UserID.
func (m *MemoryStore) PutTeacherProfile(p domain.TeacherProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teachers[p.UserID] = p
}

// AddApplication appends an application for a.UserID.
func (m *MemoryStore) AddApplication(a domain.TeacherApplication) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applications[a.UserID] = append(m.applications[a.UserID], a)
}

func (m *MemoryStore) FindUserProfileByIdentity(_ context.Context, externalID string) (domain.UserProfile, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.users[externalID]
	return p, ok, nil
}

func (m *MemoryStore) FindTeacherProfileByUserID(_ context.Context, userID string) (domain.TeacherProfile, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.teachers[userID]
	return p, ok, nil
}

// FindCurrentApplicationByUserID mirrors GormStore ordering: newest
// CreatedAt wins, then the greater id.
func (m *MemoryStore) FindCurrentApplicationByUserID(_ context.Context, userID string) (domain.TeacherApplication, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	apps := m.applications[userID]
	if len(apps) == 0 {
		return domain.TeacherApplication{}, false, nil
	}
	current := apps[0]
	for _, a := range apps[1:] {
		if a.CreatedAt.After(current.CreatedAt) ||
			(a.CreatedAt.Equal(current.CreatedAt) && a.ID > current.ID) {
			current = a
		}
	}
	return current, true, nil
}
