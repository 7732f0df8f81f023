package profile

import (
	"context"
	"sync"
)

var _ profilesRepo = (*repoMock)(nil)

type repoMock struct {
	mutex sync.Mutex

	// Emails holds known users, a Get for an unknown user fails the
	// way the real repo does
	Emails   map[int]string
	Profiles map[int]Profile
}

func newRepoMock() *repoMock {
	return &repoMock{
		Emails:   make(map[int]string),
		Profiles: make(map[int]Profile),
	}
}

func (r *repoMock) Get(_ context.Context, userID int) (*Profile, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	email, ok := r.Emails[userID]
	if !ok {
		return nil, ErrUserNotFound
	}

	profile, ok := r.Profiles[userID]
	if !ok {
		return &Profile{UserID: userID, Email: email}, nil
	}

	profile.Email = email
	return &profile, nil
}

func (r *repoMock) Upsert(_ context.Context, profile Profile) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.Profiles[profile.UserID] = profile
	return nil
}
