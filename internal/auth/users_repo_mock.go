package auth

import (
	"context"
	"sync"
	"time"
)

var _ usersRepo = (*usersRepoMock)(nil)

type usersRepoMock struct {
	// email to user
	Users map[string]User
	mutex sync.Mutex
}

func NewUsersRepoMock() *usersRepoMock {
	return &usersRepoMock{
		Users: map[string]User{},
	}
}

func (r *usersRepoMock) Add(_ context.Context, email, passwordHash string) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.Users[email]; ok {
		return nil, ErrUserExists
	}

	user := User{
		ID:           len(r.Users) + 1,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	r.Users[email] = user

	return &user, nil
}

func (r *usersRepoMock) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, ok := r.Users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}
