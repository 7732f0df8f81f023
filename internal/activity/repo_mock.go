package activity

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bkovacic/fitlog/internal/workout"
)

var _ activitiesRepo = (*repoMock)(nil)

type entryKey struct {
	userID  int
	dateKey string
}

type repoMock struct {
	Entries map[entryKey]Entry
	mutex   sync.Mutex
}

func NewRepoMock() *repoMock {
	return &repoMock{
		Entries: map[entryKey]Entry{},
	}
}

func (r *repoMock) Upsert(_ context.Context, entry Entry) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.Entries[entryKey{entry.UserID, entry.DateKey()}] = entry
	return nil
}

func (r *repoMock) ListAll(_ context.Context, userID int) ([]Entry, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	entries := make([]Entry, 0)
	for _, e := range r.Entries {
		if e.UserID == userID {
			entries = append(entries, e)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].DateKey() > entries[j].DateKey()
	})

	return entries, nil
}

func (r *repoMock) Get(_ context.Context, userID int, date time.Time) (*Entry, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	e, ok := r.Entries[entryKey{userID, date.Format(workout.DateLayout)}]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return &e, nil
}
