package service

import (
	"context"
	"errors"
	"sync"

	"dayplan/internal/mail"
	"dayplan/internal/model"
	"dayplan/internal/repository"
)

type fakeUsers struct {
	pingErr  error
	zonesErr error
	users    []model.User

	mu      sync.Mutex
	queries []string
}

func (f *fakeUsers) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeUsers) NotificationZones(ctx context.Context) ([]string, error) {
	if f.zonesErr != nil {
		return nil, f.zonesErr
	}
	seen := map[string]bool{}
	var zones []string
	for _, u := range f.users {
		if u.EmailNotifications && !seen[u.TimeZone] {
			seen[u.TimeZone] = true
			zones = append(zones, u.TimeZone)
		}
	}
	return zones, nil
}

func (f *fakeUsers) FindUsersWithNotificationsDueAt(ctx context.Context, hhmm, zone string) ([]model.User, error) {
	f.mu.Lock()
	f.queries = append(f.queries, zone+"@"+hhmm)
	f.mu.Unlock()
	var out []model.User
	for _, u := range f.users {
		if u.EmailNotifications && u.NotificationTime == hhmm && u.TimeZone == zone {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

// fakeTasks answers by owner and date. leak simulates a query layer that
// returns another user's rows.
type fakeTasks struct {
	tasks []model.Task
	leak  map[string][]model.Task
	err   error
}

func (f *fakeTasks) FindTasksForOwnerOnDate(ctx context.Context, ownerID, date string) ([]model.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Task
	for _, t := range f.tasks {
		if t.OwnerID == ownerID && t.Date == date {
			out = append(out, t)
		}
	}
	return append(out, f.leak[ownerID]...), nil
}

func (f *fakeTasks) FindAllRecurringRootsForOwner(ctx context.Context, ownerID string) ([]model.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Task
	for _, t := range f.tasks {
		if t.OwnerID == ownerID && t.IsRecurring && t.RecurringParentID == nil {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeMailer struct {
	mu      sync.Mutex
	sent    []mail.Message
	calls   int
	failFor map[string]bool

	// stallFor blocks sends to these recipients until ctx is done.
	stallFor map[string]bool
}

func (f *fakeMailer) Send(ctx context.Context, msg mail.Message) (string, error) {
	if f.stallFor[msg.To] {
		<-ctx.Done()
		return "", &mail.SendError{Attempts: 1, Endpoints: 1, Errs: []error{ctx.Err()}}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failFor[msg.To] {
		return "", &mail.SendError{Attempts: 2, Endpoints: 2, Errs: []error{errors.New("timeout")}}
	}
	f.sent = append(f.sent, msg)
	return "<id@example.com>", nil
}

func (f *fakeMailer) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		out = append(out, m.To)
	}
	return out
}

type fakeChat struct {
	mu    sync.Mutex
	texts map[int64]string
	err   error
}

func (f *fakeChat) SendDigest(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.texts == nil {
		f.texts = map[int64]string{}
	}
	f.texts[chatID] = text
	return f.err
}
