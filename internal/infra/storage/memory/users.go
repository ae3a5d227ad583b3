package memory

import (
	"context"
	"sync"

	bookingapp "gymbook/internal/app/handlers/booking"
)

// UserDirectory is a static email -> display-info table for dev and tests.
type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]bookingapp.UserInfo
}

func NewUserDirectory() *UserDirectory {
	return &UserDirectory{users: make(map[string]bookingapp.UserInfo)}
}

func (d *UserDirectory) Put(email string, info bookingapp.UserInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[email] = info
}

func (d *UserDirectory) Lookup(ctx context.Context, email string) (bookingapp.UserInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.users[email], nil
}

var _ bookingapp.UserInfoLookup = (*UserDirectory)(nil)
