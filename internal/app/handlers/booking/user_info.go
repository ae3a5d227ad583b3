package booking

import (
	"context"
	"sync"
)

type UserInfo struct {
	DisplayName string
	Phone       string
}

// UserInfoLookup resolves display info for an applicant email. The concrete
// implementation belongs to the surrounding application.
type UserInfoLookup interface {
	Lookup(ctx context.Context, email string) (UserInfo, error)
}

// UserInfoCache is a bounded read-through memo over a UserInfoLookup. It is
// owned by the query layer; the lifecycle core never consults it. When the
// cache fills up it drops an arbitrary entry, which is fine for display data.
type UserInfoCache struct {
	lookup UserInfoLookup
	limit  int

	mu    sync.RWMutex
	items map[string]UserInfo
}

func NewUserInfoCache(lookup UserInfoLookup, limit int) *UserInfoCache {
	if limit <= 0 {
		limit = 512
	}
	return &UserInfoCache{
		lookup: lookup,
		limit:  limit,
		items:  make(map[string]UserInfo),
	}
}

func (c *UserInfoCache) Get(ctx context.Context, email string) (UserInfo, error) {
	c.mu.RLock()
	info, ok := c.items[email]
	c.mu.RUnlock()
	if ok {
		return info, nil
	}
	info, err := c.lookup.Lookup(ctx, email)
	if err != nil {
		return UserInfo{}, err
	}
	c.mu.Lock()
	if len(c.items) >= c.limit {
		for k := range c.items {
			delete(c.items, k)
			break
		}
	}
	c.items[email] = info
	c.mu.Unlock()
	return info, nil
}
