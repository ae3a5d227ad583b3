package booking

import (
	"context"
	"errors"
	"testing"
)

type countingLookup struct {
	calls int
	err   error
}

func (l *countingLookup) Lookup(ctx context.Context, email string) (UserInfo, error) {
	l.calls++
	if l.err != nil {
		return UserInfo{}, l.err
	}
	return UserInfo{DisplayName: "User " + email}, nil
}

func TestUserInfoCacheMemoizes(t *testing.T) {
	lookup := &countingLookup{}
	cache := NewUserInfoCache(lookup, 10)

	for i := 0; i < 3; i++ {
		info, err := cache.Get(context.Background(), "dana@example.com")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if info.DisplayName != "User dana@example.com" {
			t.Fatalf("info = %+v", info)
		}
	}
	if lookup.calls != 1 {
		t.Fatalf("lookup calls = %d, want 1", lookup.calls)
	}
}

func TestUserInfoCacheDoesNotCacheErrors(t *testing.T) {
	lookup := &countingLookup{err: errors.New("directory down")}
	cache := NewUserInfoCache(lookup, 10)

	if _, err := cache.Get(context.Background(), "dana@example.com"); err == nil {
		t.Fatal("expected error")
	}
	lookup.err = nil
	info, err := cache.Get(context.Background(), "dana@example.com")
	if err != nil {
		t.Fatalf("Get after recovery: %v", err)
	}
	if info.DisplayName == "" {
		t.Fatal("empty info after recovery")
	}
	if lookup.calls != 2 {
		t.Fatalf("lookup calls = %d, want 2", lookup.calls)
	}
}

func TestUserInfoCacheStaysBounded(t *testing.T) {
	lookup := &countingLookup{}
	cache := NewUserInfoCache(lookup, 2)

	emails := []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"}
	for _, email := range emails {
		if _, err := cache.Get(context.Background(), email); err != nil {
			t.Fatalf("Get(%s): %v", email, err)
		}
	}
	if got := len(cache.items); got > 2 {
		t.Fatalf("cache holds %d entries, limit is 2", got)
	}
}
