package services

import (
	"context"
	"errors"
	"testing"

	"github.com/groupasks/askbot/internal/repo"
)

func TestRosterRegisterAndGet(t *testing.T) {
	db := newServiceDB(t)
	svc := NewRosterService(db, repo.Users{})
	ctx := context.Background()

	u, err := svc.Register(ctx, 100, "Alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.UserID != 100 || u.DisplayName != "Alice" {
		t.Fatalf("unexpected user: %+v", u)
	}

	got, err := svc.Get(ctx, 100)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DisplayName != "Alice" {
		t.Fatalf("get returned %+v", got)
	}

	if _, err := svc.Get(ctx, 999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user: err = %v, want ErrUserNotFound", err)
	}
}

func TestRosterRegister_BlankNameFallsBack(t *testing.T) {
	db := newServiceDB(t)
	svc := NewRosterService(db, repo.Users{})

	u, err := svc.Register(context.Background(), 42, "   ")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.DisplayName != "User 42" {
		t.Fatalf("display name = %q, want %q", u.DisplayName, "User 42")
	}
}

func TestRosterRegister_RefreshesName(t *testing.T) {
	db := newServiceDB(t)
	svc := NewRosterService(db, repo.Users{})
	ctx := context.Background()

	if _, err := svc.Register(ctx, 100, "Alice"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, 100, "Alice Smith"); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	got, err := svc.Get(ctx, 100)
	if err != nil || got.DisplayName != "Alice Smith" {
		t.Fatalf("name not refreshed: %+v err=%v", got, err)
	}

	roster, err := svc.Roster(ctx)
	if err != nil || len(roster) != 1 {
		t.Fatalf("roster: %+v err=%v", roster, err)
	}
}

func TestResolveDisplayName(t *testing.T) {
	cases := []struct {
		name     string
		first    string
		last     string
		username string
		id       int64
		want     string
	}{
		{"first and last", "Alice", "Smith", "asmith", 1, "Alice Smith"},
		{"first only", "Alice", "", "asmith", 1, "Alice"},
		{"username fallback", "", "", "asmith", 1, "@asmith"},
		{"id fallback", "", "", "", 77, "User 77"},
		{"whitespace trimmed", "  Alice ", "  ", " asmith ", 1, "Alice"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveDisplayName(tc.first, tc.last, tc.username, tc.id); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
