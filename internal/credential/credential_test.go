package credential

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeExchanger struct {
	cred  Credential
	err   error
	calls int
}

func (f *fakeExchanger) Authenticate(context.Context) (Credential, error) {
	f.calls++
	return f.cred, f.err
}

func TestEnsureValid_Margin(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	fresh := Credential{Token: "fresh", ExpiresAt: now.Add(time.Hour)}

	tests := []struct {
		name        string
		cur         Credential
		wantRenewed bool
	}{
		{"expires in 29s", Credential{Token: "old", ExpiresAt: now.Add(29 * time.Second)}, true},
		{"expires in exactly 30s", Credential{Token: "old", ExpiresAt: now.Add(30 * time.Second)}, true},
		{"expires in 31s", Credential{Token: "old", ExpiresAt: now.Add(31 * time.Second)}, false},
		{"already expired", Credential{Token: "old", ExpiresAt: now.Add(-time.Minute)}, true},
		{"no token", Credential{}, true},
		{"valid for an hour", Credential{Token: "old", ExpiresAt: now.Add(time.Hour)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &fakeExchanger{cred: fresh}
			m := NewManager(ex).WithClock(func() time.Time { return now })

			got, renewed, err := m.EnsureValid(context.Background(), &tt.cur)
			if err != nil {
				t.Fatalf("EnsureValid() error = %v", err)
			}
			if renewed != tt.wantRenewed {
				t.Errorf("renewed = %v, want %v", renewed, tt.wantRenewed)
			}
			if tt.wantRenewed {
				if got != fresh {
					t.Errorf("EnsureValid() = %+v, want fresh credential", got)
				}
				if ex.calls != 1 {
					t.Errorf("Authenticate calls = %d, want 1", ex.calls)
				}
			} else {
				if got != tt.cur {
					t.Errorf("EnsureValid() = %+v, want unchanged %+v", got, tt.cur)
				}
				if ex.calls != 0 {
					t.Errorf("Authenticate calls = %d, want 0", ex.calls)
				}
			}
		})
	}
}

func TestEnsureValid_NilCached(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	ex := &fakeExchanger{cred: Credential{Token: "fresh", ExpiresAt: now.Add(time.Hour)}}
	m := NewManager(ex).WithClock(func() time.Time { return now })

	got, renewed, err := m.EnsureValid(context.Background(), nil)
	if err != nil {
		t.Fatalf("EnsureValid(nil) error = %v", err)
	}
	if !renewed || got.Token != "fresh" {
		t.Errorf("EnsureValid(nil) = %+v, renewed %v; want fresh credential", got, renewed)
	}
}

func TestEnsureValid_Failures(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	stale := Credential{Token: "old", ExpiresAt: now}

	tests := []struct {
		name string
		ex   *fakeExchanger
	}{
		{"exchange error", &fakeExchanger{err: errors.New("NotAuthorizedException")}},
		{"empty token", &fakeExchanger{cred: Credential{ExpiresAt: now.Add(time.Hour)}}},
		{"expired on arrival", &fakeExchanger{cred: Credential{Token: "t", ExpiresAt: now.Add(-time.Second)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(tt.ex).WithClock(func() time.Time { return now })
			got, renewed, err := m.EnsureValid(context.Background(), &stale)
			if !errors.Is(err, ErrAuthFailed) {
				t.Errorf("EnsureValid() error = %v, want ErrAuthFailed", err)
			}
			if renewed {
				t.Error("renewed = true on failure")
			}
			if got != stale {
				t.Errorf("EnsureValid() = %+v, want previous credential", got)
			}
		})
	}
}
