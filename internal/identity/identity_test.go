package identity

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"bilancio/internal/core"
)

func TestFixedResolver(t *testing.T) {
	k, err := Fixed(FixedKey).Resolve(context.Background())
	if err != nil || k != FixedKey {
		t.Fatalf("expected %s, got %s (err=%v)", FixedKey, k, err)
	}
	if _, err := Fixed("").Resolve(context.Background()); !errors.Is(err, core.ErrMissingIdentity) {
		t.Fatalf("expected ErrMissingIdentity, got %v", err)
	}
}

func TestSessionResolverGeneratesOnce(t *testing.T) {
	storage := NewMemoryStorage()
	calls := 0
	s := NewSession(storage)
	s.generate = func() string {
		calls++
		return "generated-id"
	}

	for i := 0; i < 3; i++ {
		k, err := s.Resolve(context.Background())
		if err != nil || k != "generated-id" {
			t.Fatalf("resolve %d: got %q (err=%v)", i, k, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one generation, got %d", calls)
	}
	if v, ok, _ := storage.Get(context.Background(), StorageKey); !ok || v != "generated-id" {
		t.Fatalf("expected id in storage, got %q", v)
	}
}

func TestSessionResolverUsesStoredID(t *testing.T) {
	storage := NewMemoryStorage()
	_ = storage.Set(context.Background(), StorageKey, "existing")
	k, err := NewSession(storage).Resolve(context.Background())
	if err != nil || k != "existing" {
		t.Fatalf("expected stored id, got %q (err=%v)", k, err)
	}
}

func TestNewSessionIDIsUUID(t *testing.T) {
	a, b := NewSessionID(), NewSessionID()
	if a == b {
		t.Fatalf("expected distinct ids")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("expected uuid, got %q", a)
	}
}

func TestFileStoragePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	ctx := context.Background()

	k1, err := NewSession(NewFileStorage(path)).Resolve(ctx)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	k2, err := NewSession(NewFileStorage(path)).Resolve(ctx)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if k1 != k2 {
		t.Fatalf("session id changed across storage instances: %s vs %s", k1, k2)
	}
}

func TestHeaderExtractor(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		value   string
		want    Key
		wantErr bool
	}{
		{"default header", "", "abc", "abc", false},
		{"custom header", "X-Owner-Key", "xyz", "xyz", false},
		{"missing", "", "", "", true},
		{"blank", "", "   ", "", true},
		{"too long", "", strings.Repeat("a", 200), "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/expenses", nil)
			name := tc.header
			if name == "" {
				name = DefaultHeader
			}
			if tc.value != "" {
				r.Header.Set(name, tc.value)
			}
			got, err := HeaderExtractor{Header: tc.header}.Extract(r)
			if tc.wantErr {
				if !errors.Is(err, core.ErrMissingIdentity) {
					t.Fatalf("expected ErrMissingIdentity, got %v", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("expected %q, got %q (err=%v)", tc.want, got, err)
			}
		})
	}
}

func TestFixedExtractorIgnoresHeader(t *testing.T) {
	r := httptest.NewRequest("GET", "/expenses", nil)
	r.Header.Set(DefaultHeader, "someone-else")
	got, err := FixedExtractor{Key: FixedKey}.Extract(r)
	if err != nil || got != FixedKey {
		t.Fatalf("expected fixed key, got %q (err=%v)", got, err)
	}
}

func TestContextRoundTrip(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("expected no key in empty context")
	}
	k, ok := FromContext(WithKey(context.Background(), "abc"))
	if !ok || k != "abc" {
		t.Fatalf("expected abc, got %q", k)
	}
}
