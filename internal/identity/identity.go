// Package identity resolves the owner key that scopes every transaction.
//
// Clients resolve a key once and attach it to each request; the server reads
// it back from the request and passes it explicitly to the service layer.
package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"bilancio/internal/core"
)

const (
	// DefaultHeader carries the owner key on every API request.
	DefaultHeader = "X-Session-Id"
	// FixedKey is the owner used by single-tenant deployments.
	FixedKey Key = "00000000-0000-0000-0000-000000000001"
	// StorageKey is the client storage slot holding the session id.
	StorageKey = "sessionId"
)

// Key is an opaque owner key.
type Key string

func (k Key) String() string { return string(k) }

// Resolver produces the owner key on the client side.
type Resolver interface {
	Resolve(ctx context.Context) (Key, error)
}

// Fixed always resolves to the same key.
type Fixed Key

func (f Fixed) Resolve(context.Context) (Key, error) {
	if f == "" {
		return "", core.ErrMissingIdentity
	}
	return Key(f), nil
}

// NewSessionID returns a fresh random 128-bit id in canonical UUID form.
func NewSessionID() string {
	return uuid.NewString()
}

// Session resolves a per-client id generated on first use and kept in
// persistent client storage afterwards.
type Session struct {
	storage  Storage
	generate func() string
}

func NewSession(storage Storage) *Session {
	return &Session{storage: storage, generate: NewSessionID}
}

// Resolve returns the stored session id, creating and storing one if absent.
func (s *Session) Resolve(ctx context.Context) (Key, error) {
	id, ok, err := s.storage.Get(ctx, StorageKey)
	if err != nil {
		return "", err
	}
	if ok && strings.TrimSpace(id) != "" {
		return Key(id), nil
	}
	id = s.generate()
	if err := s.storage.Set(ctx, StorageKey, id); err != nil {
		return "", err
	}
	return Key(id), nil
}

// Extractor resolves the owner key of an incoming request.
type Extractor interface {
	Extract(r *http.Request) (Key, error)
}

// HeaderExtractor reads the owner key from a request header.
type HeaderExtractor struct {
	Header string
}

func (h HeaderExtractor) Extract(r *http.Request) (Key, error) {
	name := h.Header
	if name == "" {
		name = DefaultHeader
	}
	v := strings.TrimSpace(r.Header.Get(name))
	if v == "" {
		return "", core.ErrMissingIdentity
	}
	if len(v) > 128 {
		return "", errors.Join(core.ErrMissingIdentity, errors.New("owner key too long"))
	}
	return Key(v), nil
}

// FixedExtractor ignores the request and returns one key for everybody.
type FixedExtractor struct {
	Key Key
}

func (f FixedExtractor) Extract(*http.Request) (Key, error) {
	if f.Key == "" {
		return "", core.ErrMissingIdentity
	}
	return f.Key, nil
}

type contextKey struct{}

// WithKey returns a context carrying k.
func WithKey(ctx context.Context, k Key) context.Context {
	return context.WithValue(ctx, contextKey{}, k)
}

// FromContext returns the key stored by WithKey.
func FromContext(ctx context.Context) (Key, bool) {
	k, ok := ctx.Value(contextKey{}).(Key)
	return k, ok && k != ""
}
