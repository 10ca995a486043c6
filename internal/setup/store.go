package setup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

// Errors reported to callers of Store.
var (
	ErrEmptyName          = errors.New("setup name is empty")
	ErrNotFound           = errors.New("setup not found")
	ErrCorruptRecord      = errors.New("setup record is corrupt")
	ErrStorageFull        = errors.New("setup storage is full")
	ErrStorageUnavailable = errors.New("setup storage is unavailable")
)

// Errors a Backend returns.
var (
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrNotExist      = errors.New("key does not exist")
	ErrUnavailable   = errors.New("storage unavailable")
)

// Backend is a key-granular string store. Every call is synchronous and a
// single Set or Remove is atomic.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Len(ctx context.Context) (int, error)
}

// Support is the result of probing the backend.
type Support int

const (
	Supported Support = iota
	// Full means writes fail on quota but saved setups exist; deleting some
	// frees room.
	Full
	// Unavailable means there is no usable storage at all.
	Unavailable
)

func (s Support) String() string {
	switch s {
	case Supported:
		return "supported"
	case Full:
		return "full"
	default:
		return "unavailable"
	}
}

const probeKey = "__storage_test__"

// Entry is one row of the saved setups list.
type Entry struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	TimeStamp int64  `json:"timeStamp"`
}

// SaveResult describes a completed save.
type SaveResult struct {
	Key     string
	Name    string
	Updated bool
}

// Store saves, lists, loads and deletes product setups.
type Store struct {
	backend  Backend
	logger   *slog.Logger
	now      func() time.Time
	disabled atomic.Bool
	full     atomic.Bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for skipped records.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock replaces time.Now for save timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns a Store over backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Probe writes and removes a test key to find out whether storage works. A
// quota failure while setups are stored means the store is full rather than
// missing. An unavailable store switches to a disabled no-op mode.
func (s *Store) Probe(ctx context.Context) Support {
	err := s.backend.Set(ctx, probeKey, probeKey)
	if err == nil {
		err = s.backend.Remove(ctx, probeKey)
	}
	if err == nil {
		s.disabled.Store(false)
		s.full.Store(false)
		return Supported
	}

	if errors.Is(err, ErrQuotaExceeded) {
		if n, lenErr := s.backend.Len(ctx); lenErr == nil && n > 0 {
			s.disabled.Store(false)
			s.full.Store(true)
			return Full
		}
	}

	s.logger.Warn("setup storage unavailable", "error", err)
	s.disabled.Store(true)
	return Unavailable
}

// Supported probes the backend and reports whether setups can be persisted.
func (s *Store) Supported(ctx context.Context) bool {
	return s.Probe(ctx) != Unavailable
}

// Status returns the last known state without touching the backend.
func (s *Store) Status() Support {
	switch {
	case s.disabled.Load():
		return Unavailable
	case s.full.Load():
		return Full
	default:
		return Supported
	}
}

// Save writes setup under the key derived from its name, replacing any record
// already stored there. The record gets a fresh timestamp, which moves it to
// the top of List.
func (s *Store) Save(ctx context.Context, setup ProductSetup) (SaveResult, error) {
	name := Sanitize(setup.Name)
	if name == "" {
		return SaveResult{}, ErrEmptyName
	}
	if s.disabled.Load() {
		return SaveResult{}, ErrStorageUnavailable
	}

	key := KeyFor(name)
	_, err := s.backend.Get(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotExist):
	default:
		return SaveResult{}, s.backendError("check setup", key, err)
	}
	updated := err == nil

	setup.Name = name
	setup.TimeStamp = s.now().UnixMilli()
	setup.Expenses = sanitizeExpenses(setup.Expenses)
	setup.Labor = sanitizeLabor(setup.Labor)

	body, err := json.Marshal(setup)
	if err != nil {
		return SaveResult{}, fmt.Errorf("encode setup %q: %w", key, err)
	}
	if err := s.backend.Set(ctx, key, string(body)); err != nil {
		return SaveResult{}, s.backendError("save setup", key, err)
	}

	s.full.Store(false)
	return SaveResult{Key: key, Name: name, Updated: updated}, nil
}

// List returns every stored setup, most recently saved first. Records that
// cannot be decoded are skipped.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	if s.disabled.Load() {
		return []Entry{}, nil
	}

	keys, err := s.backend.Keys(ctx, KeyPrefix)
	if err != nil {
		return nil, s.backendError("list setups", KeyPrefix, err)
	}

	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		setup, err := s.Load(ctx, key)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				s.logger.Warn("skipping setup record", "key", key, "error", err)
				continue
			}
			return nil, err
		}
		entries = append(entries, Entry{Key: key, Name: setup.Name, TimeStamp: setup.TimeStamp})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TimeStamp != entries[j].TimeStamp {
			return entries[i].TimeStamp > entries[j].TimeStamp
		}
		return entries[i].Key < entries[j].Key
	})
	return entries, nil
}

// Load returns the setup stored at key. A record that is missing or cannot be
// decoded is reported as ErrNotFound; the latter also matches ErrCorruptRecord.
func (s *Store) Load(ctx context.Context, key string) (ProductSetup, error) {
	if s.disabled.Load() {
		return ProductSetup{}, ErrStorageUnavailable
	}
	if !strings.HasPrefix(key, KeyPrefix) {
		return ProductSetup{}, fmt.Errorf("load setup %q: %w", key, ErrNotFound)
	}

	body, err := s.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotExist) {
			return ProductSetup{}, fmt.Errorf("load setup %q: %w", key, ErrNotFound)
		}
		return ProductSetup{}, s.backendError("load setup", key, err)
	}

	var setup ProductSetup
	if err := json.Unmarshal([]byte(body), &setup); err != nil {
		return ProductSetup{}, fmt.Errorf("load setup %q: %w: %w: %v", key, ErrNotFound, ErrCorruptRecord, err)
	}
	if err := setup.validate(); err != nil {
		return ProductSetup{}, fmt.Errorf("load setup %q: %w: %w: %v", key, ErrNotFound, ErrCorruptRecord, err)
	}
	return setup, nil
}

// Delete removes the setup at key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if s.disabled.Load() {
		return ErrStorageUnavailable
	}
	if err := s.backend.Remove(ctx, key); err != nil && !errors.Is(err, ErrNotExist) {
		return s.backendError("delete setup", key, err)
	}
	return nil
}

func (s *Store) backendError(op, key string, err error) error {
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		s.full.Store(true)
		return fmt.Errorf("%s %q: %w: %w", op, key, ErrStorageFull, err)
	case errors.Is(err, ErrUnavailable):
		return fmt.Errorf("%s %q: %w: %w", op, key, ErrStorageUnavailable, err)
	default:
		return fmt.Errorf("%s %q: %w", op, key, err)
	}
}

func sanitizeExpenses(items Indexed[Expense]) Indexed[Expense] {
	out := make(Indexed[Expense], len(items))
	for i, it := range items {
		it.Name = Sanitize(it.Name)
		out[i] = it
	}
	return out
}

func sanitizeLabor(items Indexed[Labor]) Indexed[Labor] {
	out := make(Indexed[Labor], len(items))
	for i, it := range items {
		it.Name = Sanitize(it.Name)
		out[i] = it
	}
	return out
}
