package setup

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/listprice/internal/fees"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore(t *testing.T, backend Backend) *Store {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	return NewStore(backend, WithClock(clock.now))
}

func sampleSetup(name string) ProductSetup {
	return ProductSetup{
		Name: name,
		Expenses: Indexed[Expense]{
			{Name: "clay", Qty: "2.00", Cost: "3.50"},
			{Name: "glaze", Qty: "1", Cost: ""},
		},
		Labor: Indexed[Labor]{
			{Name: "throwing", Hours: "1.50", Rate: "20.00"},
		},
		Shipping:  "5.00",
		Tax:       "7.52",
		AdFactor:  fees.OffsiteAdFactor,
		AdRate:    "15",
		TaxFactor: fees.IncomeTaxView,
		TaxRate:   "30.00",
	}
}

func TestKeyFor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "  Blue <Mug> ", want: "elpc_blueMug"},
		{in: "blue mug", want: "elpc_blueMug"},
		{in: "BLUE   MUG", want: "elpc_blueMug"},
		{in: "tall-vase_set", want: "elpc_tallVaseSet"},
		{in: "<>", want: ""},
		{in: "   ", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, KeyFor(tc.in))
		})
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Blue Mug", Sanitize("  Blue <Mug> "))
	assert.Equal(t, "a b", Sanitize("a \t\n b"))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, NewMemoryBackend(0))

	in := sampleSetup("  Blue <Mug> ")
	res, err := store.Save(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "elpc_blueMug", res.Key)
	assert.Equal(t, "Blue Mug", res.Name)
	assert.False(t, res.Updated)

	got, err := store.Load(ctx, res.Key)
	require.NoError(t, err)

	assert.Equal(t, "Blue Mug", got.Name)
	assert.NotZero(t, got.TimeStamp)
	got.Name, got.TimeStamp = in.Name, in.TimeStamp
	assert.Equal(t, in, got)
}

func TestSaveSameKeyOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, NewMemoryBackend(0))

	_, err := store.Save(ctx, sampleSetup("  Blue <Mug> "))
	require.NoError(t, err)
	_, err = store.Save(ctx, sampleSetup("Green Bowl"))
	require.NoError(t, err)

	second := sampleSetup("blue mug")
	second.Shipping = "9.99"
	res, err := store.Save(ctx, second)
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, "elpc_blueMug", res.Key)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "elpc_blueMug", entries[0].Key, "re-saved setup moves to the top")
	assert.Equal(t, "blue mug", entries[0].Name)
	assert.Equal(t, "elpc_greenBowl", entries[1].Key)

	got, err := store.Load(ctx, "elpc_blueMug")
	require.NoError(t, err)
	assert.Equal(t, "9.99", string(got.Shipping))
}

func TestSaveRejectsEmptyName(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(0)
	store := newTestStore(t, backend)

	_, err := store.Save(ctx, sampleSetup(" <> "))
	require.ErrorIs(t, err, ErrEmptyName)

	n, err := backend.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSaveSanitizesLineItemNames(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, NewMemoryBackend(0))

	in := sampleSetup("mug")
	in.Expenses[0].Name = "  <b>clay</b>  "
	_, err := store.Save(ctx, in)
	require.NoError(t, err)

	got, err := store.Load(ctx, "elpc_mug")
	require.NoError(t, err)
	assert.Equal(t, "bclay/b", got.Expenses[0].Name)
	assert.Equal(t, "  <b>clay</b>  ", in.Expenses[0].Name, "caller's setup is not modified")
}

func TestSaveQuotaExceededKeepsExistingRecords(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, NewMemoryBackend(600))

	_, err := store.Save(ctx, sampleSetup("first"))
	require.NoError(t, err)

	big := sampleSetup("second")
	big.Expenses = append(big.Expenses, Expense{Name: strings.Repeat("x", 1000), Qty: "1", Cost: "1"})
	_, err = store.Save(ctx, big)
	require.ErrorIs(t, err, ErrStorageFull)
	assert.False(t, errors.Is(err, ErrStorageUnavailable))
	assert.Equal(t, Full, store.Status())

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "first", entries[0].Name)

	require.NoError(t, store.Delete(ctx, "elpc_first"))
	_, err = store.Save(ctx, sampleSetup("third"))
	require.NoError(t, err)
	assert.Equal(t, Supported, store.Status())
}

func TestLoadMissingAndCorruptRecords(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(0)
	store := newTestStore(t, backend)

	_, err := store.Load(ctx, "elpc_nothing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.False(t, errors.Is(err, ErrCorruptRecord))

	require.NoError(t, backend.Set(ctx, "elpc_broken", "{not json"))
	_, err = store.Load(ctx, "elpc_broken")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, ErrCorruptRecord)

	require.NoError(t, backend.Set(ctx, "elpc_badMode", `{"name":"bad","adFactor":"sometimes"}`))
	_, err = store.Load(ctx, "elpc_badMode")
	require.ErrorIs(t, err, ErrCorruptRecord)

	_, err = store.Save(ctx, sampleSetup("good"))
	require.NoError(t, err)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "good", entries[0].Name)
}

func TestListIgnoresForeignKeys(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(0)
	store := newTestStore(t, backend)

	require.NoError(t, backend.Set(ctx, "theme", "dark"))
	_, err := store.Save(ctx, sampleSetup("mug"))
	require.NoError(t, err)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	_, err = store.Load(ctx, "theme")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, NewMemoryBackend(0))

	_, err := store.Save(ctx, sampleSetup("mug"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "elpc_mug"))
	require.NoError(t, store.Delete(ctx, "elpc_mug"))
	require.NoError(t, store.Delete(ctx, "elpc_neverSaved"))

	_, err = store.Load(ctx, "elpc_mug")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestProbe(t *testing.T) {
	ctx := context.Background()

	t.Run("supported", func(t *testing.T) {
		store := newTestStore(t, NewMemoryBackend(0))
		assert.Equal(t, Supported, store.Probe(ctx))
		assert.True(t, store.Supported(ctx))

		n, err := store.backend.Len(ctx)
		require.NoError(t, err)
		assert.Zero(t, n, "probe key is removed")
	})

	t.Run("full with saved setups", func(t *testing.T) {
		backend := NewMemoryBackend(20)
		require.NoError(t, backend.Set(ctx, "elpc_a", "0123456789"))
		store := newTestStore(t, backend)

		assert.Equal(t, Full, store.Probe(ctx))
		assert.True(t, store.Supported(ctx))
	})

	t.Run("quota error with nothing stored is unavailable", func(t *testing.T) {
		store := newTestStore(t, NewMemoryBackend(5))
		assert.Equal(t, Unavailable, store.Probe(ctx))
	})

	t.Run("unavailable disables the store", func(t *testing.T) {
		store := newTestStore(t, UnavailableBackend{})
		assert.Equal(t, Unavailable, store.Probe(ctx))
		assert.False(t, store.Supported(ctx))

		entries, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, entries)

		_, err = store.Save(ctx, sampleSetup("mug"))
		require.ErrorIs(t, err, ErrStorageUnavailable)
		require.ErrorIs(t, store.Delete(ctx, "elpc_mug"), ErrStorageUnavailable)
	})
}

func TestIndexedOrdersNumerically(t *testing.T) {
	var items Indexed[Expense]
	body := `{"10":{"name":"k"},"2":{"name":"c"},"0":{"name":"a"},"1":{"name":"b"}}`
	require.NoError(t, json.Unmarshal([]byte(body), &items))

	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"a", "b", "c", "k"}, names)

	out, err := json.Marshal(Indexed[Labor]{{Name: "x", Hours: "1", Rate: "2"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"0":{"name":"x","hours":"1","rate":"2"}}`, string(out))

	require.Error(t, json.Unmarshal([]byte(`{"first":{}}`), &items))
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	ms := func(ts time.Time) int64 { return ts.UnixMilli() }
	tests := []struct {
		name string
		ts   int64
		want string
	}{
		{name: "missing stamp", ts: 0, want: ""},
		{name: "future", ts: ms(now.Add(time.Hour)), want: "just now"},
		{name: "just now", ts: ms(now.Add(-30 * time.Second)), want: "just now"},
		{name: "one minute", ts: ms(now.Add(-time.Minute)), want: "1m ago"},
		{name: "minutes", ts: ms(now.Add(-5*time.Minute - 59*time.Second)), want: "5m ago"},
		{name: "hours", ts: ms(now.Add(-2 * time.Hour)), want: "2h ago"},
		{name: "days", ts: ms(now.Add(-3 * 24 * time.Hour)), want: "3d ago"},
		{name: "last day before date", ts: ms(now.Add(-dateAfter + time.Millisecond)), want: "29d ago"},
		{name: "old", ts: ms(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)), want: "2024-01-02"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatAge(tc.ts, now))
		})
	}
}
