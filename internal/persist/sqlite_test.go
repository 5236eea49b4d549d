package persist

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/loadkit/internal/catalog"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

var storedCountries = []catalog.Country{
	{Code: "DK", Name: "Denmark", Region: "Europe", Population: 5900000, FlagURL: "https://flags/dk.png"},
	{Code: "NO", Name: "Norway", Region: "Europe", Population: 5400000, FlagURL: "https://flags/no.png"},
}

func TestSummaryFlagSurvivesRoundTrip(t *testing.T) {
	store := newTestStore(t)

	has, err := store.HasSummary(t.Context(), catalog.SummaryScopeCountries)
	require.NoError(t, err)
	assert.False(t, has, "fresh database must have no summary")

	require.NoError(t, store.MarkSummary(t.Context(), catalog.SummaryScopeCountries))
	// Marking twice is an upsert, not an error.
	require.NoError(t, store.MarkSummary(t.Context(), catalog.SummaryScopeCountries))

	has, err = store.HasSummary(t.Context(), catalog.SummaryScopeCountries)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestWriteCountriesReplacesList(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.WriteCountries(t.Context(), storedCountries))
	require.NoError(t, store.WriteCountries(t.Context(), storedCountries[:1]))

	seq, err := store.QueryCountries(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, seq.Len(), "a rewrite must replace the list, not append")

	got, err := seq.Element(0)
	require.NoError(t, err)
	assert.Equal(t, "DK", got.Code)
}

func TestQueryCountriesIsASnapshot(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.WriteCountries(t.Context(), storedCountries))

	seq, err := store.QueryCountries(t.Context())
	require.NoError(t, err)
	require.Equal(t, 2, seq.Len())

	first, err := seq.Element(0)
	require.NoError(t, err)
	assert.Equal(t, "DK", first.Code)

	// Later writes do not change what the snapshot already resolved, and
	// the index set stays the one captured at query time.
	require.NoError(t, store.WriteCountries(t.Context(), []catalog.Country{
		{Code: "DK", Name: "Kingdom of Denmark", Region: "Europe", Population: 5900000, FlagURL: "https://flags/dk.png"},
		{Code: "NO", Name: "Norway", Region: "Europe", Population: 5400000, FlagURL: "https://flags/no.png"},
	}))

	again, err := seq.Element(0)
	require.NoError(t, err)
	assert.Equal(t, "Denmark", again.Name, "resolved elements are memoized")
	assert.Equal(t, 2, seq.Len())
}

func TestGetCountry(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.WriteCountries(t.Context(), storedCountries))

	c, ok, err := store.GetCountry(t.Context(), "NO")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Norway", c.Name)

	_, ok, err = store.GetCountry(t.Context(), "XX")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDetailRoundTrip(t *testing.T) {
	store := newTestStore(t)

	detail := catalog.CountryDetail{
		Code:       "NO",
		Name:       "Norway",
		Capital:    "Oslo",
		Region:     "Europe",
		Subregion:  "Northern Europe",
		Population: 5400000,
		Area:       323802,
		Languages:  []string{"Norwegian Bokmål", "Norwegian Nynorsk"},
		Currencies: []string{"NOK"},
	}

	has, err := store.HasDetail(t.Context(), "NO")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, store.WriteDetail(t.Context(), detail))

	has, err = store.HasDetail(t.Context(), "NO")
	require.NoError(t, err)
	assert.True(t, has)

	got, ok, err := store.GetDetail(t.Context(), "NO")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(detail))

	// Rewriting updates in place.
	detail.Capital = "Oslo kommune"
	require.NoError(t, store.WriteDetail(t.Context(), detail))
	got, _, err = store.GetDetail(t.Context(), "NO")
	require.NoError(t, err)
	assert.Equal(t, "Oslo kommune", got.Capital)
}

func TestFlagRoundTrip(t *testing.T) {
	store := newTestStore(t)

	flag := catalog.Flag{
		Code:        "NO",
		URL:         "https://flags/no.png",
		ContentType: "image/png",
		Data:        []byte{0x89, 0x50, 0x4e, 0x47},
	}

	has, err := store.HasFlag(t.Context(), "NO")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, store.WriteFlag(t.Context(), flag))

	has, err = store.HasFlag(t.Context(), "NO")
	require.NoError(t, err)
	assert.True(t, has)

	got, ok, err := store.GetFlag(t.Context(), "NO")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(flag))
}
