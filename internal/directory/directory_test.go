package directory

import (
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureFS(t *testing.T, theaters, grants string) fstest.MapFS {
	t.Helper()
	theaterSchema, err := fs.ReadFile(embedded, TheaterSchema)
	require.NoError(t, err)
	grantSchema, err := fs.ReadFile(embedded, GrantSchema)
	require.NoError(t, err)

	return fstest.MapFS{
		TheatersFile:  {Data: []byte(theaters)},
		GrantsFile:    {Data: []byte(grants)},
		TheaterSchema: {Data: theaterSchema},
		GrantSchema:   {Data: grantSchema},
	}
}

const validGrants = `grants:
- id: 1
  name: Small Project Grant
  category: regional
  type: project
  deadline: "2025-08-15"
  amount: $500 - $5,000
  url: https://example.org/grant
`

func TestLoad_Embedded(t *testing.T) {
	reg, err := Load()
	require.NoError(t, err)

	theaters, grants := reg.Counts()
	assert.Equal(t, 10, theaters)
	assert.Equal(t, 20, grants)

	magic, ok := reg.Theater("magic-theatre")
	require.True(t, ok)
	assert.Equal(t, "Magic Theatre", magic.Name)
	assert.Equal(t, SizeMajor, magic.Size)
	assert.Contains(t, magic.Genres, "new-works")
}

func TestLoadFS_SkipsInvalidAndDuplicateEntries(t *testing.T) {
	theaters := `theaters:
- id: magic-theatre
  name: Magic Theatre
  status: open
  size: major
  deadline: "2025-04-30"
  deadline_type: fixed
  website: https://magictheatre.org
- id: bad-status
  name: Bad Status
  status: maybe
  size: major
  deadline: rolling
  deadline_type: rolling
  website: https://example.org
- id: typo-theater
  name: Typo Theater
  status: open
  size: major
  deadline: rolling
  deadline_type: rolling
  website: https://example.org
  seats: 99
- id: magic-theatre
  name: Magic Theatre Again
  status: closed
  size: major
  deadline: rolling
  deadline_type: rolling
  website: https://magictheatre.org
`
	reg, err := LoadFS(fixtureFS(t, theaters, validGrants))
	require.NoError(t, err)

	list := reg.Theaters(TheaterFilter{})
	require.Len(t, list, 1)
	assert.Equal(t, "Magic Theatre", list[0].Name)
	assert.Equal(t, StatusOpen, list[0].Status)
}

func TestLoadFS_Errors(t *testing.T) {
	t.Run("unknown top-level key", func(t *testing.T) {
		_, err := LoadFS(fixtureFS(t, "theatres: []\n", validGrants))
		assert.ErrorContains(t, err, "unknown top-level key")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadFS(fixtureFS(t, "theaters: [\n", validGrants))
		assert.ErrorContains(t, err, "failed to parse")
	})

	t.Run("missing file", func(t *testing.T) {
		fsys := fixtureFS(t, "theaters: []\n", validGrants)
		delete(fsys, GrantsFile)
		_, err := LoadFS(fsys)
		assert.ErrorContains(t, err, "failed to read data/grants.yaml")
	})
}

func testRegistry() *Registry {
	return NewRegistry(
		[]Theater{
			{ID: "sf-playhouse", Name: "San Francisco Playhouse", Status: StatusOpen, Size: SizeMajor, Genres: []string{"musical", "contemporary"}, Fee: 0},
			{ID: "cutting-ball", Name: "Cutting Ball Theater", Status: StatusOpeningSoon, Size: SizeSmallFringe, Genres: []string{"experimental"}, Fee: 15, Description: "Avant-garde work"},
			{ID: "magic-theatre", Name: "Magic Theatre", Status: StatusOpen, Size: SizeMajor, Genres: []string{"new-works"}, Fee: 25},
			{ID: "aurora", Name: "Aurora Theatre", Status: StatusClosed, Size: SizeMidSize, Genres: []string{"classical"}, Fee: 60},
		},
		[]Grant{
			{ID: 2, Name: "City Grant", Category: "municipal", Type: "project", Deadline: "2025-11-06"},
			{ID: 1, Name: "CA$H Grant", Organization: "Theatre Bay Area", Category: "regional", Type: "project", Deadline: "2025-08-15"},
			{ID: 3, Name: "Fellowship", Category: "fellowship", Type: "artist", Deadline: "2025-08-15"},
		},
	)
}

func theaterIDs(ts []Theater) []string {
	ids := make([]string, 0, len(ts))
	for _, t := range ts {
		ids = append(ids, t.ID)
	}
	return ids
}

func TestRegistry_TheaterFilters(t *testing.T) {
	reg := testRegistry()

	tests := []struct {
		name   string
		filter TheaterFilter
		want   []string
	}{
		{"all sorted by name", TheaterFilter{}, []string{"aurora", "cutting-ball", "magic-theatre", "sf-playhouse"}},
		{"all keyword", TheaterFilter{Status: "all", Size: "all"}, []string{"aurora", "cutting-ball", "magic-theatre", "sf-playhouse"}},
		{"status", TheaterFilter{Status: StatusOpen}, []string{"magic-theatre", "sf-playhouse"}},
		{"size", TheaterFilter{Size: SizeMidSize}, []string{"aurora"}},
		{"genre ignores case", TheaterFilter{Genre: "Musical"}, []string{"sf-playhouse"}},
		{"free", TheaterFilter{Fee: FeeFree}, []string{"sf-playhouse"}},
		{"under 25", TheaterFilter{Fee: FeeUnder25}, []string{"cutting-ball"}},
		{"under 50", TheaterFilter{Fee: FeeUnder50}, []string{"magic-theatre"}},
		{"50 plus", TheaterFilter{Fee: Fee50Plus}, []string{"aurora"}},
		{"query matches description", TheaterFilter{Query: "avant"}, []string{"cutting-ball"}},
		{"combined", TheaterFilter{Status: StatusOpen, Size: SizeMajor, Genre: "new-works"}, []string{"magic-theatre"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, theaterIDs(reg.Theaters(tt.filter)))
		})
	}
}

func TestRegistry_Grants(t *testing.T) {
	reg := testRegistry()

	all := reg.Grants(GrantFilter{})
	require.Len(t, all, 3)
	assert.Equal(t, []int{1, 3, 2}, []int{all[0].ID, all[1].ID, all[2].ID})

	project := reg.Grants(GrantFilter{Type: "project"})
	assert.Len(t, project, 2)

	byOrg := reg.Grants(GrantFilter{Query: "bay area"})
	require.Len(t, byOrg, 1)
	assert.Equal(t, 1, byOrg[0].ID)

	assert.Empty(t, reg.Grants(GrantFilter{Category: "federal"}))
}

func TestRegistry_TheaterLookup(t *testing.T) {
	reg := testRegistry()

	got, ok := reg.Theater("aurora")
	require.True(t, ok)
	assert.Equal(t, "Aurora Theatre", got.Name)

	_, ok = reg.Theater("missing")
	assert.False(t, ok)
}
