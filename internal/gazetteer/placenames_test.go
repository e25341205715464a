package gazetteer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessPlaceNames_Basic(t *testing.T) {
	g := load(t)

	n, ok := g.ProcessPlaceNames("Nashua", "Hillsborough", "New Hampshire", "United States", false)
	require.True(t, ok)
	assert.Equal(t, "Nashua", n.City)
	assert.Equal(t, "Hillsborough", n.County)
	assert.Equal(t, "NH", n.State)
	assert.Equal(t, "USA", n.Country)
	assert.Equal(t, "United States", n.LongCountry)
}

func TestProcessPlaceNames_Rejections(t *testing.T) {
	g := load(t)

	for _, city := range []string{
		"Paris 04",
		"Sunset Trailer Park",
		"Oakwood Apartment Complex",
		"Elm Street Subdivision",
		"Fairview (historical)",
	} {
		_, ok := g.ProcessPlaceNames(city, "", "", "USA", false)
		assert.False(t, ok, "city %q", city)
	}
}

func TestProcessPlaceNames_InvertedOrder(t *testing.T) {
	g := load(t)

	n, ok := g.ProcessPlaceNames("Placid, Lake", "Essex", "New York", "United States", false)
	require.True(t, ok)
	assert.Equal(t, "Lake Placid", n.City)
	assert.Equal(t, "Placid", n.Variant)
}

func TestProcessPlaceNames_PrefixVariant(t *testing.T) {
	g := load(t)

	n, ok := g.ProcessPlaceNames("Mount Washington", "Coos", "NH", "USA", false)
	require.True(t, ok)
	assert.Equal(t, "Mount Washington", n.City)
	assert.Equal(t, "Washington", n.Variant)
}

func TestProcessPlaceNames_HTMLEntities(t *testing.T) {
	g := load(t)

	n, ok := g.ProcessPlaceNames("Coeur d&#39;Alene", "Kootenai", "Idaho", "United States", true)
	require.True(t, ok)
	assert.Equal(t, "Coeur d'Alene", n.City)
}

func TestProcessPlaceNames_SuffixCleanup(t *testing.T) {
	g := load(t)

	n, ok := g.ProcessPlaceNames("Nagoya", "", "Aichi Prefecture", "Japan", false)
	require.True(t, ok)
	assert.Equal(t, "Aichi", n.State)
	assert.Equal(t, "JPN", n.Country)

	n, ok = g.ProcessPlaceNames("Nashua", "Hillsborough County", "NH", "USA", false)
	require.True(t, ok)
	assert.Equal(t, "Hillsborough", n.County)
}

func TestProcessPlaceNames_UnknownCountry(t *testing.T) {
	g := load(t)

	n, ok := g.ProcessPlaceNames("Somewhere", "", "", "Ruritania", false)
	require.True(t, ok)
	assert.Equal(t, "XX?", n.Country)
	assert.Equal(t, "Ruritania", n.LongCountry)
}

func TestProcessPlaceNames_IndependentCity(t *testing.T) {
	g := load(t)

	// A Virginia independent city listed as its own county: the county
	// entry is redundant and dropped.
	n, ok := g.ProcessPlaceNames("Richmond", "City of Richmond", "Virginia", "United States", false)
	require.True(t, ok)
	assert.Empty(t, n.County)

	// A "City of" county covering some other place keeps the prefix.
	n, ok = g.ProcessPlaceNames("Bon Air", "City of Richmond", "Virginia", "United States", false)
	require.True(t, ok)
	assert.Equal(t, "City of Richmond", n.County)
}

func TestStandardizeShortCountyName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Mchenry", "McHenry"},
		{"MCLEAN", "McLean"},
		{"dekalb", "DeKalb"},
		{"Desoto", "DeSoto"},
		{"DUPAGE", "DuPage"},
		{"Skagway-Hoonah-Angoon", "Skagway-Hoonah-Angoon"},
		{"Hillsborough", "Hillsborough"},
		{"", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, standardizeShortCountyName(tc.in), "input %q", tc.in)
	}
}

func TestAdjustUSCountyName(t *testing.T) {
	tests := []struct {
		county, state, want string
	}{
		{"Hillsborough", "NH", "Hillsborough County"},
		{"Orleans", "LA", "Orleans Parish"},
		{"Juneau", "AK", "Juneau Borough"},
		{"Nome", "AK", "Nome Census Area"},
		{"Yukon-Koyukuk", "AK", "Yukon-Koyukuk Census Area"},
		{"Washington", "DC", "Washington"},
		{"Hillsborough County", "NH", "Hillsborough County"},
		{"City of Richmond", "VA", "City of Richmond"},
		{"", "NH", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, AdjustUSCountyName(tc.county, tc.state), "county %q", tc.county)
	}
}
