// Package catalog defines the country-catalog domain: the entities the
// loading kernel fetches, the shared application state, and the
// per-entity interactors that drive loading.
package catalog

import "slices"

// Country is one row of the catalog list.
type Country struct {
	Code       string // ISO 3166-1 alpha-2
	Name       string
	Region     string
	Population int64
	FlagURL    string
}

// Equal reports field-wise equality.
func (c Country) Equal(other Country) bool {
	return c == other
}

// CountryDetail is the full record fetched per country.
type CountryDetail struct {
	Code       string
	Name       string
	Capital    string
	Region     string
	Subregion  string
	Population int64
	Area       float64
	Languages  []string // sorted
	Currencies []string // sorted
}

// Equal reports field-wise equality including slice contents.
func (d CountryDetail) Equal(other CountryDetail) bool {
	return d.Code == other.Code &&
		d.Name == other.Name &&
		d.Capital == other.Capital &&
		d.Region == other.Region &&
		d.Subregion == other.Subregion &&
		d.Population == other.Population &&
		d.Area == other.Area &&
		slices.Equal(d.Languages, other.Languages) &&
		slices.Equal(d.Currencies, other.Currencies)
}

// Flag is a fetched flag image.
type Flag struct {
	Code        string
	URL         string
	ContentType string
	Data        []byte
}

// Equal reports equality by code and content.
func (f Flag) Equal(other Flag) bool {
	return f.Code == other.Code &&
		f.URL == other.URL &&
		f.ContentType == other.ContentType &&
		slices.Equal(f.Data, other.Data)
}
