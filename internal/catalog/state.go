package catalog

import (
	"time"

	"git.home.luguber.info/inful/loadkit/internal/statestore"
)

// State is the shared application state the interactors consult and
// mutate through the store. It is a plain value; all access goes through
// the lenses below.
type State struct {
	// CountriesLoaded records whether the full list has ever been fetched
	// successfully (the coarse freshness flag).
	CountriesLoaded bool
	LastRefresh     time.Time
	// ConfigRevision is bumped by the config watcher on every reload.
	ConfigRevision int
}

// Lenses for the State fields. Kept as package variables so every
// consumer shares one accessor pair per field.
var (
	LensCountriesLoaded = statestore.Field(
		func(s State) bool { return s.CountriesLoaded },
		func(s State, v bool) State { s.CountriesLoaded = v; return s },
	)
	LensLastRefresh = statestore.Field(
		func(s State) time.Time { return s.LastRefresh },
		func(s State, v time.Time) State { s.LastRefresh = v; return s },
	)
	LensConfigRevision = statestore.Field(
		func(s State) int { return s.ConfigRevision },
		func(s State, v int) State { s.ConfigRevision = v; return s },
	)
)
