package catalog

import (
	"context"
	"time"

	"git.home.luguber.info/inful/loadkit/internal/fetch"
	"git.home.luguber.info/inful/loadkit/internal/lazyseq"
	"git.home.luguber.info/inful/loadkit/internal/loadable"
	"git.home.luguber.info/inful/loadkit/internal/statestore"
)

// SummaryScopeCountries is the freshness-flag scope for the full list.
const SummaryScopeCountries = "countries"

// Store is the persistence collaborator contract the interactors need:
// fetch by criteria, store, and existence checks. Implemented by the
// SQLite store and by test fakes.
type Store interface {
	HasSummary(ctx context.Context, scope string) (bool, error)
	MarkSummary(ctx context.Context, scope string) error
	QueryCountries(ctx context.Context) (*lazyseq.Sequence[Country], error)
	WriteCountries(ctx context.Context, countries []Country) error

	HasDetail(ctx context.Context, code string) (bool, error)
	GetDetail(ctx context.Context, code string) (CountryDetail, bool, error)
	WriteDetail(ctx context.Context, detail CountryDetail) error

	HasFlag(ctx context.Context, code string) (bool, error)
	GetFlag(ctx context.Context, code string) (Flag, bool, error)
	WriteFlag(ctx context.Context, flag Flag) error
}

// Client is the transport collaborator contract.
type Client interface {
	Countries(ctx context.Context) ([]Country, error)
	Detail(ctx context.Context, code string) (CountryDetail, error)
	Flag(ctx context.Context, url string) (data []byte, contentType string, err error)
}

// Interactors drive the per-entity load pipelines. They own neither the
// subjects (callers do) nor the collaborators (the bootstrap does).
type Interactors struct {
	orch   *fetch.Orchestrator
	store  Store
	client Client
	app    *statestore.Store[State]
}

// NewInteractors wires the interactors to their collaborators.
func NewInteractors(orch *fetch.Orchestrator, store Store, client Client, app *statestore.Store[State]) *Interactors {
	return &Interactors{orch: orch, store: store, client: client, app: app}
}

// Subject constructors with the right equality per entity.

// NewListSubject creates a subject for the country list.
func NewListSubject() *loadable.Subject[*lazyseq.Sequence[Country]] {
	return loadable.NewSubject(func(a, b *lazyseq.Sequence[Country]) bool {
		if a == nil || b == nil {
			return a == b
		}
		return lazyseq.Equal(a, b, Country.Equal)
	})
}

// NewDetailSubject creates a subject for one country's detail record.
func NewDetailSubject() *loadable.Subject[CountryDetail] {
	return loadable.NewSubject(CountryDetail.Equal)
}

// NewFlagSubject creates a subject for one country's flag image.
func NewFlagSubject() *loadable.Subject[Flag] {
	return loadable.NewSubject(Flag.Equal)
}

// LoadCountries populates the list subject: served from the local store
// when the full list has ever been fetched, otherwise fetched remotely,
// persisted, and published as a snapshot sequence over the stored rows.
// With force set the local store is bypassed and the list is refetched.
func (i *Interactors) LoadCountries(ctx context.Context, subject *loadable.Subject[*lazyseq.Sequence[Country]], force bool) loadable.Loadable[*lazyseq.Sequence[Country]] {
	p := fetch.Pipeline[[]Country, *lazyseq.Sequence[Country]]{
		Entity: "countries",
		CheckCache: func(ctx context.Context) (*lazyseq.Sequence[Country], bool, error) {
			if force {
				return nil, false, nil
			}
			fresh := statestore.Get(i.app, LensCountriesLoaded)
			if !fresh {
				persisted, err := i.store.HasSummary(ctx, SummaryScopeCountries)
				if err != nil {
					return nil, false, err
				}
				if !persisted {
					return nil, false, nil
				}
				// The store remembers a full load from an earlier session.
				statestore.Set(i.app, LensCountriesLoaded, true)
			}
			seq, err := i.store.QueryCountries(ctx)
			if err != nil {
				return nil, false, err
			}
			return seq, true, nil
		},
		Fetch: i.client.Countries,
		Persist: func(ctx context.Context, countries []Country) (*lazyseq.Sequence[Country], error) {
			if err := i.store.WriteCountries(ctx, countries); err != nil {
				return nil, err
			}
			if err := i.store.MarkSummary(ctx, SummaryScopeCountries); err != nil {
				return nil, err
			}
			i.app.Update(func(s State) State {
				s.CountriesLoaded = true
				s.LastRefresh = time.Now()
				return s
			})
			return i.store.QueryCountries(ctx)
		},
	}
	return fetch.Run(ctx, i.orch, subject, p)
}

// LoadDetail populates a detail subject for the given country code.
func (i *Interactors) LoadDetail(ctx context.Context, subject *loadable.Subject[CountryDetail], code string) loadable.Loadable[CountryDetail] {
	p := fetch.Pipeline[CountryDetail, CountryDetail]{
		Entity: "detail",
		CheckCache: func(ctx context.Context) (CountryDetail, bool, error) {
			detail, ok, err := i.store.GetDetail(ctx, code)
			if err != nil || !ok {
				return CountryDetail{}, false, err
			}
			return detail, true, nil
		},
		Fetch: func(ctx context.Context) (CountryDetail, error) {
			return i.client.Detail(ctx, code)
		},
		Persist: func(ctx context.Context, detail CountryDetail) (CountryDetail, error) {
			if err := i.store.WriteDetail(ctx, detail); err != nil {
				return CountryDetail{}, err
			}
			stored, ok, err := i.store.GetDetail(ctx, code)
			if err != nil {
				return CountryDetail{}, err
			}
			if !ok {
				return detail, nil
			}
			return stored, nil
		},
	}
	return fetch.Run(ctx, i.orch, subject, p)
}

// LoadFlag populates a flag subject for the given country.
func (i *Interactors) LoadFlag(ctx context.Context, subject *loadable.Subject[Flag], country Country) loadable.Loadable[Flag] {
	p := fetch.Pipeline[Flag, Flag]{
		Entity: "flag",
		CheckCache: func(ctx context.Context) (Flag, bool, error) {
			flag, ok, err := i.store.GetFlag(ctx, country.Code)
			if err != nil || !ok {
				return Flag{}, false, err
			}
			return flag, true, nil
		},
		Fetch: func(ctx context.Context) (Flag, error) {
			data, contentType, err := i.client.Flag(ctx, country.FlagURL)
			if err != nil {
				return Flag{}, err
			}
			return Flag{
				Code:        country.Code,
				URL:         country.FlagURL,
				ContentType: contentType,
				Data:        data,
			}, nil
		},
		Persist: func(ctx context.Context, flag Flag) (Flag, error) {
			if err := i.store.WriteFlag(ctx, flag); err != nil {
				return Flag{}, err
			}
			stored, ok, err := i.store.GetFlag(ctx, country.Code)
			if err != nil {
				return Flag{}, err
			}
			if !ok {
				return flag, nil
			}
			return stored, nil
		},
	}
	return fetch.Run(ctx, i.orch, subject, p)
}
