// Package persist implements the persistence collaborator on SQLite:
// fetch by criteria, store, and existence checks for the country catalog,
// plus the coarse per-scope freshness flag.
package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/loadkit/internal/catalog"
	"git.home.luguber.info/inful/loadkit/internal/lazyseq"
)

// Store is the SQLite-backed catalog store.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens (or creates) the database and ensures the schema.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS summaries (
		scope TEXT PRIMARY KEY,
		loaded_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS countries (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		region TEXT NOT NULL,
		population INTEGER NOT NULL,
		flag_url TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS details (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		capital TEXT NOT NULL,
		region TEXT NOT NULL,
		subregion TEXT NOT NULL,
		population INTEGER NOT NULL,
		area REAL NOT NULL,
		languages TEXT NOT NULL,
		currencies TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS flags (
		code TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		content_type TEXT NOT NULL,
		data BLOB NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// HasSummary reports whether the scope has ever been fully loaded.
func (s *Store) HasSummary(ctx context.Context, scope string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var loadedAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT loaded_at FROM summaries WHERE scope = ?", scope,
	).Scan(&loadedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query summary: %w", err)
	}
	return true, nil
}

// MarkSummary records that the scope has been fully loaded.
func (s *Store) MarkSummary(ctx context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO summaries (scope, loaded_at) VALUES (?, ?) ON CONFLICT(scope) DO UPDATE SET loaded_at = excluded.loaded_at",
		scope, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("mark summary: %w", err)
	}
	return nil
}

// WriteCountries replaces the stored list in one transaction.
func (s *Store) WriteCountries(ctx context.Context, countries []catalog.Country) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM countries"); err != nil {
		return fmt.Errorf("clear countries: %w", err)
	}
	for _, c := range countries {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO countries (code, name, region, population, flag_url) VALUES (?, ?, ?, ?, ?)",
			c.Code, c.Name, c.Region, c.Population, c.FlagURL,
		)
		if err != nil {
			return fmt.Errorf("insert country %s: %w", c.Code, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit countries: %w", err)
	}
	return nil
}

// QueryCountries returns a point-in-time snapshot of the stored list as a
// lazy sequence: the set of codes is captured now, rows are loaded on
// first access per index and memoized.
func (s *Store) QueryCountries(ctx context.Context) (*lazyseq.Sequence[catalog.Country], error) {
	s.mu.RLock()
	rows, err := s.db.QueryContext(ctx, "SELECT code FROM countries ORDER BY code")
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("query country codes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate codes: %w", err)
	}

	accessor := func(i int) (catalog.Country, bool) {
		// The sequence may be read after the querying call returned, so
		// row loads run on a background context.
		c, ok, err := s.GetCountry(context.Background(), codes[i])
		if err != nil || !ok {
			return catalog.Country{}, false
		}
		return c, true
	}
	return lazyseq.New(len(codes), true, accessor), nil
}

func (s *Store) GetCountry(ctx context.Context, code string) (catalog.Country, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c catalog.Country
	err := s.db.QueryRowContext(ctx,
		"SELECT code, name, region, population, flag_url FROM countries WHERE code = ?", code,
	).Scan(&c.Code, &c.Name, &c.Region, &c.Population, &c.FlagURL)
	if err == sql.ErrNoRows {
		return catalog.Country{}, false, nil
	}
	if err != nil {
		return catalog.Country{}, false, fmt.Errorf("query country: %w", err)
	}
	return c, true, nil
}

// HasDetail reports whether a detail record exists for the code.
func (s *Store) HasDetail(ctx context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM details WHERE code = ?", code).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query detail existence: %w", err)
	}
	return true, nil
}

// GetDetail loads a stored detail record.
func (s *Store) GetDetail(ctx context.Context, code string) (catalog.CountryDetail, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var d catalog.CountryDetail
	var languages, currencies []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT code, name, capital, region, subregion, population, area, languages, currencies FROM details WHERE code = ?",
		code,
	).Scan(&d.Code, &d.Name, &d.Capital, &d.Region, &d.Subregion, &d.Population, &d.Area, &languages, &currencies)
	if err == sql.ErrNoRows {
		return catalog.CountryDetail{}, false, nil
	}
	if err != nil {
		return catalog.CountryDetail{}, false, fmt.Errorf("query detail: %w", err)
	}
	if err := json.Unmarshal(languages, &d.Languages); err != nil {
		return catalog.CountryDetail{}, false, fmt.Errorf("unmarshal languages: %w", err)
	}
	if err := json.Unmarshal(currencies, &d.Currencies); err != nil {
		return catalog.CountryDetail{}, false, fmt.Errorf("unmarshal currencies: %w", err)
	}
	return d, true, nil
}

// WriteDetail stores (or replaces) a detail record.
func (s *Store) WriteDetail(ctx context.Context, d catalog.CountryDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	languages, err := json.Marshal(d.Languages)
	if err != nil {
		return fmt.Errorf("marshal languages: %w", err)
	}
	currencies, err := json.Marshal(d.Currencies)
	if err != nil {
		return fmt.Errorf("marshal currencies: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO details (code, name, capital, region, subregion, population, area, languages, currencies)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET
		   name = excluded.name, capital = excluded.capital, region = excluded.region,
		   subregion = excluded.subregion, population = excluded.population,
		   area = excluded.area, languages = excluded.languages, currencies = excluded.currencies`,
		d.Code, d.Name, d.Capital, d.Region, d.Subregion, d.Population, d.Area, languages, currencies,
	)
	if err != nil {
		return fmt.Errorf("insert detail %s: %w", d.Code, err)
	}
	return nil
}

// HasFlag reports whether a flag image is stored for the code.
func (s *Store) HasFlag(ctx context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM flags WHERE code = ?", code).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query flag existence: %w", err)
	}
	return true, nil
}

// GetFlag loads a stored flag image.
func (s *Store) GetFlag(ctx context.Context, code string) (catalog.Flag, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var f catalog.Flag
	err := s.db.QueryRowContext(ctx,
		"SELECT code, url, content_type, data FROM flags WHERE code = ?", code,
	).Scan(&f.Code, &f.URL, &f.ContentType, &f.Data)
	if err == sql.ErrNoRows {
		return catalog.Flag{}, false, nil
	}
	if err != nil {
		return catalog.Flag{}, false, fmt.Errorf("query flag: %w", err)
	}
	return f, true, nil
}

// WriteFlag stores (or replaces) a flag image.
func (s *Store) WriteFlag(ctx context.Context, f catalog.Flag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO flags (code, url, content_type, data) VALUES (?, ?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET
		   url = excluded.url, content_type = excluded.content_type, data = excluded.data`,
		f.Code, f.URL, f.ContentType, f.Data,
	)
	if err != nil {
		return fmt.Errorf("insert flag %s: %w", f.Code, err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
