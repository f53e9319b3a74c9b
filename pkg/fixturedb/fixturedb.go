// Package fixturedb persists recorded exchanges so they can be replayed
// through backend.Mock. Every process that records gets its own session id,
// fixtures from every session are loaded together.
package fixturedb

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"scriptbrowser/pkg/fixture"

	"github.com/mazen160/go-random"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

type Config struct {
	// File is the path of a local sqlite database, ":memory:" works too.
	File string `json:"file"`
	// Url points to a remote libsql database, it takes precedence over File.
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (config Config) OpenDB() (*sql.DB, error) {
	if config.Url != "" {
		dsn := config.Url
		if config.AuthToken != "" {
			parsed, err := url.Parse(config.Url)
			if err != nil {
				return nil, err
			}
			query := parsed.Query()
			query.Set("authToken", config.AuthToken)
			parsed.RawQuery = query.Encode()
			dsn = parsed.String()
		}
		return sql.Open("libsql", dsn)
	}

	if config.File == "" {
		return nil, fmt.Errorf("a path was not specified")
	}
	db, err := sql.Open("sqlite", config.File)
	if err != nil {
		return nil, err
	}
	// sqlite only allows one writer at a time
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

type Store struct {
	db      *sql.DB
	session string
}

// Open connects to the database described by config and creates the tables
// if they do not exist yet.
func Open(ctx context.Context, config Config) (*Store, error) {
	db, err := config.OpenDB()
	if err != nil {
		return nil, fmt.Errorf("open fixture db: %w", err)
	}
	store, err := NewStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	_, err := db.ExecContext(ctx, Schema)
	if err != nil {
		return nil, fmt.Errorf("create fixture tables: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Session returns the id fixtures saved by this store are tagged with, it is
// empty until the first Save.
func (s *Store) Session() string {
	return s.session
}

func (s *Store) ensureSession(ctx context.Context) error {
	if s.session != "" {
		return nil
	}
	id, err := random.String(8)
	if err != nil {
		return fmt.Errorf("generate session id: %w", err)
	}
	_, err = s.db.ExecContext(
		ctx,
		"insert into Session(id, startedAt) values (?, ?)",
		id, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	s.session = id
	return nil
}

func encodeHeaders(headers map[string]string) (sql.NullString, error) {
	if headers == nil {
		return sql.NullString{}, nil
	}
	out, err := json.Marshal(headers)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(out), Valid: true}, nil
}

func decodeHeaders(value sql.NullString) (map[string]string, error) {
	if !value.Valid {
		return nil, nil
	}
	headers := map[string]string{}
	err := json.Unmarshal([]byte(value.String), &headers)
	if err != nil {
		return nil, err
	}
	return headers, nil
}

func decodeData(kind fixture.DataKind, value string) (fixture.Data, error) {
	switch kind {
	case fixture.KindNone:
		return fixture.NoData(), nil
	case fixture.KindOpaque:
		return fixture.Opaque(value), nil
	case fixture.KindPairs:
		values, err := url.ParseQuery(value)
		if err != nil {
			return fixture.Data{}, err
		}
		return fixture.Values(values), nil
	}
	return fixture.Data{}, fmt.Errorf("unknown data kind %d", kind)
}

// Save stores a fixture. Responses declaring a Failure are rejected, only
// real exchanges are recorded.
func (s *Store) Save(ctx context.Context, key fixture.RequestKey, resp *fixture.MockResponse) error {
	if resp.Failure != nil {
		return fmt.Errorf("save %s: failures are not recorded", key.URL)
	}
	err := s.ensureSession(ctx)
	if err != nil {
		return err
	}

	headers, err := encodeHeaders(key.Headers)
	if err != nil {
		return fmt.Errorf("encode request headers: %w", err)
	}
	responseHeaders, err := json.Marshal(resp.Headers)
	if err != nil {
		return fmt.Errorf("encode response headers: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`insert into Fixture(
			sessionId, url, method, headers, dataKind, data,
			httpCode, body, responseHeaders, roundtripNs, redirect
		) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.session, key.URL, key.Method, headers, int(key.Data.Kind()), key.Data.Encode(),
		resp.HTTPCode, resp.Body, string(responseHeaders), resp.Roundtrip.Nanoseconds(), resp.Redirect,
	)
	if err != nil {
		return fmt.Errorf("save %s %s: %w", key.Method, key.URL, err)
	}
	return nil
}

type Row struct {
	ID      int64
	Session string
	Entry   fixture.Entry
}

// List returns every stored fixture in the order they were saved.
func (s *Store) List(ctx context.Context) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `select
		id, sessionId, url, method, headers, dataKind, data,
		httpCode, body, responseHeaders, roundtripNs, redirect
	from Fixture order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			row             Row
			target          string
			method          string
			headers         sql.NullString
			dataKind        int
			data            string
			responseHeaders string
			roundtripNs     int64
			resp            fixture.MockResponse
		)
		err := rows.Scan(
			&row.ID, &row.Session, &target, &method, &headers, &dataKind, &data,
			&resp.HTTPCode, &resp.Body, &responseHeaders, &roundtripNs, &resp.Redirect,
		)
		if err != nil {
			return nil, err
		}

		requestHeaders, err := decodeHeaders(headers)
		if err != nil {
			return nil, fmt.Errorf("fixture %d: request headers: %w", row.ID, err)
		}
		requestData, err := decodeData(fixture.DataKind(dataKind), data)
		if err != nil {
			return nil, fmt.Errorf("fixture %d: data: %w", row.ID, err)
		}
		err = json.Unmarshal([]byte(responseHeaders), &resp.Headers)
		if err != nil {
			return nil, fmt.Errorf("fixture %d: response headers: %w", row.ID, err)
		}
		resp.Roundtrip = time.Duration(roundtripNs)

		row.Entry = fixture.Entry{
			Key:      fixture.NewRequestKey(target, method, requestData, requestHeaders),
			Response: &resp,
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// LoadInto registers every stored fixture and returns how many were added.
func (s *Store) LoadInto(ctx context.Context, reg *fixture.Registry) (int, error) {
	rows, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, row := range rows {
		reg.Add(row.Entry)
	}
	return len(rows), nil
}
