package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/namrata935/polycentric-el/internal/domain/model"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS businesses (
		id UUID PRIMARY KEY,
		osm_id BIGINT NOT NULL UNIQUE,
		name TEXT,
		category TEXT NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		raw_tags JSONB
	)`,
	`CREATE TABLE IF NOT EXISTS transit_nodes (
		id SERIAL PRIMARY KEY,
		osm_id TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		name TEXT,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS businesses (
		id TEXT PRIMARY KEY,
		osm_id INTEGER NOT NULL UNIQUE,
		name TEXT,
		category TEXT NOT NULL,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		raw_tags TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS transit_nodes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		osm_id TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		name TEXT,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL
	)`,
}

// PointStore persists businesses and transit nodes in Postgres or SQLite.
type PointStore struct {
	DB     *sqlx.DB
	driver string
}

func NewPointStore(ctx context.Context, driver, dsn string) (*PointStore, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, eris.Errorf("store: unsupported driver %q", driver)
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, eris.Wrapf(err, "store: connect %s", driver)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	return &PointStore{DB: db, driver: driver}, nil
}

func (s *PointStore) Close() error {
	return s.DB.Close()
}

// Migrate creates the tables if they do not exist.
func (s *PointStore) Migrate(ctx context.Context) error {
	schema := postgresSchema
	if s.driver == DriverSQLite {
		schema = sqliteSchema
	}
	for _, stmt := range schema {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return eris.Wrap(err, "store: migrate")
		}
	}
	return nil
}

func (s *PointStore) CountBusinesses(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.GetContext(ctx, &n, `SELECT COUNT(*) FROM businesses`); err != nil {
		return 0, eris.Wrap(err, "store: count businesses")
	}
	return n, nil
}

func (s *PointStore) CountTransit(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.GetContext(ctx, &n, `SELECT COUNT(*) FROM transit_nodes`); err != nil {
		return 0, eris.Wrap(err, "store: count transit nodes")
	}
	return n, nil
}

// UpsertBusinesses inserts new businesses and updates known ones by osm_id
// in a single transaction.
func (s *PointStore) UpsertBusinesses(ctx context.Context, businesses []model.Business) (int, int, error) {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, eris.Wrap(err, "store: begin business upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	exists := s.DB.Rebind(`SELECT COUNT(*) FROM businesses WHERE osm_id = ?`)
	update := s.DB.Rebind(`UPDATE businesses
		SET name = ?, category = ?, latitude = ?, longitude = ?, raw_tags = ?
		WHERE osm_id = ?`)
	insert := s.DB.Rebind(`INSERT INTO businesses (id, osm_id, name, category, latitude, longitude, raw_tags)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	var inserted, updated int
	for _, b := range businesses {
		var n int
		if err := tx.GetContext(ctx, &n, exists, b.OSMID); err != nil {
			return 0, 0, eris.Wrapf(err, "store: lookup business %d", b.OSMID)
		}
		if n > 0 {
			if _, err := tx.ExecContext(ctx, update, b.Name, b.Category, b.Latitude, b.Longitude, b.RawTags, b.OSMID); err != nil {
				return 0, 0, eris.Wrapf(err, "store: update business %d", b.OSMID)
			}
			updated++
			continue
		}
		id := b.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, insert, id, b.OSMID, b.Name, b.Category, b.Latitude, b.Longitude, b.RawTags); err != nil {
			return 0, 0, eris.Wrapf(err, "store: insert business %d", b.OSMID)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, eris.Wrap(err, "store: commit business upsert")
	}
	return inserted, updated, nil
}

// UpsertTransit inserts new transit nodes and updates known ones by osm_id
// in a single transaction.
func (s *PointStore) UpsertTransit(ctx context.Context, nodes []model.TransitNode) (int, int, error) {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, eris.Wrap(err, "store: begin transit upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	exists := s.DB.Rebind(`SELECT COUNT(*) FROM transit_nodes WHERE osm_id = ?`)
	update := s.DB.Rebind(`UPDATE transit_nodes
		SET type = ?, name = ?, latitude = ?, longitude = ?
		WHERE osm_id = ?`)
	insert := s.DB.Rebind(`INSERT INTO transit_nodes (osm_id, type, name, latitude, longitude)
		VALUES (?, ?, ?, ?, ?)`)

	var inserted, updated int
	for _, n := range nodes {
		var found int
		if err := tx.GetContext(ctx, &found, exists, n.OSMID); err != nil {
			return 0, 0, eris.Wrapf(err, "store: lookup transit node %s", n.OSMID)
		}
		if found > 0 {
			if _, err := tx.ExecContext(ctx, update, n.Type, n.Name, n.Latitude, n.Longitude, n.OSMID); err != nil {
				return 0, 0, eris.Wrapf(err, "store: update transit node %s", n.OSMID)
			}
			updated++
			continue
		}
		if _, err := tx.ExecContext(ctx, insert, n.OSMID, n.Type, n.Name, n.Latitude, n.Longitude); err != nil {
			return 0, 0, eris.Wrapf(err, "store: insert transit node %s", n.OSMID)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, eris.Wrap(err, "store: commit transit upsert")
	}
	return inserted, updated, nil
}

func (s *PointStore) ListBusinesses(ctx context.Context) ([]model.Business, error) {
	var businesses []model.Business
	const query = `
		SELECT id, osm_id, name, category, latitude, longitude, raw_tags
		FROM businesses
		ORDER BY osm_id`
	if err := s.DB.SelectContext(ctx, &businesses, query); err != nil {
		return nil, eris.Wrap(err, "store: list businesses")
	}
	return businesses, nil
}

func (s *PointStore) ListTransit(ctx context.Context) ([]model.TransitNode, error) {
	var nodes []model.TransitNode
	const query = `
		SELECT id, osm_id, type, name, latitude, longitude
		FROM transit_nodes
		ORDER BY id`
	if err := s.DB.SelectContext(ctx, &nodes, query); err != nil {
		return nil, eris.Wrap(err, "store: list transit nodes")
	}
	return nodes, nil
}

// ListPoints returns the coordinates and category of every stored point of
// the given kind.
func (s *PointStore) ListPoints(ctx context.Context, kind model.PointKind) ([]model.Point, error) {
	var query string
	switch kind {
	case model.KindBusiness:
		query = `SELECT latitude, longitude, category FROM businesses`
	case model.KindTransit:
		query = `SELECT latitude, longitude, type AS category FROM transit_nodes`
	default:
		return nil, eris.Errorf("store: unknown point kind %q", kind)
	}

	var points []model.Point
	if err := s.DB.SelectContext(ctx, &points, query); err != nil {
		return nil, eris.Wrapf(err, "store: list %s points", kind)
	}
	for i := range points {
		points[i].Kind = kind
	}
	return points, nil
}
