package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vectoratlas/atlas-cli/internal/atlas"
	"github.com/vectoratlas/atlas-cli/internal/db"
	"github.com/vectoratlas/atlas-cli/internal/schema"
)

// PostgresStore implements Store using pgx. Bulk loads go through the COPY
// protocol in fixed-size batches.
type PostgresStore struct {
	pool      db.Pool
	batchSize int
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, batchSize int) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return NewPostgresWithPool(pool, batchSize), nil
}

// NewPostgresWithPool wraps an existing pool. Tests inject pgxmock here.
func NewPostgresWithPool(pool db.Pool, batchSize int) *PostgresStore {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &PostgresStore{pool: pool, batchSize: batchSize}
}

// One statement per Exec: pgx's extended protocol rejects multi-statement
// strings.
var postgresMigration = []string{
	`CREATE TABLE IF NOT EXISTS ingest_runs (
	run_id      TEXT NOT NULL,
	layer       TEXT NOT NULL,
	accepted    BIGINT NOT NULL,
	skipped     BIGINT NOT NULL,
	duration_ms BIGINT NOT NULL,
	loaded_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS idx_ingest_runs_run_id ON ingest_runs(run_id)`,
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range postgresMigration {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "postgres: migrate")
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// replace rebuilds one table: drop, create from the registry, COPY in
// batches, then index with warn-only failures.
func (s *PostgresStore) replace(ctx context.Context, table schema.Table, rows [][]any) (int64, error) {
	log := zap.L().With(
		zap.String("component", "store.postgres"),
		zap.String("table", table.Name),
	)

	if _, err := s.pool.Exec(ctx, table.DropSQL()); err != nil {
		return 0, eris.Wrapf(err, "postgres: drop %s", table.Name)
	}
	if _, err := s.pool.Exec(ctx, table.CreateSQL(schema.DialectPostgres)); err != nil {
		return 0, eris.Wrapf(err, "postgres: create %s", table.Name)
	}

	columns := table.ColumnNames()

	var total int64
	for start := 0; start < len(rows); start += s.batchSize {
		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		n, err := db.CopyFrom(ctx, s.pool, table.Name, columns, rows[start:end])
		if err != nil {
			return total, eris.Wrapf(err, "postgres: load batch into %s at row %d", table.Name, start)
		}
		total += n
		log.Debug("batch loaded", zap.Int64("rows", n), zap.Int64("total", total))
	}

	for _, stmt := range table.IndexSQL() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			log.Warn("index creation failed, table remains scannable", zap.String("sql", stmt), zap.Error(err))
		}
	}

	log.Info("table rebuilt", zap.Int64("rows", total))
	return total, nil
}

func (s *PostgresStore) ReplaceSpecies(ctx context.Context, records []atlas.SpeciesRecord) (int64, error) {
	return s.replace(ctx, schema.Species, speciesRows(records))
}

func (s *PostgresStore) ReplaceGeoFeatures(ctx context.Context, records []atlas.GeoFeatureRecord) (int64, error) {
	return s.replace(ctx, schema.GeoFeatures, geoFeatureRows(records))
}

func (s *PostgresStore) SelectFeatures(ctx context.Context, filter FeatureFilter) ([]FeatureRow, error) {
	query := `SELECT geometry_json, properties_json FROM "geo_features" WHERE layer_type = $1`
	args := []any{string(filter.Layer)}

	if len(filter.Species) > 0 {
		params := make([]string, len(filter.Species))
		for i, sp := range filter.Species {
			args = append(args, sp)
			params[i] = fmt.Sprintf("$%d", len(args))
		}
		query += ` AND species IN (` + strings.Join(params, ", ") + `)`
	}

	if b := filter.BBox; b != nil {
		base := len(args)
		args = append(args,
			b.MinLon, b.MaxLon, b.MinLat, b.MaxLat,
			b.MaxLon, b.MinLon, b.MaxLat, b.MinLat,
		)
		query += fmt.Sprintf(
			` AND ((lon IS NOT NULL AND lat IS NOT NULL AND lon >= $%d AND lon <= $%d AND lat >= $%d AND lat <= $%d)`+
				` OR (minx IS NOT NULL AND minx <= $%d AND maxx >= $%d AND miny <= $%d AND maxy >= $%d))`,
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		)
	}

	// ctid follows physical order, which matches insertion order for a table
	// that is only ever rebuilt by COPY.
	query += ` ORDER BY ctid`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: select features")
	}
	defer rows.Close()

	var result []FeatureRow
	for rows.Next() {
		var fr FeatureRow
		if err := rows.Scan(&fr.GeometryJSON, &fr.PropertiesJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan feature row")
		}
		result = append(result, fr)
	}
	return result, eris.Wrap(rows.Err(), "postgres: iterate feature rows")
}

func (s *PostgresStore) ListSpecies(ctx context.Context) ([]atlas.SpeciesRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM "species" ORDER BY ctid`, quotedColumnList(schema.Species))

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list species")
	}
	defer rows.Close()

	var records []atlas.SpeciesRecord
	for rows.Next() {
		var r atlas.SpeciesRecord
		var chars, regions, diseases, habitats string
		if err := rows.Scan(
			&r.ID, &r.ScientificName, &r.CommonName, &r.VectorStatus,
			&r.ImageURL, &r.Description,
			&chars, &regions, &diseases, &habitats,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan species row")
		}
		r.KeyCharacteristics = unmarshalList(chars)
		r.GeographicRegions = unmarshalList(regions)
		r.RelatedDiseases = unmarshalList(diseases)
		r.HabitatPreferences = unmarshalList(habitats)
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: iterate species rows")
}

func (s *PostgresStore) RecordRun(ctx context.Context, records []RunRecord) error {
	for _, r := range records {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO ingest_runs (run_id, layer, accepted, skipped, duration_ms, loaded_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			r.RunID, r.Layer, r.Accepted, r.Skipped, r.DurationMs, r.LoadedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: record run %s layer %s", r.RunID, r.Layer)
		}
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, layer, accepted, skipped, duration_ms, loaded_at FROM ingest_runs ORDER BY loaded_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.RunID, &r.Layer, &r.Accepted, &r.Skipped, &r.DurationMs, &r.LoadedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run row")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: iterate run rows")
}
