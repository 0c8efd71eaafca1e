package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the Store interface on a PostgreSQL table, for
// deployments that already run Postgres and want reports to survive both
// restarts and Redis evictions. One row per site, upserted on every run.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const reportsSchema = `
CREATE TABLE IF NOT EXISTS reports (
    site                  TEXT PRIMARY KEY,
    generated_at          TIMESTAMPTZ NOT NULL,
    burner_power_kw       DOUBLE PRECISION NOT NULL,
    calibration_strategy  TEXT NOT NULL,
    samples               INTEGER NOT NULL,
    range_from            TIMESTAMPTZ NOT NULL,
    range_to              TIMESTAMPTZ NOT NULL,
    energy_dhw_kwh        DOUBLE PRECISION NOT NULL,
    energy_radiator_kwh   DOUBLE PRECISION NOT NULL,
    energy_underfloor_kwh DOUBLE PRECISION NOT NULL,
    energy_generated_kwh  DOUBLE PRECISION NOT NULL,
    steady_fraction       DOUBLE PRECISION NOT NULL
)`

// NewPostgresStore connects to Postgres with the given DSN and ensures the
// reports table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres DSN cannot be empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, reportsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure reports table: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Put upserts the site's report.
func (p *PostgresStore) Put(ctx context.Context, report Report) error {
	if report.Site == "" {
		return errors.New("site name required")
	}
	if err := validateSite(report.Site); err != nil {
		return err
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO reports (
			site, generated_at, burner_power_kw, calibration_strategy,
			samples, range_from, range_to,
			energy_dhw_kwh, energy_radiator_kwh, energy_underfloor_kwh,
			energy_generated_kwh, steady_fraction
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (site) DO UPDATE SET
			generated_at = EXCLUDED.generated_at,
			burner_power_kw = EXCLUDED.burner_power_kw,
			calibration_strategy = EXCLUDED.calibration_strategy,
			samples = EXCLUDED.samples,
			range_from = EXCLUDED.range_from,
			range_to = EXCLUDED.range_to,
			energy_dhw_kwh = EXCLUDED.energy_dhw_kwh,
			energy_radiator_kwh = EXCLUDED.energy_radiator_kwh,
			energy_underfloor_kwh = EXCLUDED.energy_underfloor_kwh,
			energy_generated_kwh = EXCLUDED.energy_generated_kwh,
			steady_fraction = EXCLUDED.steady_fraction`,
		report.Site, report.GeneratedAt, report.BurnerPowerKW, report.CalibrationStrategy,
		report.Samples, report.RangeFrom, report.RangeTo,
		report.EnergyDHWKWh, report.EnergyRadiatorKWh, report.EnergyUnderfloorKWh,
		report.EnergyGeneratedKWh, report.SteadyFraction,
	)
	if err != nil {
		return fmt.Errorf("failed to store report in postgres: %w", err)
	}
	return nil
}

// GetLatest retrieves the site's report.
func (p *PostgresStore) GetLatest(ctx context.Context, site string) (Report, bool, error) {
	if site == "" {
		return Report{}, false, errors.New("site name required")
	}

	var r Report
	err := p.pool.QueryRow(ctx, `
		SELECT site, generated_at, burner_power_kw, calibration_strategy,
		       samples, range_from, range_to,
		       energy_dhw_kwh, energy_radiator_kwh, energy_underfloor_kwh,
		       energy_generated_kwh, steady_fraction
		FROM reports WHERE site = $1`, site).Scan(
		&r.Site, &r.GeneratedAt, &r.BurnerPowerKW, &r.CalibrationStrategy,
		&r.Samples, &r.RangeFrom, &r.RangeTo,
		&r.EnergyDHWKWh, &r.EnergyRadiatorKWh, &r.EnergyUnderfloorKWh,
		&r.EnergyGeneratedKWh, &r.SteadyFraction,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Report{}, false, nil
	}
	if err != nil {
		return Report{}, false, fmt.Errorf("failed to get report from postgres: %w", err)
	}
	return r, true, nil
}

// Close releases the connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

// Ping checks the Postgres connection health.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
