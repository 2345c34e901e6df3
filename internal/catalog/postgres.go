package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	apperrors "livebetter/internal/common/errors"
	"livebetter/internal/common/logger"
)

// metroSelect joins metros with costs and (optionally) quality-of-life data.
// Metros without cost rows are not rankable and are excluded by the inner join.
const metroSelect = `
	SELECT
		m.metro_id,
		m.name,
		m.state,
		m.cbsa_code,
		m.lat,
		m.lon,
		m.population,
		mc.median_rent_usd,
		mc.rpp_index,
		mc.eff_tax_rate,
		mc.utilities_monthly,
		qol.school_score,
		qol.crime_rate,
		qol.weather_score,
		qol.healthcare_score,
		qol.walkability_score,
		qol.air_quality_index,
		qol.commute_time_mins
	FROM metro m
	INNER JOIN metro_costs mc ON m.metro_id = mc.metro_id
	LEFT JOIN metro_quality_of_life qol ON m.metro_id = qol.metro_id`

const metroQuery = metroSelect + `
	WHERE m.population >= $1
	ORDER BY m.population DESC`

const metroByIDQuery = metroSelect + `
	WHERE m.metro_id = ANY($1)
	ORDER BY m.metro_id ASC`

// PostgresStore implements Store against the ETL-maintained Postgres schema.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "catalog"}),
	}
}

func (s *PostgresStore) ListMetros(ctx context.Context, populationMin int64) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, metroQuery, populationMin)
	if err != nil {
		return nil, apperrors.NewCatalogUnavailableError(err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, apperrors.NewCatalogUnavailableError(fmt.Errorf("scan metro row: %w", err))
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewCatalogUnavailableError(err)
	}

	s.logger.Debug("listed metros", map[string]interface{}{
		"populationMin": populationMin,
		"count":         len(records),
	})

	return records, nil
}

// GetMetrosByIDs returns the catalog rows for the given metro ids. Unknown
// ids are silently absent from the result.
func (s *PostgresStore) GetMetrosByIDs(ctx context.Context, ids []int64) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, metroByIDQuery, pq.Array(ids))
	if err != nil {
		return nil, apperrors.NewCatalogUnavailableError(err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, apperrors.NewCatalogUnavailableError(fmt.Errorf("scan metro row: %w", err))
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewCatalogUnavailableError(err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var rec Record
	var cbsa sql.NullString
	var school, crime, weather, healthcare, walkability, airQuality, commute sql.NullFloat64

	err := rows.Scan(
		&rec.ID,
		&rec.Name,
		&rec.State,
		&cbsa,
		&rec.Lat,
		&rec.Lon,
		&rec.Population,
		&rec.Costs.MedianRent,
		&rec.Costs.RPPIndex,
		&rec.Costs.EffectiveTaxRate,
		&rec.Costs.UtilitiesMonthly,
		&school,
		&crime,
		&weather,
		&healthcare,
		&walkability,
		&airQuality,
		&commute,
	)
	if err != nil {
		return Record{}, err
	}

	rec.CBSACode = cbsa.String
	rec.QOL.SchoolScore = nullableFloat(school)
	rec.QOL.CrimeRate = nullableFloat(crime)
	rec.QOL.WeatherScore = nullableFloat(weather)
	rec.QOL.HealthcareScore = nullableFloat(healthcare)
	rec.QOL.WalkabilityScore = nullableFloat(walkability)
	rec.QOL.AirQualityIndex = nullableFloat(airQuality)
	rec.QOL.CommuteTimeMins = nullableFloat(commute)

	return rec, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func (s *PostgresStore) CountMetros(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM metro").Scan(&count); err != nil {
		return 0, apperrors.NewCatalogUnavailableError(err)
	}
	return count, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
