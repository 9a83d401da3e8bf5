package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/i474232898/rain-prediction-api/internal/weather"
)

// Store implements the relational store contract on PostgreSQL. Identity is
// assigned by the tables' native sequences; the dependent-reference columns
// carry no foreign-key constraints on purpose, so deletes stay unconditional
// and non-cascading like the document side.
type Store struct {
	pool *pgxpool.Pool
}

// Connect creates a connection pool and verifies it with a ping. Connections
// are acquired per operation from the pool and always returned, success or
// failure.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Column lists are pinned to the table DDL in migrations/.
const (
	observationColumns = `observation_id, location_id, date, min_temp, max_temp, rainfall,
		humidity_9am, humidity_3pm, pressure_9am, pressure_3pm,
		wind_speed_9am, wind_speed_3pm, wind_dir_9am, wind_dir_3pm,
		cloud_9am, cloud_3pm, temp_9am, temp_3pm, rain_today, rain_tomorrow`
)

func (s *Store) CreateLocation(ctx context.Context, loc weather.Location) (weather.Location, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO locations (name, state) VALUES ($1, $2) RETURNING location_id, name, state`,
		loc.Name, loc.State,
	)
	created, err := scanLocation(row)
	if err != nil {
		return weather.Location{}, storageErr(err)
	}
	return created, nil
}

func (s *Store) ListLocations(ctx context.Context) ([]weather.Location, error) {
	rows, err := s.pool.Query(ctx, `SELECT location_id, name, state FROM locations ORDER BY location_id`)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	locs := make([]weather.Location, 0)
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, storageErr(err)
		}
		locs = append(locs, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return locs, nil
}

func (s *Store) GetLocation(ctx context.Context, id int) (weather.Location, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT location_id, name, state FROM locations WHERE location_id = $1`, id)
	loc, err := scanLocation(row)
	if err != nil {
		return weather.Location{}, notFoundOr(err, weather.CollectionLocations, id)
	}
	return loc, nil
}

func (s *Store) UpdateLocation(ctx context.Context, loc weather.Location) (weather.Location, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE locations SET name = $1, state = $2 WHERE location_id = $3
		 RETURNING location_id, name, state`,
		loc.Name, loc.State, loc.LocationID,
	)
	updated, err := scanLocation(row)
	if err != nil {
		return weather.Location{}, notFoundOr(err, weather.CollectionLocations, loc.LocationID)
	}
	return updated, nil
}

func (s *Store) DeleteLocation(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM locations WHERE location_id = $1`, id)
	if err != nil {
		return storageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return &weather.NotFoundError{Collection: weather.CollectionLocations, ID: id}
	}
	return nil
}

func (s *Store) CreateObservation(ctx context.Context, obs weather.Observation) (weather.Observation, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO weather_observations (
			location_id, date, min_temp, max_temp, rainfall,
			humidity_9am, humidity_3pm, pressure_9am, pressure_3pm,
			wind_speed_9am, wind_speed_3pm, wind_dir_9am, wind_dir_3pm,
			cloud_9am, cloud_3pm, temp_9am, temp_3pm, rain_today, rain_tomorrow
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING `+observationColumns,
		obs.LocationID, obs.Date.Time, obs.MinTemp, obs.MaxTemp, obs.Rainfall,
		obs.Humidity9am, obs.Humidity3pm, obs.Pressure9am, obs.Pressure3pm,
		obs.WindSpeed9am, obs.WindSpeed3pm, obs.WindDir9am, obs.WindDir3pm,
		obs.Cloud9am, obs.Cloud3pm, obs.Temp9am, obs.Temp3pm, obs.RainToday, obs.RainTomorrow,
	)
	created, err := scanObservation(row)
	if err != nil {
		return weather.Observation{}, storageErr(err)
	}
	return created, nil
}

func (s *Store) ListObservations(ctx context.Context) ([]weather.Observation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+observationColumns+` FROM weather_observations ORDER BY observation_id`)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	obs := make([]weather.Observation, 0)
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, storageErr(err)
		}
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return obs, nil
}

func (s *Store) GetObservation(ctx context.Context, id int) (weather.Observation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+observationColumns+` FROM weather_observations WHERE observation_id = $1`, id)
	obs, err := scanObservation(row)
	if err != nil {
		return weather.Observation{}, notFoundOr(err, weather.CollectionObservations, id)
	}
	return obs, nil
}

func (s *Store) UpdateObservation(ctx context.Context, obs weather.Observation) (weather.Observation, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE weather_observations SET
			location_id = $1, date = $2, min_temp = $3, max_temp = $4, rainfall = $5,
			humidity_9am = $6, humidity_3pm = $7, pressure_9am = $8, pressure_3pm = $9,
			wind_speed_9am = $10, wind_speed_3pm = $11, wind_dir_9am = $12, wind_dir_3pm = $13,
			cloud_9am = $14, cloud_3pm = $15, temp_9am = $16, temp_3pm = $17,
			rain_today = $18, rain_tomorrow = $19
		WHERE observation_id = $20
		RETURNING `+observationColumns,
		obs.LocationID, obs.Date.Time, obs.MinTemp, obs.MaxTemp, obs.Rainfall,
		obs.Humidity9am, obs.Humidity3pm, obs.Pressure9am, obs.Pressure3pm,
		obs.WindSpeed9am, obs.WindSpeed3pm, obs.WindDir9am, obs.WindDir3pm,
		obs.Cloud9am, obs.Cloud3pm, obs.Temp9am, obs.Temp3pm, obs.RainToday, obs.RainTomorrow,
		obs.ObservationID,
	)
	updated, err := scanObservation(row)
	if err != nil {
		return weather.Observation{}, notFoundOr(err, weather.CollectionObservations, obs.ObservationID)
	}
	return updated, nil
}

func (s *Store) DeleteObservation(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM weather_observations WHERE observation_id = $1`, id)
	if err != nil {
		return storageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return &weather.NotFoundError{Collection: weather.CollectionObservations, ID: id}
	}
	return nil
}

func (s *Store) CreatePrediction(ctx context.Context, pred weather.Prediction) (weather.Prediction, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO rain_predictions (observation_id, will_it_rain)
		 VALUES ($1, $2)
		 RETURNING prediction_id, observation_id, will_it_rain, predicted_at`,
		pred.ObservationID, pred.WillItRain,
	)
	created, err := scanPrediction(row)
	if err != nil {
		return weather.Prediction{}, storageErr(err)
	}
	return created, nil
}

func (s *Store) ListPredictions(ctx context.Context) ([]weather.Prediction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT prediction_id, observation_id, will_it_rain, predicted_at
		 FROM rain_predictions ORDER BY prediction_id`)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	preds := make([]weather.Prediction, 0)
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, storageErr(err)
		}
		preds = append(preds, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return preds, nil
}

func (s *Store) GetPrediction(ctx context.Context, id int) (weather.Prediction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT prediction_id, observation_id, will_it_rain, predicted_at
		 FROM rain_predictions WHERE prediction_id = $1`, id)
	pred, err := scanPrediction(row)
	if err != nil {
		return weather.Prediction{}, notFoundOr(err, weather.CollectionPredictions, id)
	}
	return pred, nil
}

func (s *Store) UpdatePrediction(ctx context.Context, pred weather.Prediction) (weather.Prediction, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE rain_predictions SET observation_id = $1, will_it_rain = $2, predicted_at = now()
		 WHERE prediction_id = $3
		 RETURNING prediction_id, observation_id, will_it_rain, predicted_at`,
		pred.ObservationID, pred.WillItRain, pred.PredictionID,
	)
	updated, err := scanPrediction(row)
	if err != nil {
		return weather.Prediction{}, notFoundOr(err, weather.CollectionPredictions, pred.PredictionID)
	}
	return updated, nil
}

func (s *Store) DeletePrediction(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rain_predictions WHERE prediction_id = $1`, id)
	if err != nil {
		return storageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return &weather.NotFoundError{Collection: weather.CollectionPredictions, ID: id}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocation(row rowScanner) (weather.Location, error) {
	var loc weather.Location
	if err := row.Scan(&loc.LocationID, &loc.Name, &loc.State); err != nil {
		return weather.Location{}, err
	}
	return loc, nil
}

func scanObservation(row rowScanner) (weather.Observation, error) {
	var obs weather.Observation
	err := row.Scan(
		&obs.ObservationID, &obs.LocationID, &obs.Date.Time, &obs.MinTemp, &obs.MaxTemp, &obs.Rainfall,
		&obs.Humidity9am, &obs.Humidity3pm, &obs.Pressure9am, &obs.Pressure3pm,
		&obs.WindSpeed9am, &obs.WindSpeed3pm, &obs.WindDir9am, &obs.WindDir3pm,
		&obs.Cloud9am, &obs.Cloud3pm, &obs.Temp9am, &obs.Temp3pm, &obs.RainToday, &obs.RainTomorrow,
	)
	if err != nil {
		return weather.Observation{}, err
	}
	return obs, nil
}

func scanPrediction(row rowScanner) (weather.Prediction, error) {
	var pred weather.Prediction
	err := row.Scan(&pred.PredictionID, &pred.ObservationID, &pred.WillItRain, &pred.PredictedAt)
	if err != nil {
		return weather.Prediction{}, err
	}
	return pred, nil
}

// notFoundOr maps a no-rows scan result to NotFoundError and everything else
// to StorageError.
func notFoundOr(err error, collection string, id int) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &weather.NotFoundError{Collection: collection, ID: id}
	}
	return storageErr(err)
}

func storageErr(err error) error {
	return &weather.StorageError{Store: "postgres", Err: err}
}
