package activity

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/briangreenhill/ridgeline/internal/effort"
)

var ErrNotFound = errors.New("activity not found")

// dateLayout is fixed width and always UTC so start_date sorts as text.
const dateLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS activities (
    id INTEGER PRIMARY KEY,
    name TEXT,
    type TEXT,
    start_date TEXT,
    distance REAL,
    moving_time REAL,
    elapsed_time REAL,
    total_elevation_gain REAL,
    ascent REAL,
    descent REAL,
    unknown_altitude INTEGER,
    splits BLOB,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP);

CREATE TABLE IF NOT EXISTS efforts (
    id TEXT PRIMARY KEY,
    activity_id INTEGER NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
    kind TEXT,
    target REAL,
    distance REAL,
    seconds REAL,
    altitude_delta REAL,
    start_index INTEGER,
    end_index INTEGER);

CREATE INDEX IF NOT EXISTS efforts_activity ON efforts(activity_id);`

// Service persists analyses in sqlite.
type Service struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewService(db *sql.DB, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// Migrate creates the tables if they do not exist yet.
func (s *Service) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("error creating tables: %w", err)
	}
	return nil
}

// Add stores an analysis, replacing any earlier analysis of the same
// activity along with its efforts.
func (s *Service) Add(ctx context.Context, a Analysis) (err error) {
	var buffer bytes.Buffer
	enc := gob.NewEncoder(&buffer)
	if err := enc.Encode(a.Splits); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	act := a.Activity
	if _, err = tx.ExecContext(ctx, "DELETE FROM efforts WHERE activity_id = ?", act.ID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM activities WHERE id = ?", act.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Info("Replacing existing activity", slog.Int64("id", act.ID))
	}

	res, err = tx.ExecContext(ctx, `
    INSERT INTO activities
    (id,
    name,
    type,
    start_date,
    distance,
    moving_time,
    elapsed_time,
    total_elevation_gain,
    ascent,
    descent,
    unknown_altitude,
    splits)
    VALUES
    (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		act.ID,
		act.Name,
		act.Type,
		act.StartDate.UTC().Format(dateLayout),
		act.Distance,
		act.MovingTime,
		act.ElapsedTime,
		act.TotalElevationGain,
		a.Ascent,
		a.Descent,
		a.UnknownAltitude,
		buffer.Bytes(),
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected != 1 {
		return fmt.Errorf("expected 1 row to be affected, got %d", affected)
	}

	for _, e := range a.Efforts {
		_, err = tx.ExecContext(ctx, `
        INSERT INTO efforts
        (id, activity_id, kind, target, distance, seconds, altitude_delta, start_index, end_index)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, act.ID, string(e.Kind), e.Target, e.Distance, e.Seconds, e.AltitudeDelta, e.StartIndex, e.EndIndex)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

const selectActivity = `SELECT id, name, type, start_date, distance, moving_time, elapsed_time,
    total_elevation_gain, ascent, descent, unknown_altitude, splits FROM activities`

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row scanner) (Analysis, error) {
	var a Analysis
	var startDate string
	var splitsVal []byte

	act := &a.Activity
	if err := row.Scan(&act.ID, &act.Name, &act.Type, &startDate, &act.Distance, &act.MovingTime,
		&act.ElapsedTime, &act.TotalElevationGain, &a.Ascent, &a.Descent, &a.UnknownAltitude, &splitsVal); err != nil {
		return Analysis{}, err
	}

	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return Analysis{}, err
	}
	act.StartDate = start

	dec := gob.NewDecoder(bytes.NewBuffer(splitsVal))
	if err := dec.Decode(&a.Splits); err != nil {
		return Analysis{}, err
	}

	return a, nil
}

// Activities lists stored analyses, most recent first. Efforts are not
// loaded; use Efforts for those.
func (s *Service) Activities(ctx context.Context) ([]Analysis, error) {
	rows, err := s.db.QueryContext(ctx, selectActivity+" ORDER BY start_date DESC, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	analyses := []Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}

	return analyses, rows.Err()
}

// Activity loads one stored analysis including its efforts.
func (s *Service) Activity(ctx context.Context, id int64) (Analysis, error) {
	a, err := scanAnalysis(s.db.QueryRowContext(ctx, selectActivity+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return Analysis{}, err
	}

	if a.Efforts, err = s.Efforts(ctx, id); err != nil {
		return Analysis{}, err
	}
	return a, nil
}

// Efforts lists the efforts of one activity, distance efforts by
// ascending target and then the best climb.
func (s *Service) Efforts(ctx context.Context, activityID int64) ([]effort.ActivityEffort, error) {
	rows, err := s.db.QueryContext(ctx, `
    SELECT id, activity_id, kind, target, distance, seconds, altitude_delta, start_index, end_index
    FROM efforts WHERE activity_id = ?
    ORDER BY kind = ?, target`, activityID, string(effort.KindClimb))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	efforts := []effort.ActivityEffort{}
	for rows.Next() {
		var e effort.ActivityEffort
		var kind string
		if err := rows.Scan(&e.ID, &e.ActivityID, &kind, &e.Target, &e.Distance, &e.Seconds,
			&e.AltitudeDelta, &e.StartIndex, &e.EndIndex); err != nil {
			return nil, err
		}
		e.Kind = effort.Kind(kind)
		efforts = append(efforts, e)
	}

	return efforts, rows.Err()
}

// Stats folds every stored activity into per-group totals. grouping is
// one of "type", "year" or "month".
func (s *Service) Stats(ctx context.Context, grouping string) (map[string]effort.Stats, error) {
	key, err := effort.Grouping(grouping)
	if err != nil {
		return nil, err
	}

	analyses, err := s.Activities(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]effort.Record, len(analyses))
	for i, a := range analyses {
		records[i] = a.Record()
	}

	return effort.Aggregate(records, key), nil
}
