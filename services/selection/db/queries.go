package db

import (
	"context"
)

type SelectionRecord struct {
	EntityID  string
	Caught    int64
	Favorite  int64
	UpdatedAt int64
}

const countMeta = `SELECT COUNT(*) FROM meta`

func (q *Queries) CountMeta(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countMeta)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const seedVersion = `INSERT INTO meta (ver) VALUES (0)`

func (q *Queries) SeedVersion(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, seedVersion)
	return err
}

const getVersion = `SELECT ver FROM meta`

func (q *Queries) GetVersion(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, getVersion)
	var ver int64
	err := row.Scan(&ver)
	return ver, err
}

const setVersion = `UPDATE meta SET ver = ?`

func (q *Queries) SetVersion(ctx context.Context, ver int64) error {
	_, err := q.db.ExecContext(ctx, setVersion, ver)
	return err
}

const deleteSelection = `DELETE FROM selection`

func (q *Queries) DeleteSelection(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteSelection)
	return err
}

const createSelectionRecord = `INSERT INTO selection (entity_id, caught, favorite, updated_at) VALUES (?, ?, ?, ?)`

type CreateSelectionRecordParams struct {
	EntityID  string
	Caught    int64
	Favorite  int64
	UpdatedAt int64
}

func (q *Queries) CreateSelectionRecord(ctx context.Context, arg CreateSelectionRecordParams) error {
	_, err := q.db.ExecContext(ctx, createSelectionRecord, arg.EntityID, arg.Caught, arg.Favorite, arg.UpdatedAt)
	return err
}

const listSelection = `SELECT entity_id, caught, favorite, updated_at FROM selection ORDER BY entity_id`

func (q *Queries) ListSelection(ctx context.Context) ([]SelectionRecord, error) {
	rows, err := q.db.QueryContext(ctx, listSelection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []SelectionRecord
	for rows.Next() {
		var r SelectionRecord
		err := rows.Scan(&r.EntityID, &r.Caught, &r.Favorite, &r.UpdatedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
