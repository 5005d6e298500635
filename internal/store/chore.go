package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/choreboss/internal/model"
)

// ChoreFields are the caller-editable fields of a chore.
type ChoreFields struct {
	Name        string
	Description string
	AssignedTo  *int64
}

type ChoreStore struct {
	db DBTX
}

func NewChoreStore(db DBTX) *ChoreStore {
	return &ChoreStore{db: db}
}

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var assignedTo, lastBy sql.NullInt64
	var lastAt sql.NullTime
	err := scanner.Scan(&c.ID, &c.Name, &c.Description, &assignedTo, &lastBy, &lastAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.AssignedTo = int64Ptr(assignedTo)
	c.LastCompletedBy = int64Ptr(lastBy)
	if lastAt.Valid {
		t := lastAt.Time
		c.LastCompletedAt = &t
	}
	return &c, nil
}

const choreCols = `id, name, description, assigned_to, last_completed_by, last_completed_at, created_at, updated_at`

func (s *ChoreStore) Create(ctx context.Context, f ChoreFields) (*model.Chore, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO chores (name, description, assigned_to) VALUES (?, ?, ?)`,
		f.Name, f.Description, nullInt64(f.AssignedTo),
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *ChoreStore) GetByID(ctx context.Context, id int64) (*model.Chore, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) GetByName(ctx context.Context, name string) (*model.Chore, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+choreCols+` FROM chores WHERE name = ?`, name)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore by name: %w", err)
	}
	return c, nil
}

// NameExists reports whether another chore already uses name. excludeID is
// skipped so an update can keep its own name.
func (s *ChoreStore) NameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM chores WHERE name = ? AND id != ?)`, name, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check chore name: %w", err)
	}
	return exists, nil
}

func (s *ChoreStore) List(ctx context.Context) ([]model.Chore, error) {
	return s.queryChores(ctx, `SELECT `+choreCols+` FROM chores ORDER BY name ASC`)
}

func (s *ChoreStore) ListByAssignee(ctx context.Context, personID int64) ([]model.Chore, error) {
	return s.queryChores(ctx, `SELECT `+choreCols+` FROM chores WHERE assigned_to = ? ORDER BY name ASC`, personID)
}

func (s *ChoreStore) queryChores(ctx context.Context, query string, args ...any) ([]model.Chore, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

func (s *ChoreStore) Update(ctx context.Context, id int64, f ChoreFields) (*model.Chore, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chores SET name = ?, description = ?, assigned_to = ? WHERE id = ?`,
		f.Name, f.Description, nullInt64(f.AssignedTo), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ChoreStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}

// Reassign moves every chore assigned to from over to to. A nil to leaves the
// chores unassigned.
func (s *ChoreStore) Reassign(ctx context.Context, from int64, to *int64) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE chores SET assigned_to = ? WHERE assigned_to = ?`, nullInt64(to), from,
	)
	if err != nil {
		return 0, fmt.Errorf("reassign chores: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (s *ChoreStore) ClearLastCompletedBy(ctx context.Context, personID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chores SET last_completed_by = NULL WHERE last_completed_by = ?`, personID,
	)
	if err != nil {
		return fmt.Errorf("clear last completed by: %w", err)
	}
	return nil
}

// RecordCompletion marks a chore done by who at the given time and hands it
// to next. A nil next leaves the chore unassigned.
func (s *ChoreStore) RecordCompletion(ctx context.Context, id, by int64, at time.Time, next *int64) (*model.Chore, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chores SET last_completed_by = ?, last_completed_at = ?, assigned_to = ? WHERE id = ?`,
		by, at.UTC(), nullInt64(next), id,
	)
	if err != nil {
		return nil, fmt.Errorf("record completion: %w", err)
	}
	return s.GetByID(ctx, id)
}

// --- Completion history ---

func (s *ChoreStore) CreateCompletion(ctx context.Context, choreID int64, by *int64, at time.Time) (*model.ChoreCompletion, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO chore_completions (chore_id, completed_by, completed_at) VALUES (?, ?, ?)`,
		choreID, nullInt64(by), at.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, chore_id, completed_by, completed_at FROM chore_completions WHERE id = ?`, id,
	)
	comp, err := scanCompletion(row)
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return comp, nil
}

// ListCompletionsByChore returns a chore's history, newest first.
func (s *ChoreStore) ListCompletionsByChore(ctx context.Context, choreID int64) ([]model.ChoreCompletion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chore_id, completed_by, completed_at FROM chore_completions
		 WHERE chore_id = ? ORDER BY completed_at DESC, id DESC`, choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var completions []model.ChoreCompletion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.ChoreCompletion, error) {
	var c model.ChoreCompletion
	var by sql.NullInt64
	if err := scanner.Scan(&c.ID, &c.ChoreID, &by, &c.CompletedAt); err != nil {
		return nil, err
	}
	c.CompletedBy = int64Ptr(by)
	return &c, nil
}
