package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/choreboss/internal/model"
)

// PersonFields are the identity fields of a person that callers may set.
type PersonFields struct {
	FirstName string
	LastName  string
	Birthday  time.Time
	IsAdmin   bool
}

type PersonStore struct {
	db DBTX
}

func NewPersonStore(db DBTX) *PersonStore {
	return &PersonStore{db: db}
}

func scanPerson(scanner interface{ Scan(...any) error }) (*model.Person, error) {
	var p model.Person
	err := scanner.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Birthday, &p.IsAdmin, &p.Sequence, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const personCols = `id, first_name, last_name, birthday, is_admin, sequence, created_at, updated_at`

// Create inserts a person at the given sequence position with an already
// hashed PIN.
func (s *PersonStore) Create(ctx context.Context, f PersonFields, pinHash string, sequence int) (*model.Person, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO people (first_name, last_name, birthday, pin_hash, is_admin, sequence) VALUES (?, ?, ?, ?, ?, ?)`,
		f.FirstName, f.LastName, dateOnly(f.Birthday), pinHash, f.IsAdmin, sequence,
	)
	if err != nil {
		return nil, fmt.Errorf("insert person: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *PersonStore) GetByID(ctx context.Context, id int64) (*model.Person, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+personCols+` FROM people WHERE id = ?`, id)
	p, err := scanPerson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}
	return p, nil
}

// List returns everyone in rotation order.
func (s *PersonStore) List(ctx context.Context) ([]model.Person, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+personCols+` FROM people ORDER BY sequence ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	var people []model.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		people = append(people, *p)
	}
	return people, rows.Err()
}

func (s *PersonStore) Update(ctx context.Context, id int64, f PersonFields) (*model.Person, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE people SET first_name = ?, last_name = ?, birthday = ?, is_admin = ? WHERE id = ?`,
		f.FirstName, f.LastName, dateOnly(f.Birthday), f.IsAdmin, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update person: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *PersonStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM people WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	return nil
}

func (s *PersonStore) SetSequence(ctx context.Context, id int64, sequence int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE people SET sequence = ? WHERE id = ?`, sequence, id)
	if err != nil {
		return fmt.Errorf("set sequence for id %d: %w", id, err)
	}
	return nil
}

func (s *PersonStore) MaxSequence(ctx context.Context) (int, error) {
	var highest int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(sequence), 0) FROM people`).Scan(&highest)
	if err != nil {
		return 0, fmt.Errorf("query max sequence: %w", err)
	}
	return highest, nil
}

func (s *PersonStore) SetPIN(ctx context.Context, id int64, pinHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE people SET pin_hash = ? WHERE id = ?`, pinHash, id)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

func (s *PersonStore) GetPINHash(ctx context.Context, id int64) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT pin_hash FROM people WHERE id = ?`, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("person %d not found", id)
	}
	if err != nil {
		return "", fmt.Errorf("query pin: %w", err)
	}
	return hash, nil
}

// Credentials returns every person's PIN digest and admin flag.
func (s *PersonStore) Credentials(ctx context.Context) ([]model.Credential, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, is_admin, pin_hash FROM people ORDER BY sequence ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer rows.Close()

	var creds []model.Credential
	for rows.Next() {
		var c model.Credential
		if err := rows.Scan(&c.PersonID, &c.IsAdmin, &c.Digest); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

func (s *PersonStore) AdminsExist(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM people WHERE is_admin = 1)`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check admins: %w", err)
	}
	return exists, nil
}

func (s *PersonStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM people`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count people: %w", err)
	}
	return n, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
