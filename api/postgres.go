package main

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

func openDB(cfg config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.db.dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.db.maxOpenConnections)
	db.SetMaxIdleConns(cfg.db.maxIdleConnections)
	db.SetConnMaxIdleTime(cfg.db.maxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// pgStore keeps each collection in its own table. The position column preserves the
// order of the collection across a load/save cycle.
type pgStore struct {
	db *sql.DB
}

func newPGStore(db *sql.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) loadUsers(ctx context.Context) ([]user, error) {
	query := `SELECT id, email, full_name, password_hash
			  FROM users
			  ORDER BY position`
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []user{}
	for rows.Next() {
		var u user
		err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *pgStore) saveUsers(ctx context.Context, users []user) error {
	query := `INSERT INTO users (id, email, full_name, password_hash, position)
			  VALUES ($1, $2, $3, $4, $5)`
	return s.replaceAll(ctx, "DELETE FROM users", query, len(users), func(i int) []any {
		u := users[i]
		return []any{u.ID, u.Email, u.FullName, u.PasswordHash, i}
	})
}

func (s *pgStore) loadTasks(ctx context.Context) ([]task, error) {
	query := `SELECT id, owner_id, content, due_date, completed_date, status
			  FROM tasks
			  ORDER BY position`
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []task{}
	for rows.Next() {
		var (
			t             task
			dueDate       sql.NullTime
			completedDate sql.NullTime
		)
		err := rows.Scan(&t.ID, &t.OwnerID, &t.Content, &dueDate, &completedDate, &t.Status)
		if err != nil {
			return nil, err
		}
		if dueDate.Valid {
			d := dueDate.Time.UTC()
			t.DueDate = &d
		}
		if completedDate.Valid {
			d := completedDate.Time.UTC()
			t.CompletedDate = &d
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *pgStore) saveTasks(ctx context.Context, tasks []task) error {
	query := `INSERT INTO tasks (id, owner_id, content, due_date, completed_date, status, position)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`
	return s.replaceAll(ctx, "DELETE FROM tasks", query, len(tasks), func(i int) []any {
		t := tasks[i]
		return []any{t.ID, t.OwnerID, t.Content, nullTime(t.DueDate), nullTime(t.CompletedDate), string(t.Status), i}
	})
}

// replaceAll clears a table and inserts n rows in a single transaction.
func (s *pgStore) replaceAll(ctx context.Context, clear, insert string, n int, args func(i int) []any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, clear); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
