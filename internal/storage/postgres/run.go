package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"hrp_projects/internal/domain"
)

// RunStore is the audit ledger of sync runs and their per-dataset actions.
type RunStore struct {
	db *sqlx.DB
	tx *TransactionManager
}

func NewRunStore(db *sqlx.DB) *RunStore {
	return &RunStore{db: db, tx: NewTransactionManager(db)}
}

// Save writes the run and its action log atomically.
func (s *RunStore) Save(ctx context.Context, run *domain.SyncRun) error {
	return s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.insertRun(txCtx, run); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		if err := s.insertActions(txCtx, run.ID, run.Actions); err != nil {
			return fmt.Errorf("insert actions: %w", err)
		}
		return nil
	})
}

func (s *RunStore) insertRun(ctx context.Context, run *domain.SyncRun) error {
	query := `
		INSERT INTO sync_runs (id, started_at, finished_at, countries, created, updated, unchanged, deleted, errors, dry_run)
		VALUES (:id, :started_at, :finished_at, :countries, :created, :updated, :unchanged, :deleted, :errors, :dry_run)`

	_, err := sqlx.NamedExecContext(ctx, GetExecutor(ctx, s.db), query, run)
	return err
}

func (s *RunStore) insertActions(ctx context.Context, runID string, actions []domain.ActionLog) error {
	if len(actions) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO sync_actions (run_id, dataset_id, action, error) VALUES ")
	args := make([]any, 0, len(actions)*3+1)
	args = append(args, runID)

	for i, a := range actions {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i*3 + 2
		sb.WriteString("($1, $" + strconv.Itoa(n) + ", $" + strconv.Itoa(n+1) + ", $" + strconv.Itoa(n+2) + ")")
		args = append(args, a.DatasetID, a.Action, a.Error)
	}

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, sb.String(), args...)
	return err
}

// Get loads a run with its actions in the order they were applied.
func (s *RunStore) Get(ctx context.Context, id string) (*domain.SyncRun, error) {
	var run domain.SyncRun
	query := `
		SELECT id, started_at, finished_at, countries, created, updated, unchanged, deleted, errors, dry_run
		FROM sync_runs
		WHERE id = $1`

	err := s.db.GetContext(ctx, &run, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	err = s.db.SelectContext(ctx, &run.Actions, `
		SELECT dataset_id, action, error
		FROM sync_actions
		WHERE run_id = $1
		ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("select actions: %w", err)
	}

	return &run, nil
}

// Latest returns the most recently started run.
func (s *RunStore) Latest(ctx context.Context) (*domain.SyncRun, error) {
	var id string
	err := s.db.GetContext(ctx, &id, `SELECT id FROM sync_runs ORDER BY started_at DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}
