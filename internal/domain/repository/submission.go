package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codejudge/internal/common"
	"codejudge/internal/domain/model"
)

type SubmissionRepository interface {
	// CreatePending inserts the submission with status Pending, before the
	// batch is dispatched to the judge service.
	CreatePending(ctx context.Context, sub *model.Submission) error
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	// Finalize is the single permitted mutation: it moves a Pending record
	// to a terminal status. Finalizing twice returns ErrConflict.
	Finalize(ctx context.Context, submissionID string, status model.SubmissionStatus, passed int, runtime float64, memoryKB int) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, int, error)

	// MarkProblemSolved records membership in the user's solved set via a
	// set-insert; it reports whether the problem was newly solved. Safe
	// under repeated and concurrent calls.
	MarkProblemSolved(ctx context.Context, userID, problemID, submissionID string) (bool, error)
	CountSolvedProblemsByUser(ctx context.Context, userID string) (int, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) CreatePending(ctx context.Context, sub *model.Submission) error {
	query := `INSERT INTO submissions (id, user_id, problem_id, language, code, status, passed_test_cases, total_test_cases, runtime, memory_kb)
	          VALUES ($1, $2, $3, $4, $5, $6, 0, $7, 0, 0)`
	_, err := r.db.ExecContext(ctx, query,
		sub.ID, sub.UserID, sub.ProblemID, sub.Language, sub.Code, model.StatusPending, sub.TotalTestCases)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreatePending: %w", err)
	}
	sub.Status = model.StatusPending
	return nil
}

func (r *pgSubmissionRepository) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT id, user_id, problem_id, language, code, status, passed_test_cases, total_test_cases, runtime, memory_kb, created_at, updated_at
	          FROM submissions WHERE id = $1`
	sub := &model.Submission{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sub.ID, &sub.UserID, &sub.ProblemID, &sub.Language, &sub.Code, &sub.Status,
		&sub.PassedTestCases, &sub.TotalTestCases, &sub.Runtime, &sub.MemoryKB, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID: %w", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) Finalize(ctx context.Context, submissionID string, status model.SubmissionStatus, passed int, runtime float64, memoryKB int) error {
	query := `UPDATE submissions
	          SET status = $2, passed_test_cases = $3, runtime = $4, memory_kb = $5, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, submissionID, status, passed, runtime, memoryKB, model.StatusPending)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.Finalize: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.Finalize rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("submission %s is not pending: %w", submissionID, common.ErrConflict)
	}
	return nil
}

func (r *pgSubmissionRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListByUser count: %w", err)
	}

	query := `SELECT id, user_id, problem_id, language, code, status, passed_test_cases, total_test_cases, runtime, memory_kb, created_at, updated_at
	          FROM submissions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListByUser query: %w", err)
	}
	defer rows.Close()

	submissions := []model.Submission{}
	for rows.Next() {
		var sub model.Submission
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.ProblemID, &sub.Language, &sub.Code, &sub.Status,
			&sub.PassedTestCases, &sub.TotalTestCases, &sub.Runtime, &sub.MemoryKB, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("pgSubmissionRepository.ListByUser scan: %w", err)
		}
		submissions = append(submissions, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListByUser rows.Err: %w", err)
	}
	return submissions, total, nil
}

// MarkProblemSolved relies on the primary key over (user_id, problem_id):
// ON CONFLICT DO NOTHING makes concurrent duplicate solves a no-op without
// a read-check-then-write window.
func (r *pgSubmissionRepository) MarkProblemSolved(ctx context.Context, userID, problemID, submissionID string) (bool, error) {
	query := `INSERT INTO user_solved_problems (user_id, problem_id, submission_id)
	          VALUES ($1, $2, $3) ON CONFLICT (user_id, problem_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, userID, problemID, submissionID)
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.MarkProblemSolved: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.MarkProblemSolved rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *pgSubmissionRepository) CountSolvedProblemsByUser(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_solved_problems WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("pgSubmissionRepository.CountSolvedProblemsByUser: %w", err)
	}
	return count, nil
}
