package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codejudge/internal/common"
	"codejudge/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type ProblemRepository interface {
	// CreateProblemWithDetails inserts the problem together with its tags,
	// test cases and reference solutions in one transaction. Callers run
	// validation first; nothing is persisted if any insert fails.
	CreateProblemWithDetails(ctx context.Context, p *model.Problem) error
	FindProblemByID(ctx context.Context, id string) (*model.Problem, error)
	FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error)
	ListProblems(ctx context.Context, limit, offset int, difficulty model.ProblemDifficulty) ([]model.Problem, int, error)
	GetTestCasesByProblemID(ctx context.Context, problemID string, hidden bool) ([]model.TestCase, error)
	GetSolutionsByProblemID(ctx context.Context, problemID string) ([]model.ReferenceSolution, error)
	GetTagsByProblemID(ctx context.Context, problemID string) ([]string, error)
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

func (r *pgProblemRepository) CreateProblemWithDetails(ctx context.Context, p *model.Problem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.CreateProblemWithDetails begin: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO problems (id, title, slug, description, difficulty, points, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, query, p.ID, p.Title, p.Slug, p.Description, p.Difficulty, p.Points, p.CreatedByID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint for slug
			return fmt.Errorf("problem with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgProblemRepository.CreateProblemWithDetails insert problem: %w", err)
	}

	for _, tag := range p.Tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO problem_tags (problem_id, tag) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			p.ID, tag); err != nil {
			return fmt.Errorf("pgProblemRepository.CreateProblemWithDetails insert tag %q: %w", tag, err)
		}
	}

	if err := r.insertTestCases(ctx, tx, p.ID, p.Examples); err != nil {
		return err
	}
	if err := r.insertTestCases(ctx, tx, p.ID, p.TestCases); err != nil {
		return err
	}

	for _, sol := range p.Solutions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO reference_solutions (id, problem_id, language, source_code, sort_order)
			 VALUES ($1, $2, $3, $4, $5)`,
			sol.ID, p.ID, sol.Language, sol.SourceCode, sol.SortOrder); err != nil {
			return fmt.Errorf("pgProblemRepository.CreateProblemWithDetails insert solution %s: %w", sol.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgProblemRepository.CreateProblemWithDetails commit: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) insertTestCases(ctx context.Context, tx *sql.Tx, problemID string, testCases []model.TestCase) error {
	if len(testCases) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO test_cases (id, problem_id, input, expected_output, explanation, is_hidden, sort_order)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.insertTestCases prepare: %w", err)
	}
	defer stmt.Close()

	for i, tc := range testCases {
		tc.SortOrder = i + 1
		if _, err := stmt.ExecContext(ctx, tc.ID, problemID, tc.Input, tc.ExpectedOutput, tc.Explanation, tc.IsHidden, tc.SortOrder); err != nil {
			return fmt.Errorf("pgProblemRepository.insertTestCases exec for test case %s: %w", tc.ID, err)
		}
	}
	return nil
}

func (r *pgProblemRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	return r.findProblemBy(ctx, "id", id)
}

func (r *pgProblemRepository) FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error) {
	return r.findProblemBy(ctx, "slug", slug)
}

func (r *pgProblemRepository) findProblemBy(ctx context.Context, column, value string) (*model.Problem, error) {
	query := `SELECT id, title, slug, description, difficulty, points, created_by, created_at, updated_at
	          FROM problems WHERE ` + column + ` = $1`
	problem := &model.Problem{}
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&problem.ID, &problem.Title, &problem.Slug, &problem.Description, &problem.Difficulty,
		&problem.Points, &problem.CreatedByID, &problem.CreatedAt, &problem.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.findProblemBy %s: %w", column, err)
	}
	return problem, nil
}

func (r *pgProblemRepository) ListProblems(ctx context.Context, limit, offset int, difficulty model.ProblemDifficulty) ([]model.Problem, int, error) {
	countQuery := `SELECT COUNT(*) FROM problems WHERE ($1 = '' OR difficulty = $1)`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, string(difficulty)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems count: %w", err)
	}

	query := `SELECT id, title, slug, description, difficulty, points, created_by, created_at, updated_at
	          FROM problems WHERE ($1 = '' OR difficulty = $1)
	          ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, string(difficulty), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems query: %w", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		var p model.Problem
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Description, &p.Difficulty,
			&p.Points, &p.CreatedByID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems scan: %w", err)
		}
		problems = append(problems, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems rows.Err: %w", err)
	}
	return problems, total, nil
}

func (r *pgProblemRepository) GetTestCasesByProblemID(ctx context.Context, problemID string, hidden bool) ([]model.TestCase, error) {
	query := `SELECT id, problem_id, input, expected_output, explanation, is_hidden, sort_order, created_at
	          FROM test_cases WHERE problem_id = $1 AND is_hidden = $2 ORDER BY sort_order ASC`
	rows, err := r.db.QueryContext(ctx, query, problemID, hidden)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTestCasesByProblemID query: %w", err)
	}
	defer rows.Close()

	var testCases []model.TestCase
	for rows.Next() {
		var tc model.TestCase
		if err := rows.Scan(&tc.ID, &tc.ProblemID, &tc.Input, &tc.ExpectedOutput, &tc.Explanation, &tc.IsHidden, &tc.SortOrder, &tc.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetTestCasesByProblemID scan: %w", err)
		}
		testCases = append(testCases, tc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTestCasesByProblemID rows.Err: %w", err)
	}
	return testCases, nil
}

func (r *pgProblemRepository) GetSolutionsByProblemID(ctx context.Context, problemID string) ([]model.ReferenceSolution, error) {
	query := `SELECT id, problem_id, language, source_code, sort_order, created_at
	          FROM reference_solutions WHERE problem_id = $1 ORDER BY sort_order ASC`
	rows, err := r.db.QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetSolutionsByProblemID query: %w", err)
	}
	defer rows.Close()

	var solutions []model.ReferenceSolution
	for rows.Next() {
		var sol model.ReferenceSolution
		if err := rows.Scan(&sol.ID, &sol.ProblemID, &sol.Language, &sol.SourceCode, &sol.SortOrder, &sol.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetSolutionsByProblemID scan: %w", err)
		}
		solutions = append(solutions, sol)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetSolutionsByProblemID rows.Err: %w", err)
	}
	return solutions, nil
}

func (r *pgProblemRepository) GetTagsByProblemID(ctx context.Context, problemID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tag FROM problem_tags WHERE problem_id = $1 ORDER BY tag`, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTagsByProblemID query: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetTagsByProblemID scan: %w", err)
		}
		tags = append(tags, tag)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTagsByProblemID rows.Err: %w", err)
	}
	return tags, nil
}
