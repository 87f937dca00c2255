package service

import (
	"context"
	"fmt"

	"codejudge/internal/common"
	"codejudge/internal/domain/model"
	"codejudge/internal/domain/repository"
	"codejudge/internal/judge"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"
)

type ProblemService struct {
	problemRepo repository.ProblemRepository
	evaluator   Evaluator
	logger      zerolog.Logger
}

func NewProblemService(problemRepo repository.ProblemRepository, evaluator Evaluator, logger zerolog.Logger) *ProblemService {
	return &ProblemService{
		problemRepo: problemRepo,
		evaluator:   evaluator,
		logger:      logger.With().Str("component", "problem-service").Logger(),
	}
}

type TestCaseInput struct {
	Input          string  `json:"input"`
	ExpectedOutput string  `json:"expected_output"`
	Explanation    *string `json:"explanation,omitempty"`
}

type SolutionInput struct {
	Language   string `json:"language"`
	SourceCode string `json:"source_code"`
}

type CreateProblemRequest struct {
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Difficulty  model.ProblemDifficulty `json:"difficulty"`
	Points      int                     `json:"points"`
	Tags        []string                `json:"tags"`
	Examples    []TestCaseInput         `json:"examples"`   // visible
	TestCases   []TestCaseInput         `json:"test_cases"` // hidden
	Solutions   []SolutionInput         `json:"solutions"`
}

var defaultPoints = map[model.ProblemDifficulty]int{
	model.DifficultyEasy:   100,
	model.DifficultyMedium: 200,
	model.DifficultyHard:   300,
}

// CreateProblem validates every declared reference solution against the
// visible test cases before anything is persisted. The first solution whose
// reduction is not fully accepted aborts creation with a specific rejection
// reason and no partial problem record.
func (s *ProblemService) CreateProblem(ctx context.Context, userID string, req CreateProblemRequest) (*model.Problem, error) {
	if req.Title == "" || req.Description == "" || req.Difficulty == "" {
		return nil, common.Errorf("missing required fields for problem creation: %w", common.ErrBadRequest)
	}
	if len(req.Examples) == 0 || len(req.TestCases) == 0 {
		return nil, common.Errorf("problem needs at least one visible and one hidden test case: %w", common.ErrBadRequest)
	}
	if len(req.Solutions) == 0 {
		return nil, common.Errorf("problem needs at least one reference solution: %w", common.ErrBadRequest)
	}

	problem := &model.Problem{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Slug:        slug.Make(req.Title),
		Description: req.Description,
		Difficulty:  req.Difficulty,
		Points:      req.Points,
		Tags:        req.Tags,
		CreatedByID: &userID,
		Examples:    buildTestCases(req.Examples, false),
		TestCases:   buildTestCases(req.TestCases, true),
	}
	if problem.Points == 0 {
		problem.Points = defaultPoints[req.Difficulty]
	}
	for i, sol := range req.Solutions {
		problem.Solutions = append(problem.Solutions, model.ReferenceSolution{
			ID:         uuid.NewString(),
			ProblemID:  problem.ID,
			Language:   sol.Language,
			SourceCode: sol.SourceCode,
			SortOrder:  i + 1,
		})
	}

	for i, sol := range problem.Solutions {
		outcome, err := s.evaluator.Evaluate(ctx, EvaluationInput{
			ProblemID:  problem.ID,
			TestCases:  problem.Examples,
			SourceCode: sol.SourceCode,
			Language:   sol.Language,
			Persist:    false,
		})
		if err != nil {
			return nil, common.Errorf("failed to validate reference solution %d: %w", i+1, err)
		}
		if !outcome.Accepted {
			return nil, fmt.Errorf("reference solution %d rejected: %s: %w", i+1, rejectionReason(outcome), common.ErrValidation)
		}
		s.logger.Info().Str("problem", problem.Slug).Int("solution", i+1).Msg("Reference solution accepted")
	}

	if err := s.problemRepo.CreateProblemWithDetails(ctx, problem); err != nil {
		return nil, common.Errorf("failed to create problem: %w", err)
	}

	s.logger.Info().Str("problem_id", problem.ID).Str("slug", problem.Slug).Msg("Problem created")
	return problem, nil
}

func buildTestCases(inputs []TestCaseInput, hidden bool) []model.TestCase {
	testCases := make([]model.TestCase, 0, len(inputs))
	for i, in := range inputs {
		testCases = append(testCases, model.TestCase{
			ID:             uuid.NewString(),
			Input:          in.Input,
			ExpectedOutput: in.ExpectedOutput,
			Explanation:    in.Explanation,
			IsHidden:       hidden,
			SortOrder:      i + 1,
		})
	}
	return testCases
}

// rejectionReason names the first non-accepted test case's failure kind.
func rejectionReason(outcome *model.EvaluationOutcome) string {
	for i, tc := range outcome.TestCases {
		status := judge.Status(tc.StatusID)
		if !status.Passed() {
			return fmt.Sprintf("%s on test case %d", status, i+1)
		}
	}
	return "not all test cases accepted"
}

func (s *ProblemService) GetProblemDetails(ctx context.Context, problemSlug, userRole string) (*model.Problem, error) {
	problem, err := s.problemRepo.FindProblemBySlug(ctx, problemSlug)
	if err != nil {
		return nil, err
	}

	if problem.Tags, err = s.problemRepo.GetTagsByProblemID(ctx, problem.ID); err != nil {
		s.logger.Warn().Err(err).Str("problem_id", problem.ID).Msg("Failed to fetch tags")
	}
	if problem.Examples, err = s.problemRepo.GetTestCasesByProblemID(ctx, problem.ID, false); err != nil {
		s.logger.Warn().Err(err).Str("problem_id", problem.ID).Msg("Failed to fetch examples")
	}

	// Hidden test cases and reference solutions never leave the admin view.
	if userRole == model.RoleAdmin {
		if problem.TestCases, err = s.problemRepo.GetTestCasesByProblemID(ctx, problem.ID, true); err != nil {
			s.logger.Warn().Err(err).Str("problem_id", problem.ID).Msg("Failed to fetch hidden test cases")
		}
		if problem.Solutions, err = s.problemRepo.GetSolutionsByProblemID(ctx, problem.ID); err != nil {
			s.logger.Warn().Err(err).Str("problem_id", problem.ID).Msg("Failed to fetch solutions")
		}
	}
	return problem, nil
}

func (s *ProblemService) ListProblems(ctx context.Context, page, pageSize int, difficulty model.ProblemDifficulty) ([]model.Problem, int, error) {
	limit := pageSize
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}

	problems, total, err := s.problemRepo.ListProblems(ctx, limit, offset, difficulty)
	if err != nil {
		return nil, 0, err
	}
	for i := range problems {
		tags, err := s.problemRepo.GetTagsByProblemID(ctx, problems[i].ID)
		if err == nil {
			problems[i].Tags = tags
		}
	}
	return problems, total, nil
}
