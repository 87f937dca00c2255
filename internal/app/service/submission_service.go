package service

import (
	"context"

	"codejudge/internal/common"
	"codejudge/internal/domain/model"
	"codejudge/internal/domain/repository"

	"github.com/rs/zerolog"
)

type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	problemRepo    repository.ProblemRepository
	evaluator      Evaluator
	logger         zerolog.Logger
}

func NewSubmissionService(
	subRepo repository.SubmissionRepository,
	probRepo repository.ProblemRepository,
	evaluator Evaluator,
	logger zerolog.Logger,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: subRepo,
		problemRepo:    probRepo,
		evaluator:      evaluator,
		logger:         logger.With().Str("component", "submission-service").Logger(),
	}
}

type EvaluationRequest struct {
	ProblemID string `json:"problemId"`
	Code      string `json:"code"`
	Language  string `json:"language"`
}

// Run evaluates the code against the problem's visible test cases without
// persisting anything; it exists for a user to sample behavior without
// committing a graded attempt.
func (s *SubmissionService) Run(ctx context.Context, req EvaluationRequest) (*model.EvaluationOutcome, error) {
	problem, testCases, err := s.loadProblemTestCases(ctx, req.ProblemID, false)
	if err != nil {
		return nil, err
	}

	return s.evaluator.Evaluate(ctx, EvaluationInput{
		ProblemID:  problem.ID,
		TestCases:  testCases,
		SourceCode: req.Code,
		Language:   req.Language,
		Persist:    false,
	})
}

// Submit grades the code against the problem's hidden test cases, records
// the attempt durably and updates the solved set on full acceptance.
func (s *SubmissionService) Submit(ctx context.Context, userID string, req EvaluationRequest) (*model.EvaluationOutcome, error) {
	problem, testCases, err := s.loadProblemTestCases(ctx, req.ProblemID, true)
	if err != nil {
		return nil, err
	}

	return s.evaluator.Evaluate(ctx, EvaluationInput{
		UserID:     userID,
		ProblemID:  problem.ID,
		TestCases:  testCases,
		SourceCode: req.Code,
		Language:   req.Language,
		Persist:    true,
	})
}

func (s *SubmissionService) ListMySubmissions(ctx context.Context, userID string, page, pageSize int) ([]model.Submission, int, error) {
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	return s.submissionRepo.ListByUser(ctx, userID, pageSize, offset)
}

func (s *SubmissionService) loadProblemTestCases(ctx context.Context, problemID string, hidden bool) (*model.Problem, []model.TestCase, error) {
	if problemID == "" {
		return nil, nil, common.Errorf("missing problem id: %w", common.ErrBadRequest)
	}
	problem, err := s.problemRepo.FindProblemByID(ctx, problemID)
	if err != nil {
		return nil, nil, common.Errorf("problem not found: %w", err)
	}
	testCases, err := s.problemRepo.GetTestCasesByProblemID(ctx, problem.ID, hidden)
	if err != nil {
		return nil, nil, common.Errorf("failed to load test cases for problem %s: %w", problem.ID, err)
	}
	return problem, testCases, nil
}
