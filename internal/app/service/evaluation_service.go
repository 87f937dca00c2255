package service

import (
	"context"
	"fmt"

	"codejudge/internal/common"
	"codejudge/internal/domain/model"
	"codejudge/internal/domain/repository"
	"codejudge/internal/judge"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// JudgeClient is the boundary to the external execution service.
type JudgeClient interface {
	LanguageID(name string) (int, error)
	SubmitBatch(ctx context.Context, items []judge.BatchItem) ([]string, error)
	AwaitResults(ctx context.Context, tokens []string) ([]judge.Result, error)
}

// Leaderboard receives solve counts for newly solved problems.
type Leaderboard interface {
	IncrementSolved(ctx context.Context, userID string) error
}

type EvaluationInput struct {
	UserID     string
	ProblemID  string
	TestCases  []model.TestCase
	SourceCode string
	Language   string
	Persist    bool
}

// Evaluator runs one submission against a problem's test cases and reduces
// the per-test results into a single verdict.
type Evaluator interface {
	Evaluate(ctx context.Context, in EvaluationInput) (*model.EvaluationOutcome, error)
}

type EvaluationService struct {
	judge          JudgeClient
	submissionRepo repository.SubmissionRepository
	leaderboard    Leaderboard
	logger         zerolog.Logger
}

func NewEvaluationService(judgeClient JudgeClient, subRepo repository.SubmissionRepository, leaderboard Leaderboard, logger zerolog.Logger) *EvaluationService {
	return &EvaluationService{
		judge:          judgeClient,
		submissionRepo: subRepo,
		leaderboard:    leaderboard,
		logger:         logger.With().Str("component", "evaluation-service").Logger(),
	}
}

// Evaluate dispatches one batch item per test case, awaits the results and
// reduces them. In persist mode a Pending submission is written before
// dispatch and finalized exactly once afterwards; a fully accepted verdict
// also updates the user's solved set.
func (s *EvaluationService) Evaluate(ctx context.Context, in EvaluationInput) (*model.EvaluationOutcome, error) {
	languageID, err := s.judge.LanguageID(in.Language)
	if err != nil {
		return nil, fmt.Errorf("unsupported language %q: %w", in.Language, common.ErrBadRequest)
	}
	if len(in.TestCases) == 0 {
		return nil, fmt.Errorf("no test cases to evaluate: %w", common.ErrBadRequest)
	}

	var sub *model.Submission
	if in.Persist {
		sub = &model.Submission{
			ID:             uuid.NewString(),
			UserID:         in.UserID,
			ProblemID:      in.ProblemID,
			Language:       in.Language,
			Code:           in.SourceCode,
			TotalTestCases: len(in.TestCases),
		}
		if err := s.submissionRepo.CreatePending(ctx, sub); err != nil {
			return nil, common.Errorf("failed to create pending submission: %w", err)
		}
	}

	items := make([]judge.BatchItem, 0, len(in.TestCases))
	for _, tc := range in.TestCases {
		items = append(items, judge.BatchItem{
			SourceCode:     in.SourceCode,
			LanguageID:     languageID,
			Stdin:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
		})
	}

	tokens, err := s.judge.SubmitBatch(ctx, items)
	if err != nil {
		return nil, s.failPipeline(ctx, sub, err)
	}
	results, err := s.judge.AwaitResults(ctx, tokens)
	if err != nil {
		return nil, s.failPipeline(ctx, sub, err)
	}

	outcome := Reduce(in.TestCases, results)

	if in.Persist {
		status := model.StatusFailed
		if outcome.Accepted {
			status = model.StatusAccepted
		}
		if err := s.submissionRepo.Finalize(ctx, sub.ID, status, outcome.PassedTestCases, outcome.Runtime, outcome.MemoryKB); err != nil {
			return nil, common.Errorf("failed to finalize submission %s: %w", sub.ID, err)
		}
		if outcome.Accepted {
			s.markSolved(ctx, in.UserID, in.ProblemID, sub.ID)
		}
	}

	s.logger.Info().
		Str("problem_id", in.ProblemID).
		Bool("accepted", outcome.Accepted).
		Int("passed", outcome.PassedTestCases).
		Int("total", outcome.TotalTestCases).
		Msg("Evaluation completed")
	return outcome, nil
}

// failPipeline finalizes a pending submission as Failed when the judge
// dependency errors out, so a Pending record never survives and the verdict
// can never read as accepted.
func (s *EvaluationService) failPipeline(ctx context.Context, sub *model.Submission, cause error) error {
	if sub != nil {
		if err := s.submissionRepo.Finalize(ctx, sub.ID, model.StatusFailed, 0, 0, 0); err != nil {
			s.logger.Error().Err(err).Str("submission_id", sub.ID).Msg("Failed to finalize submission after judge error")
		}
	}
	return fmt.Errorf("%w: %w", common.ErrEvaluationFailed, cause)
}

func (s *EvaluationService) markSolved(ctx context.Context, userID, problemID, submissionID string) {
	newlySolved, err := s.submissionRepo.MarkProblemSolved(ctx, userID, problemID, submissionID)
	if err != nil {
		s.logger.Warn().Err(err).Str("problem_id", problemID).Str("user_id", userID).Msg("Failed to mark problem solved")
		return
	}
	if !newlySolved || s.leaderboard == nil {
		return
	}
	if err := s.leaderboard.IncrementSolved(ctx, userID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to update leaderboard")
	}
}

// Reduce folds per-test judge results into a single verdict. It pairs
// result[i] with testCases[i] positionally, counts Accepted entries, sums
// elapsed time (total compute consumed) and takes the maximum memory (peak
// footprint). The overall verdict is accepted only when every test case is.
func Reduce(testCases []model.TestCase, results []judge.Result) *model.EvaluationOutcome {
	outcome := &model.EvaluationOutcome{
		TotalTestCases: len(results),
		TestCases:      make([]model.TestCaseOutcome, 0, len(results)),
	}

	for i, res := range results {
		detail := model.TestCaseOutcome{
			Stdout:   res.Stdout,
			StatusID: int(res.Status),
			Runtime:  res.Time,
			MemoryKB: res.MemoryKB,
			Error:    errorText(res),
		}
		if i < len(testCases) {
			tc := testCases[i]
			detail.Stdin = tc.Input
			detail.ExpectedOutput = tc.ExpectedOutput
			if tc.Explanation != nil {
				detail.Explanation = *tc.Explanation
			}
		}

		if res.Status.Passed() {
			outcome.PassedTestCases++
		}
		outcome.Runtime += res.Time
		if res.MemoryKB > outcome.MemoryKB {
			outcome.MemoryKB = res.MemoryKB
		}
		outcome.TestCases = append(outcome.TestCases, detail)
	}

	outcome.Accepted = outcome.TotalTestCases > 0 && outcome.PassedTestCases == outcome.TotalTestCases
	return outcome
}

func errorText(res judge.Result) string {
	if res.CompileOutput != "" {
		return res.CompileOutput
	}
	return res.Stderr
}
