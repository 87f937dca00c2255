package service

import (
	"context"
	"errors"
	"testing"

	"codejudge/internal/common"
	"codejudge/internal/domain/model"
	"codejudge/internal/judge"

	"github.com/rs/zerolog"
)

type fakeJudge struct {
	submitErr   error
	awaitErr    error
	results     []judge.Result
	submitted   []judge.BatchItem
	submitCalls int
	awaitCalls  int
}

func (f *fakeJudge) LanguageID(name string) (int, error) {
	return judge.LanguageID(name)
}

func (f *fakeJudge) SubmitBatch(_ context.Context, items []judge.BatchItem) ([]string, error) {
	f.submitCalls++
	f.submitted = items
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	tokens := make([]string, len(items))
	for i := range items {
		tokens[i] = "token-" + string(rune('a'+i))
	}
	return tokens, nil
}

func (f *fakeJudge) AwaitResults(_ context.Context, tokens []string) ([]judge.Result, error) {
	f.awaitCalls++
	if f.awaitErr != nil {
		return nil, f.awaitErr
	}
	return f.results, nil
}

type fakeSubmissionRepo struct {
	created       *model.Submission
	finalized     bool
	finalStatus   model.SubmissionStatus
	finalPassed   int
	finalRuntime  float64
	finalMemoryKB int

	markCalls   int
	newlySolved bool
	markErr     error
}

func (f *fakeSubmissionRepo) CreatePending(_ context.Context, sub *model.Submission) error {
	f.created = sub
	sub.Status = model.StatusPending
	return nil
}

func (f *fakeSubmissionRepo) GetSubmissionByID(_ context.Context, id string) (*model.Submission, error) {
	return nil, common.ErrNotFound
}

func (f *fakeSubmissionRepo) Finalize(_ context.Context, submissionID string, status model.SubmissionStatus, passed int, runtime float64, memoryKB int) error {
	if f.finalized {
		return common.ErrConflict
	}
	f.finalized = true
	f.finalStatus = status
	f.finalPassed = passed
	f.finalRuntime = runtime
	f.finalMemoryKB = memoryKB
	return nil
}

func (f *fakeSubmissionRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]model.Submission, int, error) {
	return nil, 0, nil
}

func (f *fakeSubmissionRepo) MarkProblemSolved(_ context.Context, userID, problemID, submissionID string) (bool, error) {
	f.markCalls++
	if f.markErr != nil {
		return false, f.markErr
	}
	return f.newlySolved, nil
}

func (f *fakeSubmissionRepo) CountSolvedProblemsByUser(_ context.Context, userID string) (int, error) {
	return 0, nil
}

type fakeLeaderboard struct {
	increments []string
}

func (f *fakeLeaderboard) IncrementSolved(_ context.Context, userID string) error {
	f.increments = append(f.increments, userID)
	return nil
}

func testCases(n int) []model.TestCase {
	cases := make([]model.TestCase, 0, n)
	for i := 0; i < n; i++ {
		cases = append(cases, model.TestCase{
			Input:          "in-" + string(rune('1'+i)),
			ExpectedOutput: "out-" + string(rune('1'+i)),
		})
	}
	return cases
}

func acceptedResult(time float64, memoryKB int) judge.Result {
	return judge.Result{Status: judge.StatusAccepted, Time: time, MemoryKB: memoryKB}
}

func TestEvaluateAcceptedPersistsAndMarksSolved(t *testing.T) {
	t.Parallel()

	judgeClient := &fakeJudge{results: []judge.Result{
		acceptedResult(0.1, 1000),
		acceptedResult(0.3, 4000),
		acceptedResult(0.2, 2000),
	}}
	subRepo := &fakeSubmissionRepo{newlySolved: true}
	board := &fakeLeaderboard{}
	svc := NewEvaluationService(judgeClient, subRepo, board, zerolog.Nop())

	outcome, err := svc.Evaluate(context.Background(), EvaluationInput{
		UserID:     "user-1",
		ProblemID:  "problem-1",
		TestCases:  testCases(3),
		SourceCode: "print(1)",
		Language:   "python",
		Persist:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !outcome.Accepted {
		t.Fatal("expected an accepted outcome")
	}
	if outcome.PassedTestCases != 3 || outcome.TotalTestCases != 3 {
		t.Fatalf("passed/total = %d/%d, want 3/3", outcome.PassedTestCases, outcome.TotalTestCases)
	}
	if outcome.Runtime != 0.1+0.3+0.2 {
		t.Fatalf("runtime = %v, want sum of per-test times", outcome.Runtime)
	}
	if outcome.MemoryKB != 4000 {
		t.Fatalf("memory = %d, want peak 4000", outcome.MemoryKB)
	}

	if subRepo.created == nil {
		t.Fatal("expected a pending submission to be created")
	}
	if !subRepo.finalized || subRepo.finalStatus != model.StatusAccepted {
		t.Fatalf("expected finalize as Accepted, got finalized=%v status=%s", subRepo.finalized, subRepo.finalStatus)
	}
	if subRepo.markCalls != 1 {
		t.Fatalf("MarkProblemSolved calls = %d, want 1", subRepo.markCalls)
	}
	if len(board.increments) != 1 || board.increments[0] != "user-1" {
		t.Fatalf("leaderboard increments = %v, want exactly one for user-1", board.increments)
	}

	if len(judgeClient.submitted) != 3 {
		t.Fatalf("submitted %d batch items, want 3", len(judgeClient.submitted))
	}
	if judgeClient.submitted[1].Stdin != "in-2" || judgeClient.submitted[1].ExpectedOutput != "out-2" {
		t.Fatalf("batch item 1 carries wrong test case: %+v", judgeClient.submitted[1])
	}
}

func TestEvaluateRunModeDoesNotPersist(t *testing.T) {
	t.Parallel()

	judgeClient := &fakeJudge{results: []judge.Result{acceptedResult(0.1, 512)}}
	subRepo := &fakeSubmissionRepo{}
	svc := NewEvaluationService(judgeClient, subRepo, &fakeLeaderboard{}, zerolog.Nop())

	outcome, err := svc.Evaluate(context.Background(), EvaluationInput{
		TestCases:  testCases(1),
		SourceCode: "print(1)",
		Language:   "python",
		Persist:    false,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Accepted {
		t.Fatal("expected an accepted outcome")
	}
	if subRepo.created != nil || subRepo.finalized || subRepo.markCalls != 0 {
		t.Fatal("run mode must not touch the submission ledger")
	}
}

func TestEvaluateWrongAnswerFinalizesFailed(t *testing.T) {
	t.Parallel()

	judgeClient := &fakeJudge{results: []judge.Result{
		acceptedResult(0.1, 1000),
		{Status: judge.StatusWrongAnswer, Time: 0.2, MemoryKB: 900, Stdout: "3"},
	}}
	subRepo := &fakeSubmissionRepo{}
	board := &fakeLeaderboard{}
	svc := NewEvaluationService(judgeClient, subRepo, board, zerolog.Nop())

	outcome, err := svc.Evaluate(context.Background(), EvaluationInput{
		UserID:    "user-1",
		ProblemID: "problem-1",
		TestCases: testCases(2),
		Language:  "python",
		Persist:   true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Accepted {
		t.Fatal("one wrong answer must reject the whole submission")
	}
	if outcome.PassedTestCases != 1 {
		t.Fatalf("passed = %d, want 1", outcome.PassedTestCases)
	}
	if outcome.TestCases[1].StatusID != int(judge.StatusWrongAnswer) {
		t.Fatalf("second detail status = %d, want %d", outcome.TestCases[1].StatusID, judge.StatusWrongAnswer)
	}
	if subRepo.finalStatus != model.StatusFailed {
		t.Fatalf("final status = %s, want Failed", subRepo.finalStatus)
	}
	if subRepo.markCalls != 0 || len(board.increments) != 0 {
		t.Fatal("rejected submission must not touch the solved set or leaderboard")
	}
}

func TestEvaluateJudgeTimeoutFinalizesFailed(t *testing.T) {
	t.Parallel()

	judgeClient := &fakeJudge{awaitErr: judge.ErrTimeout}
	subRepo := &fakeSubmissionRepo{}
	svc := NewEvaluationService(judgeClient, subRepo, &fakeLeaderboard{}, zerolog.Nop())

	_, err := svc.Evaluate(context.Background(), EvaluationInput{
		UserID:    "user-1",
		ProblemID: "problem-1",
		TestCases: testCases(1),
		Language:  "python",
		Persist:   true,
	})
	if !errors.Is(err, common.ErrEvaluationFailed) {
		t.Fatalf("expected ErrEvaluationFailed, got %v", err)
	}
	if !errors.Is(err, judge.ErrTimeout) {
		t.Fatalf("expected wrapped judge.ErrTimeout, got %v", err)
	}
	if !subRepo.finalized || subRepo.finalStatus != model.StatusFailed {
		t.Fatal("pending submission must be finalized as Failed after a judge error")
	}
}

func TestEvaluateSubmitErrorWithoutPersist(t *testing.T) {
	t.Parallel()

	judgeClient := &fakeJudge{submitErr: judge.ErrServiceUnavailable}
	subRepo := &fakeSubmissionRepo{}
	svc := NewEvaluationService(judgeClient, subRepo, &fakeLeaderboard{}, zerolog.Nop())

	_, err := svc.Evaluate(context.Background(), EvaluationInput{
		TestCases: testCases(1),
		Language:  "python",
		Persist:   false,
	})
	if !errors.Is(err, common.ErrEvaluationFailed) {
		t.Fatalf("expected ErrEvaluationFailed, got %v", err)
	}
	if subRepo.finalized {
		t.Fatal("nothing to finalize in run mode")
	}
}

func TestEvaluateUnsupportedLanguage(t *testing.T) {
	t.Parallel()

	judgeClient := &fakeJudge{}
	subRepo := &fakeSubmissionRepo{}
	svc := NewEvaluationService(judgeClient, subRepo, &fakeLeaderboard{}, zerolog.Nop())

	_, err := svc.Evaluate(context.Background(), EvaluationInput{
		TestCases: testCases(1),
		Language:  "brainfuck",
		Persist:   true,
	})
	if !errors.Is(err, common.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
	if subRepo.created != nil || judgeClient.submitCalls != 0 {
		t.Fatal("nothing should be created or dispatched for an unknown language")
	}
}

func TestEvaluateNoTestCases(t *testing.T) {
	t.Parallel()

	svc := NewEvaluationService(&fakeJudge{}, &fakeSubmissionRepo{}, &fakeLeaderboard{}, zerolog.Nop())
	_, err := svc.Evaluate(context.Background(), EvaluationInput{Language: "python", Persist: false})
	if !errors.Is(err, common.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestEvaluateAlreadySolvedSkipsLeaderboard(t *testing.T) {
	t.Parallel()

	judgeClient := &fakeJudge{results: []judge.Result{acceptedResult(0.1, 100)}}
	subRepo := &fakeSubmissionRepo{newlySolved: false}
	board := &fakeLeaderboard{}
	svc := NewEvaluationService(judgeClient, subRepo, board, zerolog.Nop())

	_, err := svc.Evaluate(context.Background(), EvaluationInput{
		UserID:    "user-1",
		ProblemID: "problem-1",
		TestCases: testCases(1),
		Language:  "python",
		Persist:   true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subRepo.markCalls != 1 {
		t.Fatalf("MarkProblemSolved calls = %d, want 1", subRepo.markCalls)
	}
	if len(board.increments) != 0 {
		t.Fatal("re-solving a problem must not increment the leaderboard")
	}
}

func TestReduceErrorTextPrefersCompileOutput(t *testing.T) {
	t.Parallel()

	results := []judge.Result{
		{Status: judge.StatusCompilationError, Stderr: "ignored", CompileOutput: "syntax error on line 3"},
		{Status: judge.StatusWrongAnswer, Stderr: "runtime blew up"},
	}
	outcome := Reduce(testCases(2), results)

	if outcome.TestCases[0].Error != "syntax error on line 3" {
		t.Fatalf("error text = %q, want compile output", outcome.TestCases[0].Error)
	}
	if outcome.TestCases[1].Error != "runtime blew up" {
		t.Fatalf("error text = %q, want stderr", outcome.TestCases[1].Error)
	}
	if outcome.Accepted {
		t.Fatal("no test passed, outcome must be rejected")
	}
}

func TestReduceEmptyResults(t *testing.T) {
	t.Parallel()

	outcome := Reduce(nil, nil)
	if outcome.Accepted {
		t.Fatal("zero test cases must not read as accepted")
	}
	if outcome.TotalTestCases != 0 || len(outcome.TestCases) != 0 {
		t.Fatalf("unexpected outcome for empty input: %+v", outcome)
	}
}
