package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"codejudge/internal/app/service"
	"codejudge/internal/common"
	"codejudge/internal/domain/model"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type stubEvaluator struct {
	outcome *model.EvaluationOutcome
	err     error
	lastIn  service.EvaluationInput
}

func (s *stubEvaluator) Evaluate(_ context.Context, in service.EvaluationInput) (*model.EvaluationOutcome, error) {
	s.lastIn = in
	if s.err != nil {
		return nil, s.err
	}
	return s.outcome, nil
}

type stubProblemRepo struct {
	problem   *model.Problem
	testCases []model.TestCase
}

func (s *stubProblemRepo) CreateProblemWithDetails(context.Context, *model.Problem) error {
	return nil
}

func (s *stubProblemRepo) FindProblemByID(_ context.Context, id string) (*model.Problem, error) {
	if s.problem != nil && s.problem.ID == id {
		return s.problem, nil
	}
	return nil, common.ErrNotFound
}

func (s *stubProblemRepo) FindProblemBySlug(context.Context, string) (*model.Problem, error) {
	return nil, common.ErrNotFound
}

func (s *stubProblemRepo) ListProblems(context.Context, int, int, model.ProblemDifficulty) ([]model.Problem, int, error) {
	return nil, 0, nil
}

func (s *stubProblemRepo) GetTestCasesByProblemID(context.Context, string, bool) ([]model.TestCase, error) {
	return s.testCases, nil
}

func (s *stubProblemRepo) GetSolutionsByProblemID(context.Context, string) ([]model.ReferenceSolution, error) {
	return nil, nil
}

func (s *stubProblemRepo) GetTagsByProblemID(context.Context, string) ([]string, error) {
	return nil, nil
}

func newRunServer(t *testing.T, evaluator *stubEvaluator) *httptest.Server {
	t.Helper()

	repo := &stubProblemRepo{
		problem: &model.Problem{ID: "problem-1", Slug: "two-sum"},
		testCases: []model.TestCase{
			{Input: "2 7\n9", ExpectedOutput: "0 1"},
		},
	}
	svc := service.NewSubmissionService(nil, repo, evaluator, zerolog.Nop())

	r := chi.NewRouter()
	NewSubmissionHandler(svc).RegisterRoutes(r)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func postRun(t *testing.T, server *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(server.URL+"/run", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /run: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRunRespondsWithVerdict(t *testing.T) {
	evaluator := &stubEvaluator{outcome: &model.EvaluationOutcome{
		Accepted:        true,
		TotalTestCases:  1,
		PassedTestCases: 1,
		Runtime:         0.042,
		MemoryKB:        1536,
		TestCases: []model.TestCaseOutcome{
			{Stdin: "2 7\n9", ExpectedOutput: "0 1", Stdout: "0 1", StatusID: 3, Runtime: 0.042, MemoryKB: 1536},
		},
	}}
	server := newRunServer(t, evaluator)

	resp := postRun(t, server, `{"problemId":"problem-1","code":"print('0 1')","language":"python"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	for _, key := range []string{"accepted", "totalTestCases", "passedTestCases", "runtime", "memory", "testCases"} {
		if _, ok := body[key]; !ok {
			t.Fatalf("response is missing key %q", key)
		}
	}

	var details []map[string]json.RawMessage
	if err := json.Unmarshal(body["testCases"], &details); err != nil {
		t.Fatalf("decode testCases: %v", err)
	}
	for _, key := range []string{"stdin", "expected_output", "stdout", "status_id", "runtime", "memory"} {
		if _, ok := details[0][key]; !ok {
			t.Fatalf("test case detail is missing key %q", key)
		}
	}

	if evaluator.lastIn.Persist {
		t.Fatal("run must not persist")
	}
	if evaluator.lastIn.Language != "python" {
		t.Fatalf("language = %q, want python", evaluator.lastIn.Language)
	}
}

func TestRunPipelineFailureReturnsGeneric500(t *testing.T) {
	evaluator := &stubEvaluator{err: common.Errorf("%w: judge polling deadline exceeded", common.ErrEvaluationFailed)}
	server := newRunServer(t, evaluator)

	resp := postRun(t, server, `{"problemId":"problem-1","code":"while True: pass","language":"python"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "execution failed" {
		t.Fatalf("error = %q, want the generic message", body["error"])
	}
	if strings.Contains(body["error"], "deadline") {
		t.Fatal("upstream detail must not leak to the caller")
	}
}

func TestRunUnknownProblem(t *testing.T) {
	server := newRunServer(t, &stubEvaluator{})

	resp := postRun(t, server, `{"problemId":"no-such-problem","code":"x","language":"python"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestRunMalformedBody(t *testing.T) {
	server := newRunServer(t, &stubEvaluator{})

	resp := postRun(t, server, `{"problemId":`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
