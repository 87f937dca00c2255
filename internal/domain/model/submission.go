package model

import "time"

type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "Pending"
	StatusAccepted SubmissionStatus = "Accepted"
	StatusFailed   SubmissionStatus = "Failed"
)

// Submission is the durable record of one graded attempt. Created in
// Pending before dispatch and moved exactly once to a terminal status.
type Submission struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	ProblemID       string           `json:"problem_id"`
	Language        string           `json:"language"`
	Code            string           `json:"code"`
	Status          SubmissionStatus `json:"status"`
	PassedTestCases int              `json:"passed_test_cases"`
	TotalTestCases  int              `json:"total_test_cases"`
	Runtime         float64          `json:"runtime"`   // summed seconds across test cases
	MemoryKB        int              `json:"memory_kb"` // peak across test cases
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TestCaseOutcome is the per-test detail echoed back to the evaluation
// caller. Field names follow the public API contract.
type TestCaseOutcome struct {
	Stdin          string  `json:"stdin"`
	ExpectedOutput string  `json:"expected_output"`
	Stdout         string  `json:"stdout"`
	StatusID       int     `json:"status_id"`
	Runtime        float64 `json:"runtime"`
	MemoryKB       int     `json:"memory"`
	Error          string  `json:"error,omitempty"`
	Explanation    string  `json:"explanation,omitempty"`
}

// EvaluationOutcome is the aggregate verdict of one evaluation across all
// of its test cases, plus the per-test breakdown.
type EvaluationOutcome struct {
	Accepted        bool              `json:"accepted"`
	TotalTestCases  int               `json:"totalTestCases"`
	PassedTestCases int               `json:"passedTestCases"`
	Runtime         float64           `json:"runtime"`
	MemoryKB        int               `json:"memory"`
	TestCases       []TestCaseOutcome `json:"testCases"`
}
