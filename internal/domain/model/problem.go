package model

import (
	"time"
)

type ProblemDifficulty string

const (
	DifficultyEasy   ProblemDifficulty = "Easy"
	DifficultyMedium ProblemDifficulty = "Medium"
	DifficultyHard   ProblemDifficulty = "Hard"
)

type Problem struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	Description string            `json:"description"`
	Difficulty  ProblemDifficulty `json:"difficulty"`
	Points      int               `json:"points"`
	Tags        []string          `json:"tags,omitempty"`
	CreatedByID *string           `json:"created_by_id,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`

	// Visible test cases double as worked examples and as the acceptance
	// gate for the problem's own reference solutions.
	Examples []TestCase `json:"examples,omitempty"`
	// Hidden test cases grade learner submissions. Admin only view.
	TestCases []TestCase `json:"test_cases,omitempty"`
	// Admin-supplied known-correct solutions. Admin only view.
	Solutions []ReferenceSolution `json:"solutions,omitempty"`
}

type TestCase struct {
	ID             string    `json:"id"`
	ProblemID      string    `json:"problem_id"`
	Input          string    `json:"input"`
	ExpectedOutput string    `json:"expected_output"`
	Explanation    *string   `json:"explanation,omitempty"`
	IsHidden       bool      `json:"is_hidden"`
	SortOrder      int       `json:"sort_order"`
	CreatedAt      time.Time `json:"created_at"`
}

type ReferenceSolution struct {
	ID         string    `json:"id"`
	ProblemID  string    `json:"problem_id"`
	Language   string    `json:"language"`
	SourceCode string    `json:"source_code"`
	SortOrder  int       `json:"sort_order"`
	CreatedAt  time.Time `json:"created_at"`
}
