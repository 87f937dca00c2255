package model

type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	UserID         string `json:"user_id"`
	ProblemsSolved int    `json:"problems_solved"`
}
