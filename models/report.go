package models

import "time"

// CandidateMean is the average share for one candidate column.
type CandidateMean struct {
	Candidate string
	Mean      float64
}

// PollSummary holds the computed analytics over a cleaned dataset.
type PollSummary struct {
	Source          string
	TotalPolls      int
	RegisteredPolls int
	LikelyPolls     int
	MeanDifference  float64
	MinDifference   float64
	MaxDifference   float64
	LatestEndDate   time.Time
	LatestPollster  string
	Candidates      []CandidateMean
}
