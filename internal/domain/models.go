package domain

import (
	"fmt"
	"time"
)

// Delivery is one ball bowled, as read from the ball-by-ball dataset.
type Delivery struct {
	MatchID   string
	Innings   int
	Over      int
	Ball      int
	Season    int
	RunsBat   int
	Extras    int
	ExtraType string // "" for a legal delivery with no extras
	IsWicket  bool
	ValidBall bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TotalRuns is runs off the bat plus extras conceded on the delivery.
func (d Delivery) TotalRuns() int {
	return d.RunsBat + d.Extras
}

// IsBoundary reports whether this delivery is a 4 or a 6 off the bat
// on a valid ball.
func (d Delivery) IsBoundary() bool {
	return d.ValidBall && (d.RunsBat == 4 || d.RunsBat == 6)
}

// Outcome classifies what happened on the ball after a boundary.
type Outcome string

const (
	OutcomeDot    Outcome = "dot"
	OutcomeSingle Outcome = "single"
	OutcomeDouble Outcome = "double"
	OutcomeThree  Outcome = "three"
	OutcomeFour   Outcome = "four"
	OutcomeSix    Outcome = "six"
	OutcomeWicket Outcome = "wicket"
	OutcomeOther  Outcome = "other"
)

// OutcomeOrder is the display and sort order for outcome rows.
var OutcomeOrder = []Outcome{
	OutcomeDot,
	OutcomeSingle,
	OutcomeDouble,
	OutcomeThree,
	OutcomeFour,
	OutcomeSix,
	OutcomeWicket,
	OutcomeOther,
}

// OutcomeRank returns the position of o in OutcomeOrder, or len(OutcomeOrder)
// for unknown values so they sort last.
func OutcomeRank(o Outcome) int {
	for i, v := range OutcomeOrder {
		if v == o {
			return i
		}
	}
	return len(OutcomeOrder)
}

// ClassifyOutcome maps a successor delivery to its outcome category.
// A wicket wins over anything scored on the same ball (a run-out with a
// completed run is still "wicket"). Extras make the ball "other", as do
// totals outside {0,1,2,3,4,6}.
func ClassifyOutcome(next Delivery) Outcome {
	if next.IsWicket {
		return OutcomeWicket
	}
	if next.Extras > 0 || next.ExtraType != "" {
		return OutcomeOther
	}
	switch next.TotalRuns() {
	case 0:
		return OutcomeDot
	case 1:
		return OutcomeSingle
	case 2:
		return OutcomeDouble
	case 3:
		return OutcomeThree
	case 4:
		return OutcomeFour
	case 6:
		return OutcomeSix
	default:
		return OutcomeOther
	}
}

// BoundaryEvent is a boundary delivery joined with the classification of
// the ball that followed it in the same innings.
type BoundaryEvent struct {
	Season       int
	BoundaryType int // 4 or 6
	NextOutcome  Outcome
}

// AggregateRow is one row of the table the dashboard reads: the count and
// share of a next-ball outcome within a (season, boundary type) group.
type AggregateRow struct {
	Season       int     `json:"season"`
	BoundaryType int     `json:"boundary_type"`
	Outcome      Outcome `json:"outcome"`
	Count        int     `json:"count"`
	Percentage   float64 `json:"percentage"`
}

// SeasonTotal carries the per-season boundary counts shown on the metric
// cards. Unlike the outcome distribution it includes boundaries hit off
// the last ball of an innings.
type SeasonTotal struct {
	Season int `json:"season"`
	Fours  int `json:"fours"`
	Sixes  int `json:"sixes"`
}

// IngestRun records one ingestion of the dataset.
type IngestRun struct {
	ID         string
	Source     string
	Deliveries int
	Boundaries int
	Skipped    int
	StartedAt  time.Time
	FinishedAt time.Time
}

// DataError reports an input record that could not be used to classify a
// boundary event or its successor. It aborts the run: a partial aggregate
// would silently be wrong.
type DataError struct {
	Row   int
	Field string
	Cause error
}

func (e *DataError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("bad delivery record at row %d, field %q: %v", e.Row, e.Field, e.Cause)
	}
	return fmt.Sprintf("bad delivery record at row %d, field %q", e.Row, e.Field)
}

func (e *DataError) Unwrap() error {
	return e.Cause
}
