// Package aggregate turns raw ball-by-ball deliveries into the
// post-boundary next-ball outcome table the dashboard displays.
//
// The transformation is pure: same input, byte-for-byte same output,
// regardless of the order the input arrives in. Ordering inside one
// match+innings is reconstructed from (over, ball) before the scan.
package aggregate

import (
	"context"
	"fmt"
	"sort"

	"boundary-tracker/internal/domain"

	"golang.org/x/sync/errgroup"
)

// Summary is the aggregator output: the next-ball outcome distribution
// plus per-season boundary totals.
type Summary struct {
	Rows   []domain.AggregateRow
	Totals []domain.SeasonTotal

	// Boundaries counts every boundary seen, Events only those with a
	// successor ball. The difference is boundaries that ended an innings.
	Boundaries int
	Events     int
}

type eventKey struct {
	season  int
	btype   int
	outcome domain.Outcome
}

type tally struct {
	events     map[eventKey]int
	fours      map[int]int
	sixes      map[int]int
	boundaries int
}

func newTally() *tally {
	return &tally{
		events: make(map[eventKey]int),
		fours:  make(map[int]int),
		sixes:  make(map[int]int),
	}
}

func (t *tally) add(ev domain.BoundaryEvent) {
	t.events[eventKey{season: ev.Season, btype: ev.BoundaryType, outcome: ev.NextOutcome}]++
}

func (t *tally) merge(other *tally) {
	for k, n := range other.events {
		t.events[k] += n
	}
	for season, n := range other.fours {
		t.fours[season] += n
	}
	for season, n := range other.sixes {
		t.sixes[season] += n
	}
	t.boundaries += other.boundaries
}

// Summarize computes the full aggregate in a single pass per innings.
// It returns a DataError when a boundary delivery carries no season,
// since such a row cannot be attributed to any group.
func Summarize(deliveries []domain.Delivery) (*Summary, error) {
	t, err := scan(deliveries)
	if err != nil {
		return nil, err
	}
	return finalize(t), nil
}

// SummarizeParallel partitions the input by match and fans the scan out
// across goroutines. Matches are independent, so partial tallies combine
// by summation; the ordering pass in finalize keeps the output identical
// to Summarize.
func SummarizeParallel(ctx context.Context, deliveries []domain.Delivery, workers int) (*Summary, error) {
	if workers < 1 {
		workers = 1
	}

	byMatch := make(map[string][]domain.Delivery)
	for _, d := range deliveries {
		byMatch[d.MatchID] = append(byMatch[d.MatchID], d)
	}

	matches := make([][]domain.Delivery, 0, len(byMatch))
	for _, ds := range byMatch {
		matches = append(matches, ds)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	partials := make([]*tally, len(matches))
	for i, ds := range matches {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := scan(ds)
			if err != nil {
				return err
			}
			partials[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := newTally()
	for _, p := range partials {
		total.merge(p)
	}
	return finalize(total), nil
}

type inningsKey struct {
	matchID string
	innings int
}

func scan(deliveries []domain.Delivery) (*tally, error) {
	byInnings := make(map[inningsKey][]domain.Delivery)
	for _, d := range deliveries {
		k := inningsKey{matchID: d.MatchID, innings: d.Innings}
		byInnings[k] = append(byInnings[k], d)
	}

	t := newTally()
	for _, balls := range byInnings {
		sort.Slice(balls, func(i, j int) bool {
			if balls[i].Over != balls[j].Over {
				return balls[i].Over < balls[j].Over
			}
			return balls[i].Ball < balls[j].Ball
		})

		for i, d := range balls {
			if !d.IsBoundary() {
				continue
			}
			if d.Season <= 0 {
				return nil, &domain.DataError{
					Field: "season",
					Cause: fmt.Errorf("boundary delivery in match %s has no season", d.MatchID),
				}
			}

			t.boundaries++
			switch d.RunsBat {
			case 4:
				t.fours[d.Season]++
			case 6:
				t.sixes[d.Season]++
			}

			// Last ball of the innings has no successor: it still counts
			// toward the season totals above, but not the distribution.
			if i+1 >= len(balls) {
				continue
			}

			t.add(domain.BoundaryEvent{
				Season:       d.Season,
				BoundaryType: d.RunsBat,
				NextOutcome:  domain.ClassifyOutcome(balls[i+1]),
			})
		}
	}
	return t, nil
}

func finalize(t *tally) *Summary {
	groupTotals := make(map[eventKey]int)
	for k, n := range t.events {
		groupTotals[eventKey{season: k.season, btype: k.btype}] += n
	}

	rows := make([]domain.AggregateRow, 0, len(t.events))
	events := 0
	for k, n := range t.events {
		denom := groupTotals[eventKey{season: k.season, btype: k.btype}]
		rows = append(rows, domain.AggregateRow{
			Season:       k.season,
			BoundaryType: k.btype,
			Outcome:      k.outcome,
			Count:        n,
			Percentage:   float64(n) / float64(denom) * 100,
		})
		events += n
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Season != rows[j].Season {
			return rows[i].Season < rows[j].Season
		}
		if rows[i].BoundaryType != rows[j].BoundaryType {
			return rows[i].BoundaryType < rows[j].BoundaryType
		}
		return domain.OutcomeRank(rows[i].Outcome) < domain.OutcomeRank(rows[j].Outcome)
	})

	seasons := make(map[int]bool)
	for season := range t.fours {
		seasons[season] = true
	}
	for season := range t.sixes {
		seasons[season] = true
	}

	totals := make([]domain.SeasonTotal, 0, len(seasons))
	for season := range seasons {
		totals = append(totals, domain.SeasonTotal{
			Season: season,
			Fours:  t.fours[season],
			Sixes:  t.sixes[season],
		})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Season < totals[j].Season })

	return &Summary{
		Rows:       rows,
		Totals:     totals,
		Boundaries: t.boundaries,
		Events:     events,
	}
}
