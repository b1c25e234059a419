// Package dataset reads the ball-by-ball delimited input into Delivery
// records. Column resolution is header driven so the loader copes with
// the naming drift between dataset exports (ball vs ball_no, runs_batter
// vs runs_off_bat, an explicit season column vs a dd/mm/yyyy date).
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"boundary-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// Result carries the parsed deliveries and how many malformed rows were
// dropped. Dropped rows are never boundary candidates; those fail the
// load instead.
type Result struct {
	Deliveries []domain.Delivery
	Skipped    int
}

// Column aliases seen across ball-by-ball exports.
var (
	matchCols   = []string{"match_id", "matchid", "match"}
	inningsCols = []string{"innings", "inning"}
	overCols    = []string{"over", "over_no"}
	ballCols    = []string{"ball_no", "ball"}
	seasonCols  = []string{"season", "year"}
	dateCols    = []string{"date", "match_date"}
	runsCols    = []string{"runs_batter", "runs_off_bat", "batsman_runs"}
	totalCols   = []string{"runs_total", "total_runs"}
	extraCols   = []string{"extra_type", "extras_type"}
	wicketCols  = []string{"is_wicket", "wicket"}
	outCols     = []string{"player_dismissed", "dismissed"}
	validCols   = []string{"valid_ball", "legal_ball"}
)

type columns struct {
	match, innings, over, ball int
	season, date               int
	runs, total, extra         int
	wicket, dismissed, valid   int
}

func resolve(header []string) (*columns, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	find := func(aliases []string) int {
		for _, a := range aliases {
			if i, ok := index[a]; ok {
				return i
			}
		}
		return -1
	}

	cols := &columns{
		match:     find(matchCols),
		innings:   find(inningsCols),
		over:      find(overCols),
		ball:      find(ballCols),
		season:    find(seasonCols),
		date:      find(dateCols),
		runs:      find(runsCols),
		total:     find(totalCols),
		extra:     find(extraCols),
		wicket:    find(wicketCols),
		dismissed: find(outCols),
		valid:     find(validCols),
	}

	required := []struct {
		name string
		idx  int
	}{
		{"match_id", cols.match},
		{"innings", cols.innings},
		{"over", cols.over},
		{"ball", cols.ball},
		{"runs", cols.runs},
	}
	for _, r := range required {
		if r.idx < 0 {
			return nil, &domain.DataError{Field: r.name, Cause: fmt.Errorf("column missing from header %v", header)}
		}
	}
	if cols.season < 0 && cols.date < 0 {
		return nil, &domain.DataError{Field: "season", Cause: fmt.Errorf("neither a season nor a date column in header %v", header)}
	}
	return cols, nil
}

// LoadFile reads the dataset at path.
func LoadFile(path string, logger zerolog.Logger) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()
	return Load(f, logger)
}

// Load parses a delimited ball-by-ball dataset.
//
// Rows that cannot be parsed are dropped and logged at debug level,
// unless the row is (or may be) a boundary delivery: a non-numeric runs
// field, or a boundary row with a broken season or position, yields a
// DataError and aborts the load, because the aggregate would be wrong.
func Load(r io.Reader, logger zerolog.Logger) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}
	cols, err := resolve(header)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			logger.Debug().Err(err).Int("row", row).Msg("unreadable row dropped")
			result.Skipped++
			continue
		}

		d, err := parseRow(cols, record, row)
		if err != nil {
			if _, ok := err.(*domain.DataError); ok {
				return nil, err
			}
			logger.Debug().Err(err).Int("row", row).Msg("malformed row dropped")
			result.Skipped++
			continue
		}
		result.Deliveries = append(result.Deliveries, d)
	}

	logger.Info().
		Int("deliveries", len(result.Deliveries)).
		Int("skipped", result.Skipped).
		Msg("dataset loaded")
	return result, nil
}

func parseRow(cols *columns, record []string, row int) (domain.Delivery, error) {
	var d domain.Delivery

	field := func(idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	// Runs first: a non-numeric runs field means we cannot even tell
	// whether the row is a boundary, so it always fails the load.
	runs, err := strconv.Atoi(field(cols.runs))
	if err != nil {
		return d, &domain.DataError{Row: row, Field: "runs", Cause: err}
	}
	d.RunsBat = runs

	d.ValidBall = true
	if v := field(cols.valid); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return d, rowErr(row, "valid_ball", err, d.RunsBat)
		}
		d.ValidBall = n == 1
	}

	d.MatchID = field(cols.match)
	if d.MatchID == "" {
		return d, rowErr(row, "match_id", fmt.Errorf("empty"), runs)
	}

	if d.Innings, err = strconv.Atoi(field(cols.innings)); err != nil {
		return d, rowErr(row, "innings", err, runs)
	}
	if d.Over, err = strconv.Atoi(field(cols.over)); err != nil {
		return d, rowErr(row, "over", err, runs)
	}
	if d.Ball, err = strconv.Atoi(field(cols.ball)); err != nil {
		return d, rowErr(row, "ball", err, runs)
	}

	season, err := parseSeason(field(cols.season), field(cols.date))
	if err != nil {
		return d, rowErr(row, "season", err, runs)
	}
	d.Season = season

	if v := field(cols.total); v != "" {
		total, err := strconv.Atoi(v)
		if err != nil {
			return d, rowErr(row, "runs_total", err, runs)
		}
		if total > runs {
			d.Extras = total - runs
		}
	}

	d.ExtraType = field(cols.extra)

	// The wicket flag decides classification outright, so a value we do
	// not recognize cannot be coerced to "no wicket".
	if v := field(cols.wicket); v != "" {
		switch strings.ToLower(v) {
		case "1", "true":
			d.IsWicket = true
		case "0", "false":
		default:
			return d, rowErr(row, "is_wicket", fmt.Errorf("unrecognized value %q", v), runs)
		}
	}
	if !d.IsWicket && field(cols.dismissed) != "" {
		d.IsWicket = true
	}

	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now

	return d, nil
}

// rowErr escalates to a DataError when the broken row is a boundary;
// anything else surfaces as a plain error the caller may drop.
func rowErr(row int, fieldName string, cause error, runs int) error {
	if runs == 4 || runs == 6 {
		return &domain.DataError{Row: row, Field: fieldName, Cause: cause}
	}
	return fmt.Errorf("row %d: bad %s: %w", row, fieldName, cause)
}

func parseSeason(season, date string) (int, error) {
	if season != "" {
		// Seasons sometimes come as "2007/08"; the leading year wins.
		if i := strings.IndexAny(season, "/-"); i > 0 {
			season = season[:i]
		}
		return strconv.Atoi(season)
	}
	if date == "" {
		return 0, fmt.Errorf("no season or date value")
	}
	for _, layout := range []string{"02/01/2006", "2006-01-02"} {
		if t, err := time.Parse(layout, date); err == nil {
			return t.Year(), nil
		}
	}
	return 0, fmt.Errorf("unparseable date %q", date)
}
