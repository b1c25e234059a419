package constants

import "time"

const (
	FeedTimeout     = 30 * time.Second
	FeedMaxBodySize = 256 << 20 // ball-by-ball exports run to a few hundred MB
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
	IngestTimeout   = 5 * time.Minute
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 500
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// AggregateWorkers caps the goroutines partitioning the scan by match.
	AggregateWorkers = 8
)
