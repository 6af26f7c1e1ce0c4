// Package loadgen generates synthetic learning sessions and replays them
// against a running service.
package loadgen

import (
	"time"

	"github.com/okian/followup/internal/domain/types"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Users      int           // Number of simulated learners
	Lessons    int           // Number of lessons in the simulated catalog
	Days       int           // Days of history to generate, ending at Now
	BatchSize  int           // Events per POST /events request
	Workers    int           // Number of concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	Seed       uint64        // Random seed; runs with the same seed generate the same sessions
	Now        time.Time     // End of the generated history
	OutputFile string        // Optional file to save generated events to
	SettleTime time.Duration // Wait before reading rankings back
}

// Stats holds run statistics.
type Stats struct {
	EventsGenerated int
	EventsAccepted  int
	EventsRejected  int
	BatchesFailed   int
	RankedEntities  int
	StartTime       time.Time
	Duration        time.Duration
}

// Batch is the request body of one ingestion call.
type Batch []types.EventRequest
