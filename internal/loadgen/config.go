// Package loadgen drives a running xSIT service with random scenes and checks
// that every answer is well formed.
package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	NumScenes  int           // Number of scenes to generate
	BatchSize  int           // Scenes per batch request; 0 disables batches
	Workers    int           // Number of concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	Estimator  string        // Estimator query parameter; empty uses the service default
	Seed       int64         // Seed of the scene generator
	OutputFile string        // Where to write the generated scenes; empty skips
	Verbose    bool          // Log every failed request
}

// Scene is the wire form accepted by /calculate_xsit.
type Scene struct {
	ID             string       `json:"-"`
	PosBalon       [2]float64   `json:"pos_balon"`
	VelocidadBalon float64      `json:"velocidad_balon"`
	Portero        [2]float64   `json:"portero"`
	Jugadores      [][2]float64 `json:"jugadores"`
}

// Result is the part of the xSIT response the run checks.
type Result struct {
	XSIT         float64  `json:"xsit"`
	Estimator    string   `json:"estimator"`
	OpenFraction *float64 `json:"open_fraction,omitempty"`
	Degenerate   bool     `json:"degenerate,omitempty"`
	Error        string   `json:"error,omitempty"`
	Code         string   `json:"code,omitempty"`
}

// Stats holds run statistics.
type Stats struct {
	ScenesGenerated int
	SinglesSent     int
	SinglesOK       int
	BatchesSent     int
	BatchScenesOK   int
	Rejected        int // 429/503 answers
	Failed          int
	Invalid         int // answers outside [0, 1] or otherwise malformed
	Degenerate      int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
