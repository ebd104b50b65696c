package loadgen

import "os"

// ShowHelp prints usage information for the load tool.
func ShowHelp() {
	os.Stdout.WriteString(`xSIT Load Tool
==============

Posts random shot scenes to a running xSIT service and checks every answer.

Usage:
  go run ./cmd/xsit-load [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:5000")
  -scenes int
        Number of scenes to generate (default 2000)
  -batch int
        Scenes per batch request, 0 disables batches (default 50)
  -workers int
        Number of concurrent submitters (default CPU cores * 2)
  -estimator string
        analytic, rasterized or vector (default: service default)
  -seed int
        Seed of the scene generator (default 1)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Write the generated scenes to this JSON file
  -log-format string
        text or json (default "text")
  -verbose
        Log every failed request
  -help
        Show this help message

Examples:
  # Exercise the vector estimator with large batches
  go run ./cmd/xsit-load -estimator vector -batch 200

  # Singles only, against another host
  go run ./cmd/xsit-load -batch 0 -url http://localhost:8080
`)
}
