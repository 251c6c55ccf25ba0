package config

// SampleConfig returns a fully documented configuration file
func SampleConfig() string {
	return `# DiagScan configuration
#
# Search order (first match wins per key):
#   ./.diagscan.yaml
#   ~/.config/diagscan/config.yaml
#   /etc/diagscan/config.yaml
# Environment variables prefixed with DIAGSCAN_ override file values,
# e.g. DIAGSCAN_ENDPOINT_URL or DIAGSCAN_CONTROLLER_ABORT_ON_RESET.

version: "1.0"

# Remote classification service
endpoint:
  # Full URL the image is posted to as multipart field "file"
  url: "http://localhost:8000/predict"
  # Client side timeout for a single analysis
  timeout: 30s
  user_agent: "diagscan"
  # Upper bound on the response body read from the service
  max_response_bytes: 1048576

# Input validation
upload:
  # Largest accepted image in bytes (10 MiB)
  max_bytes: 10485760
  # Declared media types that are accepted, matched exactly
  allowed_types:
    - image/jpeg
    - image/jpg
    - image/png
    - image/gif

# Request lifecycle
controller:
  # When true, reset cancels an analysis that is still running
  abort_on_reset: false

# Report export
report:
  # Directory reports are written to (diagnosis-report-YYYY-MM-DD.txt)
  directory: "."

# Output formatting
output:
  default_format: "text"   # text|json|markdown
  color_mode: "auto"       # auto|always|never
  verbose: false
  theme: "default"         # default|high-contrast|minimal
  emoji: true

# Tracing
telemetry:
  # Print a span for every classification call to stderr
  trace: false

# Development classification endpoint (diagscan serve)
server:
  address: ":8000"
  mode: "release"          # debug|release|test
  classes:
    - normal
    - benign
    - malignant
`
}

// MinimalSampleConfig returns a compact configuration with essential settings
func MinimalSampleConfig() string {
	return `version: "1.0"

endpoint:
  url: "http://localhost:8000/predict"
  timeout: 30s

controller:
  abort_on_reset: false

output:
  default_format: "text"
`
}
