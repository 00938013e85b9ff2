// Package health provides shared types for health check responses.
//
// The CLI status command parses /health with these types instead of
// importing the API server packages.
package health

// Response mirrors the API /health response body.
type Response struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Storage   string `json:"storage"`
	StartedAt string `json:"started_at"`
	Uptime    string `json:"uptime"`
	Queue     *Queue `json:"queue,omitempty"`
}

// Queue is the scheduling snapshot inside a health response.
type Queue struct {
	Depth   int `json:"depth"`
	Workers int `json:"workers"`
	Busy    int `json:"busy"`
}

// Healthy reports whether the service answered with a clean bill.
func (r *Response) Healthy() bool {
	return r.Status == "ok"
}
