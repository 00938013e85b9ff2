package handlers

import "net/http"

// InfoHandler serves the service banner on the root route.
type InfoHandler struct {
	version string
}

// NewInfoHandler creates a new InfoHandler. An empty version reports "dev".
func NewInfoHandler(version string) *InfoHandler {
	if version == "" {
		version = "dev"
	}
	return &InfoHandler{version: version}
}

// InfoResponse is the response body for GET /.
type InfoResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Docs    string `json:"docs"`
}

// Root handles GET /.
func (h *InfoHandler) Root(w http.ResponseWriter, r *http.Request) {
	WriteJSONOK(w, InfoResponse{
		Service: "granula",
		Version: h.version,
		Docs:    "https://github.com/marmos91/granula#readme",
	})
}
