package api

import (
	"net/http"
	"runtime"

	"github.com/shaharia-lab/webhookd/internal/build"
)

type versionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	UserAgent string `json:"user_agent"`
}

// handleVersion reports build metadata and the User-Agent sent on outbound
// deliveries, so receivers can be checked against it.
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, versionResponse{
		Version:   build.Version,
		Commit:    build.CommitSHA,
		BuildDate: build.BuildDate,
		GoVersion: runtime.Version(),
		UserAgent: build.UserAgent(),
	})
}
