package gateway

import (
	_ "embed"
	"net/http"

	"github.com/blindrop/blindrop/core/address"
)

//go:embed viewer.html
var viewerHTML []byte

// handleViewer serves the static viewer page. The page never redirects:
// the URL fragment holding the key material must stay in the browser, so
// the identifier and secret are read client-side from location.
func (s *server) handleViewer(w http.ResponseWriter, r *http.Request) {
	if !address.ValidIdentifier(r.PathValue("identifier")) {
		writeError(w, http.StatusNotFound, codeNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(viewerHTML)
}
