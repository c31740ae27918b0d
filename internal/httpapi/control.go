package httpapi

import (
	"net/http"

	"github.com/vadcore/segmenter/internal/segment"
)

// Gate is satisfied by segment.GatingMachine.
type Gate interface {
	SetActive(bool)
	Active() bool
}

// ControlServer implements spec §6's "VAD control endpoints (gating
// variant)", grounded on
// original_source/src/cltl_service/vad/controller_service.py's
// /rest/active and /rest/stop routes.
type ControlServer struct {
	Gate Gate
}

// RegisterRoutes wires the gating control endpoints onto mux.
func (c *ControlServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /rest/active", c.handleGetActive)
	mux.HandleFunc("POST /rest/active", c.handlePostActive)
	mux.HandleFunc("POST /rest/stop", c.handleStop)
}

func (c *ControlServer) handleGetActive(w http.ResponseWriter, r *http.Request) {
	writeBool(w, c.Gate.Active())
}

func (c *ControlServer) handlePostActive(w http.ResponseWriter, r *http.Request) {
	c.Gate.SetActive(true)
	writeBool(w, true)
}

func (c *ControlServer) handleStop(w http.ResponseWriter, r *http.Request) {
	c.Gate.SetActive(false)
	w.WriteHeader(http.StatusOK)
}

func writeBool(w http.ResponseWriter, v bool) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if v {
		w.Write([]byte("True"))
		return
	}
	w.Write([]byte("False"))
}

var _ Gate = (*segment.GatingMachine)(nil)
