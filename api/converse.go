package api

import (
	"net/http"

	"github.com/firebase/genkit/go/genkit"

	"github.com/lumenlabs/lumen/internal/log"
	"github.com/lumenlabs/lumen/internal/pipeline"
)

// ConverseHandler exposes the reasoning pipeline over HTTP.
//
// Endpoint:
//   - POST /api/converse - run the pipeline (JSON request/response)
//
// Design: uses genkit.Handler() so the wire format matches the flow's
// Input/Output types exactly.
type ConverseHandler struct {
	flow   *pipeline.Flow
	logger log.Logger
}

// NewConverseHandler creates a new converse handler with the given
// Flow. The Flow should be obtained from pipeline.NewFlow().
func NewConverseHandler(flow *pipeline.Flow, logger log.Logger) *ConverseHandler {
	return &ConverseHandler{flow: flow, logger: logger}
}

// RegisterRoutes registers converse routes on the given mux.
func (h *ConverseHandler) RegisterRoutes(mux *http.ServeMux) {
	if h.flow == nil {
		if h.logger != nil {
			h.logger.Warn("ConverseHandler: flow is nil, converse endpoint not registered")
		}
		return
	}
	mux.Handle("POST /api/converse", genkit.Handler(h.flow))
}
