package stats

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/ecotrace/carbon-tracker/app/httpio"
	"github.com/ecotrace/carbon-tracker/stats"
)

type SummaryProvider interface {
	Summary(ctx context.Context) (stats.Summary, error)
}

type StatsHandler struct {
	svc SummaryProvider
}

func NewStatsHandler(svc SummaryProvider) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// HandleGet serves the public platform counters.
func (h *StatsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Summary(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to compute platform stats")
		httpio.WriteError(w, http.StatusInternalServerError, "failed to fetch stats")
		return
	}
	httpio.WriteJSON(w, http.StatusOK, summary)
}
