package factors

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/ecotrace/carbon-tracker/app/httpio"
	"github.com/ecotrace/carbon-tracker/models"
)

type FactorResponse struct {
	ID           uint    `json:"id"`
	Category     string  `json:"category"`
	Subcategory  string  `json:"subcategory"`
	ActivityName string  `json:"activity_name"`
	Unit         string  `json:"unit"`
	CO2Factor    float64 `json:"co2_factor"`
	Source       string  `json:"source,omitempty"`
}

type FactorProvider interface {
	GetAll(ctx context.Context) ([]models.EmissionFactor, error)
	GetByCategory(ctx context.Context, category models.Category) ([]models.EmissionFactor, error)
}

type FactorHandler struct {
	repo FactorProvider
}

func NewFactorHandler(r FactorProvider) *FactorHandler {
	return &FactorHandler{repo: r}
}

func toResponse(list []models.EmissionFactor) []FactorResponse {
	out := make([]FactorResponse, len(list))
	for i, f := range list {
		out[i] = FactorResponse{
			ID:           f.ID,
			Category:     string(f.Category),
			Subcategory:  f.Subcategory,
			ActivityName: f.ActivityName,
			Unit:         f.Unit,
			CO2Factor:    f.CO2Factor,
			Source:       f.Source,
		}
	}
	return out
}

// HandleList returns the factors of ?category=, or every factor grouped by
// category when no filter is given. Each of the four categories is always
// present in the grouped form.
func (h *FactorHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("category"); raw != "" {
		category, err := models.ParseCategory(raw)
		if err != nil {
			httpio.WriteError(w, http.StatusBadRequest, "Catégorie '"+raw+"' non valide.")
			return
		}
		list, err := h.repo.GetByCategory(r.Context(), category)
		if err != nil {
			log.Error().Err(err).Str("category", raw).Msg("failed to fetch emission factors")
			httpio.WriteError(w, http.StatusInternalServerError, "failed to fetch emission factors")
			return
		}
		httpio.WriteJSON(w, http.StatusOK, toResponse(list))
		return
	}

	list, err := h.repo.GetAll(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch emission factors")
		httpio.WriteError(w, http.StatusInternalServerError, "failed to fetch emission factors")
		return
	}

	grouped := make(map[string][]FactorResponse, len(models.Categories))
	for _, c := range models.Categories {
		grouped[string(c)] = []FactorResponse{}
	}
	for _, f := range toResponse(list) {
		if _, ok := grouped[f.Category]; ok {
			grouped[f.Category] = append(grouped[f.Category], f)
		}
	}
	httpio.WriteJSON(w, http.StatusOK, grouped)
}
