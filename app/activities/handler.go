package activities

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ecotrace/carbon-tracker/app/httpio"
	"github.com/ecotrace/carbon-tracker/auth"
	"github.com/ecotrace/carbon-tracker/footprint"
	"github.com/ecotrace/carbon-tracker/models"
	"github.com/ecotrace/carbon-tracker/observability"
)

const dateLayout = "2006-01-02"

const (
	msgCategoryRequired = "Veuillez sélectionner une catégorie."
	msgActivityRequired = "Veuillez sélectionner une activité spécifique."
	msgActivityInvalid  = "Identifiant d'activité invalide."
	msgActivityMissing  = "L'activité sélectionnée n'existe pas."
	msgQuantityRequired = "Veuillez saisir une quantité."
	msgQuantityNaN      = "La quantité n'est pas un nombre valide."
	msgQuantityPositive = "La quantité doit être supérieure à zéro."
	msgDateInvalid      = "Format de date invalide."
	msgCreateFailed     = "Une erreur s'est produite lors de l'ajout de l'activité."
	msgCreated          = "Activité ajoutée avec succès !"
	msgNotOwned         = "Activité non trouvée ou vous n'avez pas la permission de la supprimer."
	msgDeleteFailed     = "Une erreur s'est produite lors de la suppression de l'activité."
	msgDeleted          = "Activité supprimée avec succès !"
)

// ActivityResponse is one history row.
type ActivityResponse struct {
	ID        uint    `json:"id"`
	Date      string  `json:"date"`
	Category  string  `json:"category"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	Unit      string  `json:"unit"`
	Emissions float64 `json:"emissions"`
}

type CreateResponse struct {
	Message  string           `json:"message"`
	Activity ActivityResponse `json:"activity"`
}

type ActivityProvider interface {
	Create(ctx context.Context, activity *models.Activity) error
	History(ctx context.Context, userID uint, limit int) ([]models.Activity, error)
	DeleteOwned(ctx context.Context, userID, activityID uint) error
}

type ActivityHandler struct {
	repo         ActivityProvider
	factors      footprint.FactorLookup
	historyLimit int
	clock        func() time.Time
}

func NewActivityHandler(r ActivityProvider, factors footprint.FactorLookup, historyLimit int) *ActivityHandler {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &ActivityHandler{repo: r, factors: factors, historyLimit: historyLimit, clock: time.Now}
}

// ToResponse renders an activity whose factor has been preloaded. A missing
// or broken factor yields zero emissions.
func ToResponse(a models.Activity) ActivityResponse {
	resp := ActivityResponse{
		ID:       a.ID,
		Date:     a.Date.Format(dateLayout),
		Quantity: a.Quantity,
	}
	if f := a.EmissionFactor; f != nil {
		resp.Category = string(f.Category)
		resp.Name = f.ActivityName
		resp.Unit = f.Unit
	}
	if emissions, err := footprint.ActivityEmissions(a, a.EmissionFactor); err == nil {
		resp.Emissions = emissions
	}
	return resp
}

// formValue accepts a JSON string or number and keeps its raw text, so that
// both {"quantity": 2.5} and {"quantity": "2.5"} validate the same way.
type formValue string

func (v *formValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = formValue(s)
		return nil
	}
	*v = formValue(data)
	return nil
}

func (v formValue) trimmed() string { return strings.TrimSpace(string(v)) }

type createInput struct {
	Category   formValue `json:"category"`
	ActivityID formValue `json:"activity_id"`
	Quantity   formValue `json:"quantity"`
	Date       formValue `json:"date"`
}

// validate checks every field and collects all problems at once.
func (h *ActivityHandler) validate(ctx context.Context, in createInput) ([]string, *models.Activity, error) {
	var problems []string
	activity := &models.Activity{}

	category := in.Category.trimmed()
	if category == "" {
		problems = append(problems, msgCategoryRequired)
	} else if _, err := models.ParseCategory(category); err != nil {
		problems = append(problems, fmt.Sprintf("Catégorie '%s' non valide.", category))
	}

	if raw := in.ActivityID.trimmed(); raw == "" {
		problems = append(problems, msgActivityRequired)
	} else if id, err := strconv.ParseUint(raw, 10, 0); err != nil || id == 0 {
		problems = append(problems, msgActivityInvalid)
	} else {
		factor, err := h.factors.GetEmissionFactor(ctx, uint(id))
		switch {
		case errors.Is(err, models.ErrEmissionFactorNotFound):
			problems = append(problems, msgActivityMissing)
		case err != nil:
			return nil, nil, err
		default:
			activity.EmissionFactorID = &factor.ID
			activity.EmissionFactor = factor
		}
	}

	if raw := in.Quantity.trimmed(); raw == "" {
		problems = append(problems, msgQuantityRequired)
	} else if q, err := strconv.ParseFloat(raw, 64); err != nil || math.IsNaN(q) || math.IsInf(q, 0) {
		problems = append(problems, msgQuantityNaN)
	} else if q <= 0 {
		problems = append(problems, msgQuantityPositive)
	} else {
		activity.Quantity = q
	}

	if raw := in.Date.trimmed(); raw == "" {
		activity.Date = models.CalendarDay(h.clock())
	} else if d, err := time.Parse(dateLayout, raw); err != nil {
		problems = append(problems, msgDateInvalid)
	} else {
		activity.Date = d
	}

	return problems, activity, nil
}

func (h *ActivityHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httpio.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var input createInput
	if err := httpio.DecodeJSON(r, &input); err != nil {
		httpio.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	problems, activity, err := h.validate(r.Context(), input)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve emission factor")
		httpio.WriteError(w, http.StatusInternalServerError, msgCreateFailed)
		return
	}
	if len(problems) > 0 {
		httpio.WriteValidation(w, problems)
		return
	}

	activity.UserID = userID
	factor := activity.EmissionFactor
	activity.EmissionFactor = nil // the reference row is never written through the association
	err = h.repo.Create(r.Context(), activity)
	observability.RecordActivityWrite("create", err)
	if err != nil {
		log.Error().Err(err).Uint("user_id", userID).Msg("failed to create activity")
		httpio.WriteError(w, http.StatusInternalServerError, msgCreateFailed)
		return
	}
	activity.EmissionFactor = factor

	httpio.WriteJSON(w, http.StatusCreated, CreateResponse{Message: msgCreated, Activity: ToResponse(*activity)})
}

func (h *ActivityHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httpio.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	limit := h.historyLimit
	if lStr := r.URL.Query().Get("limit"); lStr != "" {
		if l, err := strconv.Atoi(lStr); err == nil {
			if l < 1 {
				limit = 1
			} else if l > 500 {
				limit = 500
			} else {
				limit = l
			}
		}
	}

	list, err := h.repo.History(r.Context(), userID, limit)
	if err != nil {
		log.Error().Err(err).Uint("user_id", userID).Msg("failed to fetch history")
		httpio.WriteError(w, http.StatusInternalServerError, "failed to fetch activities")
		return
	}

	response := make([]ActivityResponse, len(list))
	for i, a := range list {
		response[i] = ToResponse(a)
	}
	httpio.WriteJSON(w, http.StatusOK, response)
}

func (h *ActivityHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httpio.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := strconv.ParseUint(r.PathValue("id"), 10, 0)
	if err != nil || id == 0 {
		httpio.WriteError(w, http.StatusNotFound, msgNotOwned)
		return
	}

	err = h.repo.DeleteOwned(r.Context(), userID, uint(id))
	observability.RecordActivityWrite("delete", err)
	switch {
	case errors.Is(err, models.ErrActivityNotFound):
		httpio.WriteError(w, http.StatusNotFound, msgNotOwned)
	case err != nil:
		log.Error().Err(err).Uint("user_id", userID).Uint64("activity_id", id).Msg("failed to delete activity")
		httpio.WriteError(w, http.StatusInternalServerError, msgDeleteFailed)
	default:
		httpio.WriteJSON(w, http.StatusOK, map[string]string{"message": msgDeleted})
	}
}
