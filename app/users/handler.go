package users

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/ecotrace/carbon-tracker/app/httpio"
	"github.com/ecotrace/carbon-tracker/auth"
	"github.com/ecotrace/carbon-tracker/models"
)

const (
	msgName          = "Le nom doit contenir entre 2 et 100 caractères"
	msgEmail         = "Veuillez entrer une adresse email valide"
	msgEmailTaken    = "Un utilisateur avec cet email existe déjà."
	msgBadCredential = "Email ou mot de passe incorrect."
)

type UserResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

type TokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

type UserProvider interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

type UserHandler struct {
	repo  UserProvider
	auth  auth.Config
	clock func() time.Time
}

func NewUserHandler(r UserProvider, cfg auth.Config) *UserHandler {
	return &UserHandler{repo: r, auth: cfg, clock: time.Now}
}

func toResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, IsAdmin: u.IsAdmin, CreatedAt: u.CreatedAt}
}

func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httpio.DecodeJSON(r, &input); err != nil {
		httpio.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	var problems []string
	name := strings.TrimSpace(input.Name)
	if n := utf8.RuneCountInString(name); n < 2 || n > 100 {
		problems = append(problems, msgName)
	}
	if !validEmail(input.Email) {
		problems = append(problems, msgEmail)
	}
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrWeakPassword) {
			log.Error().Err(err).Msg("failed to hash password")
			httpio.WriteError(w, http.StatusInternalServerError, "failed to register user")
			return
		}
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		httpio.WriteValidation(w, problems)
		return
	}

	user := &models.User{Name: name, Email: input.Email, PasswordHash: hash}
	if err := h.repo.Create(r.Context(), user); err != nil {
		if errors.Is(err, models.ErrEmailTaken) {
			httpio.WriteError(w, http.StatusConflict, msgEmailTaken)
			return
		}
		log.Error().Err(err).Msg("failed to create user")
		httpio.WriteError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	log.Info().Uint("user_id", user.ID).Msg("user registered")
	httpio.WriteJSON(w, http.StatusCreated, toResponse(user))
}

func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httpio.DecodeJSON(r, &input); err != nil {
		httpio.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if !validEmail(input.Email) || input.Password == "" {
		httpio.WriteError(w, http.StatusUnauthorized, msgBadCredential)
		return
	}

	user, err := h.repo.GetByEmail(r.Context(), input.Email)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		log.Error().Err(err).Msg("failed to load user")
		httpio.WriteError(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, input.Password) {
		httpio.WriteError(w, http.StatusUnauthorized, msgBadCredential)
		return
	}

	token, expires, err := auth.Issue(user.ID, user.IsAdmin, h.auth, h.clock())
	if err != nil {
		log.Error().Err(err).Msg("failed to issue token")
		httpio.WriteError(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	httpio.WriteJSON(w, http.StatusOK, TokenResponse{Token: token, ExpiresAt: expires, User: toResponse(user)})
}

func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		httpio.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	user, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			httpio.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		httpio.WriteError(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	httpio.WriteJSON(w, http.StatusOK, toResponse(user))
}

func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}
