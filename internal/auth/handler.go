package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	internal "github.com/frahmantamala/tutoring-platform/internal"
	"github.com/frahmantamala/tutoring-platform/internal/transport"
	"github.com/frahmantamala/tutoring-platform/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.L()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tokens, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		h.Logger.Error("registration failed", "error", err, "email", dto.Email)

		switch err {
		case ErrEmailTaken:
			h.WriteError(w, http.StatusConflict, "email already registered")
		default:
			if _, ok := err.(ValidationError); ok {
				h.WriteError(w, http.StatusBadRequest, err.Error())
			} else {
				h.WriteError(w, http.StatusInternalServerError, "internal server error")
			}
		}
		return
	}

	h.WriteJSON(w, http.StatusCreated, tokens)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tokens, err := h.Service.Authenticate(r.Context(), dto)
	if err != nil {
		h.Logger.Error("authentication failed", "error", err)

		switch err {
		case ErrInvalidCredentials:
			h.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			if _, ok := err.(ValidationError); ok {
				h.WriteError(w, http.StatusBadRequest, err.Error())
			} else {
				h.WriteError(w, http.StatusInternalServerError, "internal server error")
			}
		}
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tokens, err := h.Service.RefreshTokens(r.Context(), dto.RefreshToken)
	if err != nil {
		h.Logger.Error("token refresh failed", "error", err)

		switch err {
		case ErrInvalidToken, ErrTokenExpired:
			h.WriteError(w, http.StatusUnauthorized, "invalid refresh token")
		default:
			h.WriteError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.ExtractTokenFromHeader(r)
	if token == "" {
		h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
		return
	}

	if _, err := h.Service.ValidateAccessToken(token); err != nil {
		h.WriteError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AuthMiddleware validates the bearer token and stores the caller's user id
// on the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			h.Logger.Error("token validation failed", "error", err)
			h.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := internal.ContextWithUserID(r.Context(), claims.UserID)
		ctx = ContextWithRole(ctx, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route to callers whose token carries one of the given
// roles.
func (h *Handler) RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if _, ok := allowed[role]; !ok {
				h.WriteError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
