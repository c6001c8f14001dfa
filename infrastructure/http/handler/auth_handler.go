package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/techstore/storefront/application/port/inbound"
	domainerror "github.com/techstore/storefront/domain/error"
	"github.com/techstore/storefront/infrastructure/http/middleware"
	"github.com/techstore/storefront/infrastructure/http/response"
)

const maxBodyBytes = 1 << 20

type AuthHandler struct {
	authUseCase inbound.AuthUseCase
	cookies     CookieConfig
}

func NewAuthHandler(authUseCase inbound.AuthUseCase, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{
		authUseCase: authUseCase,
		cookies:     cookies,
	}
}

// RegisterRoutes mounts the /auth endpoints. limit wraps the routes that are
// rate limited per client IP.
func (h *AuthHandler) RegisterRoutes(router *mux.Router, auth *middleware.AuthMiddleware, limit func(name string) func(http.Handler) http.Handler) {
	sub := router.PathPrefix("/auth").Subrouter()
	sub.Handle("/register", limit("register")(http.HandlerFunc(h.Register))).Methods(http.MethodPost)
	sub.Handle("/login", limit("login")(http.HandlerFunc(h.Login))).Methods(http.MethodPost)
	sub.Handle("/refresh", limit("refresh")(http.HandlerFunc(h.Refresh))).Methods(http.MethodPost)
	sub.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)
	sub.Handle("/validate", auth.RequireAuth(http.HandlerFunc(h.Validate))).Methods(http.MethodGet)
	sub.Handle("/me", auth.RequireAuth(http.HandlerFunc(h.Me))).Methods(http.MethodGet)
	sub.Handle("/profile", auth.RequireAuth(http.HandlerFunc(h.UpdateProfile))).Methods(http.MethodPut)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid request body")
		return false
	}
	return true
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req inbound.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.ClientIP = middleware.ClientIP(r)

	result, err := h.authUseCase.Register(r.Context(), req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	h.cookies.setSession(w, result.Tokens)
	response.WithUser(w, http.StatusCreated, "Registration successful", result.Principal)
}

// loginBody accepts the identifier under its own name or as username/email.
type loginBody struct {
	Identifier        string `json:"identifier"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	Password          string `json:"password"`
	ChallengeID       string `json:"challenge_id"`
	ChallengeResponse string `json:"challenge_response"`
}

func (b loginBody) identifier() string {
	switch {
	case b.Identifier != "":
		return b.Identifier
	case b.Username != "":
		return b.Username
	}
	return b.Email
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if !decodeBody(w, r, &body) {
		return
	}

	result, err := h.authUseCase.Login(r.Context(), inbound.LoginRequest{
		Identifier:        body.identifier(),
		Password:          body.Password,
		ChallengeID:       body.ChallengeID,
		ChallengeResponse: body.ChallengeResponse,
		ClientIP:          middleware.ClientIP(r),
	})
	if err != nil {
		response.FromError(w, err)
		return
	}

	h.cookies.setSession(w, result.Tokens)
	response.WithUser(w, http.StatusOK, "Login successful", result.Principal)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	result, err := h.authUseCase.Refresh(r.Context(), inbound.RefreshRequest{
		RefreshToken: middleware.RefreshToken(r),
	})
	if err != nil {
		switch domainerror.CodeOf(err) {
		case domainerror.ErrCodeTokenExpired, domainerror.ErrCodeRefreshMismatch, domainerror.ErrCodeTokenTypeMismatch:
			h.cookies.clearRefresh(w)
		}
		response.FromError(w, err)
		return
	}

	h.cookies.setSession(w, result.Tokens)
	response.WithUser(w, http.StatusOK, "Token refreshed", result.Principal)
}

// Logout always succeeds for the caller.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authUseCase.Logout(r.Context(), inbound.LogoutRequest{
		AccessToken:  middleware.AccessToken(r),
		RefreshToken: middleware.RefreshToken(r),
	})

	h.cookies.clearAccess(w)
	h.cookies.clearRefresh(w)
	response.Success(w, http.StatusOK, "Logged out", nil)
}

func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		response.FromError(w, domainerror.ErrAuthRequired())
		return
	}

	summary, err := h.authUseCase.Validate(r.Context(), claims.PrincipalID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WithUser(w, http.StatusOK, "Session valid", summary)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		response.FromError(w, domainerror.ErrAuthRequired())
		return
	}

	profile, err := h.authUseCase.Me(r.Context(), claims.PrincipalID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WithUser(w, http.StatusOK, "success", profile)
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		response.FromError(w, domainerror.ErrAuthRequired())
		return
	}

	var req inbound.UpdateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	profile, err := h.authUseCase.UpdateProfile(r.Context(), claims.PrincipalID, req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WithUser(w, http.StatusOK, "Profile updated", profile)
}
