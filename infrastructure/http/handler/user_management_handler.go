package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/techstore/storefront/application/port/inbound"
	"github.com/techstore/storefront/domain/valueobject"
	"github.com/techstore/storefront/infrastructure/http/middleware"
	"github.com/techstore/storefront/infrastructure/http/response"
)

type UserManagementHandler struct {
	userManagementUseCase inbound.UserManagementUseCase
}

func NewUserManagementHandler(userManagementUseCase inbound.UserManagementUseCase) *UserManagementHandler {
	return &UserManagementHandler{
		userManagementUseCase: userManagementUseCase,
	}
}

// RegisterRoutes mounts /admin. Every route needs a valid access token; the
// role required differs per route.
func (h *UserManagementHandler) RegisterRoutes(router *mux.Router, auth *middleware.AuthMiddleware) {
	sub := router.PathPrefix("/admin").Subrouter()
	sub.Use(auth.RequireAuth)

	adminOnly := auth.RequireRole(valueobject.RoleAdmin)
	staff := auth.RequireRole(valueobject.StaffRoles()...)

	sub.Handle("/users", adminOnly(http.HandlerFunc(h.ListUsers))).Methods(http.MethodGet)
	sub.Handle("/users", adminOnly(http.HandlerFunc(h.CreateUser))).Methods(http.MethodPost)
	sub.Handle("/users/{id}", staff(http.HandlerFunc(h.GetUserDetail))).Methods(http.MethodGet)
	sub.Handle("/users/{id}/role", adminOnly(http.HandlerFunc(h.UpdateUserRole))).Methods(http.MethodPut)
}

func (h *UserManagementHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req inbound.CreateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	summary, err := h.userManagementUseCase.CreateUser(r.Context(), req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, http.StatusCreated, "User created successfully", summary)
}

func (h *UserManagementHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	var req inbound.UpdateUserRoleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	summary, err := h.userManagementUseCase.UpdateUserRole(r.Context(), userID, req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Role updated; it applies from the user's next sign-in or token refresh", summary)
}

func (h *UserManagementHandler) GetUserDetail(w http.ResponseWriter, r *http.Request) {
	profile, err := h.userManagementUseCase.GetUserDetail(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "success", profile)
}

func (h *UserManagementHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := inbound.ListUsersRequest{
		Filter: inbound.ListUsersFilter{
			Name: query.Get("name"),
			Role: query.Get("role"),
		},
	}
	if page, err := strconv.Atoi(query.Get("page")); err == nil {
		req.Page = page
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil {
		req.Limit = limit
	}

	resp, err := h.userManagementUseCase.ListUsers(r.Context(), req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "success", resp)
}
