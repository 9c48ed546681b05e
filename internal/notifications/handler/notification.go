package handler

import (
	"net/http"

	"healthmatch/internal/notifications/service"
	"healthmatch/pkg/auth"
	apperrors "healthmatch/pkg/errors"
	httputil "healthmatch/pkg/http"
	"healthmatch/pkg/logger"
	"healthmatch/pkg/middleware"
	"healthmatch/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type NotificationHandler struct {
	service service.NotificationService
	log     *logger.Logger
}

type UnreadCountResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

type MarkAllReadResponse struct {
	Message string `json:"message"`
	Count   int64  `json:"count"`
}

func NewNotificationHandler(service service.NotificationService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		log:     log,
	}
}

func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, ok := h.principal(w, r, "Create")
	if !ok {
		return
	}

	var req model.NotificationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	n, err := h.service.Create(r.Context(), principal, &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, n); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *NotificationHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, ok := h.principal(w, r, "GetByID")
	if !ok {
		return
	}

	n, err := h.service.GetByID(r.Context(), principal, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, n); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *NotificationHandler) ListForUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, ok := h.principal(w, r, "ListForUser")
	if !ok {
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListForUser", err)
		return
	}
	unreadOnly, err := httputil.ParseBoolQuery(r, "unread_only", false)
	if err != nil {
		h.writeError(w, "ListForUser", err)
		return
	}

	notifications, total, err := h.service.ListForUser(r.Context(), principal, model.NotificationFilter{
		RecipientID: ps.ByName("user_id"),
		UnreadOnly:  unreadOnly,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		h.writeError(w, "ListForUser", err)
		return
	}

	if err := httputil.WritePaginated(w, notifications, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListForUser", "operation", "WritePaginated", "error", err)
	}
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, ok := h.principal(w, r, "UnreadCount")
	if !ok {
		return
	}

	count, err := h.service.UnreadCount(r.Context(), principal, ps.ByName("user_id"))
	if err != nil {
		h.writeError(w, "UnreadCount", err)
		return
	}

	if err := httputil.WriteSuccess(w, UnreadCountResponse{UnreadCount: count}); err != nil {
		h.log.Error("failed to write success response", "handler", "UnreadCount", "operation", "WriteSuccess", "error", err)
	}
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, ok := h.principal(w, r, "MarkRead")
	if !ok {
		return
	}

	n, err := h.service.MarkRead(r.Context(), principal, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "MarkRead", err)
		return
	}

	if err := httputil.WriteSuccess(w, n); err != nil {
		h.log.Error("failed to write success response", "handler", "MarkRead", "operation", "WriteSuccess", "error", err)
	}
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, ok := h.principal(w, r, "MarkAllRead")
	if !ok {
		return
	}

	count, err := h.service.MarkAllRead(r.Context(), principal, ps.ByName("user_id"))
	if err != nil {
		h.writeError(w, "MarkAllRead", err)
		return
	}

	if err := httputil.WriteSuccess(w, MarkAllReadResponse{
		Message: "Notifications marked as read",
		Count:   count,
	}); err != nil {
		h.log.Error("failed to write success response", "handler", "MarkAllRead", "operation", "WriteSuccess", "error", err)
	}
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, ok := h.principal(w, r, "Delete")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), principal, ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *NotificationHandler) principal(w http.ResponseWriter, r *http.Request, handler string) (auth.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.writeError(w, handler, apperrors.Unauthorized("Authentication required"))
		return auth.Principal{}, false
	}
	return principal, true
}

func (h *NotificationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

// servicesOnly lets through sibling services and admins.
func (h *NotificationHandler) servicesOnly(next httprouter.Handle) httprouter.Handle {
	guard := middleware.RequireRole(h.log, auth.RoleService, auth.RoleAdmin)
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next(w, r, ps)
		})).ServeHTTP(w, r)
	}
}

func (h *NotificationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/notifications", h.servicesOnly(h.Create))
	router.GET("/api/v1/notifications/id/:id", h.GetByID)
	router.GET("/api/v1/notifications/user/:user_id", h.ListForUser)
	router.GET("/api/v1/notifications/user/:user_id/unread-count", h.UnreadCount)
	router.PATCH("/api/v1/notifications/user/:user_id/read-all", h.MarkAllRead)
	router.PATCH("/api/v1/notifications/id/:id/read", h.MarkRead)
	router.DELETE("/api/v1/notifications/id/:id", h.Delete)
}
