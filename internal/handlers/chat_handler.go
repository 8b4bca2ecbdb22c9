package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"estate-backend/internal/middleware"
	"estate-backend/internal/realtime"
	"estate-backend/internal/repositories"
	"estate-backend/pkg/utils"
)

// ChatHandler serves the per-property chat room between a tenant and their
// landlord: message history over REST, live messages over websocket.
type ChatHandler struct {
	Hub        *realtime.Hub
	Messages   *repositories.ChatMessageRepository
	Tenants    *repositories.TenantRepository
	Properties *repositories.PropertyRepository
	Users      *repositories.UserRepository

	upgrader websocket.Upgrader
}

func NewChatHandler(hub *realtime.Hub, messages *repositories.ChatMessageRepository,
	tenants *repositories.TenantRepository, properties *repositories.PropertyRepository,
	users *repositories.UserRepository) *ChatHandler {
	return &ChatHandler{
		Hub:        hub,
		Messages:   messages,
		Tenants:    tenants,
		Properties: properties,
		Users:      users,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin is enforced by CORS on the REST surface; the socket is
			// authenticated by JWT instead.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// History returns recent messages for a property room
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	propertyID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid property ID")
		return
	}
	if !h.canAccessRoom(r, userID, propertyID) {
		utils.Error(w, http.StatusForbidden, "Not a member of this property's room")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	messages, err := h.Messages.ListByProperty(r.Context(), propertyID, limit)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Could not load messages")
		return
	}
	utils.JSON(w, http.StatusOK, messages)
}

// Connect upgrades to a websocket and joins the property room
func (h *ChatHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	propertyID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid property ID")
		return
	}
	if !h.canAccessRoom(r, userID, propertyID) {
		utils.Error(w, http.StatusForbidden, "Not a member of this property's room")
		return
	}

	user, err := h.Users.Get(r.Context(), userID)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Could not load user")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Chat] Upgrade failed for user %d: %v", userID, err)
		return
	}
	h.Hub.Join(conn, propertyID, userID, user.Name)
}

// canAccessRoom allows the property's landlord and its current tenant
func (h *ChatHandler) canAccessRoom(r *http.Request, userID, propertyID int64) bool {
	property, err := h.Properties.GetByID(r.Context(), propertyID)
	if err != nil {
		return false
	}
	if property.LandlordID == userID {
		return true
	}

	tenant, err := h.Tenants.GetByUserID(r.Context(), userID)
	if errors.Is(err, repositories.ErrNotFound) || err != nil {
		return false
	}
	return tenant.PropertyID != nil && *tenant.PropertyID == propertyID
}
