package http

import (
	"context"
	"net/http"

	"certlink/internal/domain/client"
)

// ClientLister lists selectable clients
type ClientLister interface {
	ListClients(ctx context.Context) ([]*client.Client, error)
}

type ClientHandler struct {
	clients ClientLister
}

func NewClientHandler(clients ClientLister) *ClientHandler {
	return &ClientHandler{clients: clients}
}

// HandleListClients returns every client the operator can select
func (h *ClientHandler) HandleListClients(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	clients, err := h.clients.ListClients(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}
