package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"certlink/internal/domain/certificate"
	"certlink/internal/domain/workspace"
)

// maxUploadSize caps a certificate upload (file plus form fields)
const maxUploadSize = 10 << 20

// WorkspaceHandler exposes the operator's workspace: client selection, certificates,
// accounts and the linking workflow
type WorkspaceHandler struct {
	workspaces *workspace.Service
}

func NewWorkspaceHandler(workspaces *workspace.Service) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: workspaces}
}

type SelectClientRequest struct {
	ClientID string `json:"clientId"`
}

type ToggleExpandedRequest struct {
	List string `json:"list"`
	ID   string `json:"id"`
}

type ToggleAccountRequest struct {
	AccountID string `json:"accountId"`
}

// ConfirmLinkingRequest confirms the pending selection. Omitting accountIds
// confirms the selection built with toggles.
type ConfirmLinkingRequest struct {
	AccountIDs []string `json:"accountIds"`
}

type DeleteCertificateResponse struct {
	Deleted bool            `json:"deleted"`
	View    *workspace.View `json:"workspace,omitempty"`
}

// HandleWorkspace returns the operator's current snapshot
func (h *WorkspaceHandler) HandleWorkspace(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	op, ok := operatorKey(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.workspaces.View(op))
}

// HandleSelectClient switches the active client; an empty id clears the selection
func (h *WorkspaceHandler) HandleSelectClient(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPut) {
		return
	}
	op, ok := operatorKey(w, r)
	if !ok {
		return
	}

	var req SelectClientRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	view, err := h.workspaces.SelectClient(r.Context(), op, req.ClientID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleToggleExpanded expands or collapses a list entry
func (h *WorkspaceHandler) HandleToggleExpanded(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	op, ok := operatorKey(w, r)
	if !ok {
		return
	}

	var req ToggleExpandedRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	view, err := h.workspaces.ToggleExpanded(op, workspace.List(req.List), req.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleCertificates lists the visible certificates (GET) or uploads a new one (POST)
func (h *WorkspaceHandler) HandleCertificates(w http.ResponseWriter, r *http.Request) {
	op, ok := operatorKey(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.workspaces.View(op).Certificates)
	case http.MethodPost:
		h.handleUpload(w, r, op)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleUpload reads a multipart form with clientId, password and file fields
func (h *WorkspaceHandler) handleUpload(w http.ResponseWriter, r *http.Request, op string) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "certificate file too large", Field: "file"})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid multipart form"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := certificate.UploadRequest{
		ClientID: r.FormValue("clientId"),
		Password: r.FormValue("password"),
	}

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid certificate file", Field: "file"})
		return
	default:
		defer file.Close()
		req.FileName = header.Filename
		if req.File, err = io.ReadAll(file); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Failed to read certificate file", Field: "file"})
			return
		}
	}

	result, err := h.workspaces.Upload(r.Context(), op, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// HandleCertificateByID deletes a certificate. Deletion needs ?confirm=true;
// without it the request is a declined confirmation and nothing changes.
func (h *WorkspaceHandler) HandleCertificateByID(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodDelete) {
		return
	}
	op, ok := operatorKey(w, r)
	if !ok {
		return
	}

	certID := r.PathValue("id")
	if certID == "" {
		http.Error(w, "Certificate ID is required", http.StatusBadRequest)
		return
	}

	confirm, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	confirmer := workspace.ConfirmFunc(func(ctx context.Context, prompt string) (bool, error) {
		log.Debug().Str("operator", op).Bool("confirmed", confirm).Msg(prompt)
		return confirm, nil
	})

	deleted, err := h.workspaces.DeleteCertificate(r.Context(), op, certID, confirmer)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := DeleteCertificateResponse{Deleted: deleted}
	if deleted {
		view := h.workspaces.View(op)
		resp.View = &view
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleOpenLinking starts account selection for an existing certificate
func (h *WorkspaceHandler) HandleOpenLinking(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	op, ok := operatorKey(w, r)
	if !ok {
		return
	}

	linking, err := h.workspaces.OpenLinking(op, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, linking)
}

// HandleRefreshCertificates reloads the selected client's certificates
func (h *WorkspaceHandler) HandleRefreshCertificates(w http.ResponseWriter, r *http.Request) {
	h.refresh(w, r, workspace.ListCertificates)
}

// HandleRefreshAccounts reloads the selected client's accounts
func (h *WorkspaceHandler) HandleRefreshAccounts(w http.ResponseWriter, r *http.Request) {
	h.refresh(w, r, workspace.ListAccounts)
}

func (h *WorkspaceHandler) refresh(w http.ResponseWriter, r *http.Request, list workspace.List) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	op, ok := operatorKey(w, r)
	if !ok {
		return
	}

	view, err := h.workspaces.Refresh(r.Context(), op, list)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleAccounts lists the visible accounts
func (h *WorkspaceHandler) HandleAccounts(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	op, ok := operatorKey(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.workspaces.View(op).Accounts)
}

// HandleLinking returns the pending selection
func (h *WorkspaceHandler) HandleLinking(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	op, ok := operatorKey(w, r)
	if !ok {
		return
	}

	linking, err := h.workspaces.Linking(op)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, linking)
}

// HandleToggleAccount flips one candidate in the pending selection
func (h *WorkspaceHandler) HandleToggleAccount(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	op, ok := operatorKey(w, r)
	if !ok {
		return
	}

	var req ToggleAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	linking, err := h.workspaces.ToggleAccount(op, req.AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, linking)
}

// HandleConfirmLinking persists the selection and returns the updated workspace
func (h *WorkspaceHandler) HandleConfirmLinking(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	op, ok := operatorKey(w, r)
	if !ok {
		return
	}

	var req ConfirmLinkingRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	view, err := h.workspaces.ConfirmLinking(r.Context(), op, req.AccountIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleCancelLinking discards the pending selection
func (h *WorkspaceHandler) HandleCancelLinking(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	op, ok := operatorKey(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.workspaces.CancelLinking(op))
}
