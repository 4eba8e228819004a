// Package httpapi exposes the vault over HTTP/JSON. Handlers decode
// requests, delegate to the services and translate the error taxonomy to
// status codes; no business rules live here.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/avolkov-dev/filevault/internal/common"
	"github.com/avolkov-dev/filevault/internal/logging"
	"github.com/avolkov-dev/filevault/internal/server/services"
)

// Download response headers. The ciphertext travels as the body; the
// decryption material rides alongside it.
const (
	HeaderEncryptionIV = "X-Encryption-IV"
	HeaderFileKey      = "X-File-Key"
	HeaderOriginalName = "X-Original-Name"
)

const maxUploadBytes = 64 << 20 // 64 MiB of JSON-wrapped ciphertext

type Handler struct {
	users  *services.UserService
	files  *services.FileService
	shares *services.ShareService
	audit  *services.AuditService
	logger logging.Logger
}

func NewHandler(users *services.UserService, files *services.FileService, shares *services.ShareService, audit *services.AuditService, logger logging.Logger) *Handler {
	return &Handler{
		users:  users,
		files:  files,
		shares: shares,
		audit:  audit,
		logger: logger,
	}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/verify-code", h.verifyCode)
		r.Post("/token/refresh", h.refresh)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware)

			r.Post("/logout", h.logout)
			r.Get("/counter", h.counter)

			r.Route("/files", func(r chi.Router) {
				r.Get("/", h.listFiles)
				r.Post("/", h.uploadFile)
				r.Get("/shared", h.listSharedFiles)

				r.Route("/{fileID}", func(r chi.Router) {
					r.Get("/", h.downloadFile)
					r.Put("/", h.editFile)
					r.Delete("/", h.deleteFile)
					r.Get("/key", h.wrappedKey)
					r.Post("/share", h.shareFile)
					r.Post("/unshare", h.unshareFile)
					r.Get("/recipients", h.listRecipients)
					r.Get("/shareable", h.listShareable)
				})
			})

			r.Get("/users", h.listUsers)
			r.Get("/users/{userID}/public-key", h.publicKey)
			r.Get("/admin/logs", h.adminLogs)
		})
	})

	return r
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, common.ErrValidation)
		return false
	}
	return true
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Email, req.Password, req.PublicKey, req.SigningPublicKey)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{UserID: user.ID})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pending, err := h.users.Login(r.Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{UserID: pending.UserID, Counter: pending.Counter})
}

func (h *Handler) verifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.users.VerifyCode(r.Context(), req.UserID, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	var req logoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.users.Logout(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}

	h.audit.Append(r.Context(), userID, "logout", req.ActionSignature, "")

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) counter(w http.ResponseWriter, r *http.Request) {
	counter, err := h.users.GetCounter(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, counterResponse{Counter: counter})
}

func (h *Handler) listFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.files.ListOwn(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, fileResponse{
			ID: f.ID, OwnerID: f.OwnerID, IV: f.IV,
			OriginalName: f.OriginalName, OriginalType: f.OriginalType,
			Size: f.Size, CreatedAt: f.CreatedAt, UpdatedAt: f.UpdatedAt,
		})
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) listSharedFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.files.ListSharedWithMe(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, fileResponse{
			ID: f.ID, OwnerID: f.OwnerID, IV: f.IV,
			OriginalName: f.OriginalName, OriginalType: f.OriginalType,
			Size: f.Size, CreatedAt: f.CreatedAt, UpdatedAt: f.UpdatedAt,
		})
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) uploadFile(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	file, err := h.files.Upload(r.Context(), userIDFromContext(r.Context()), &services.UploadRequest{
		Ciphertext:      req.Ciphertext,
		IV:              req.IV,
		WrappedOwnerKey: req.WrappedOwnerKey,
		OriginalName:    req.OriginalName,
		OriginalType:    req.OriginalType,
		Size:            req.Size,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, fileResponse{
		ID: file.ID, OwnerID: file.OwnerID, IV: file.IV,
		OriginalName: file.OriginalName, OriginalType: file.OriginalType,
		Size: file.Size, CreatedAt: file.CreatedAt, UpdatedAt: file.UpdatedAt,
	})
}

func (h *Handler) downloadFile(w http.ResponseWriter, r *http.Request) {
	res, err := h.files.Download(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "fileID"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set(HeaderEncryptionIV, res.IV)
	w.Header().Set(HeaderFileKey, res.WrappedKeyForUser)
	w.Header().Set(HeaderOriginalName, res.OriginalName)
	if res.OriginalType != "" {
		w.Header().Set("Content-Type", res.OriginalType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Ciphertext)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Ciphertext)
}

func (h *Handler) editFile(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	file, err := h.files.Edit(r.Context(), userIDFromContext(r.Context()), &services.EditRequest{
		FileID:          chi.URLParam(r, "fileID"),
		Ciphertext:      req.Ciphertext,
		IV:              req.IV,
		WrappedOwnerKey: req.WrappedOwnerKey,
		OriginalName:    req.OriginalName,
		OriginalType:    req.OriginalType,
		Size:            req.Size,
		ActionToken:     req.ActionSignature,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fileResponse{
		ID: file.ID, OwnerID: file.OwnerID, IV: file.IV,
		OriginalName: file.OriginalName, OriginalType: file.OriginalType,
		Size: file.Size, CreatedAt: file.CreatedAt, UpdatedAt: file.UpdatedAt,
	})
}

func (h *Handler) deleteFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActionSignature string `json:"actionSignature"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.files.Delete(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "fileID"), req.ActionSignature)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) wrappedKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.files.WrappedKeyFor(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "fileID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, wrappedKeyResponse{WrappedKey: key})
}

func (h *Handler) shareFile(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	grant, err := h.shares.Share(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "fileID"), req.RecipientID, req.WrappedKey)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, shareResponse{GrantID: grant.ID})
}

func (h *Handler) unshareFile(w http.ResponseWriter, r *http.Request) {
	var req unshareRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.shares.Unshare(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "fileID"), req.RecipientID, req.ActionSignature)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listRecipients(w http.ResponseWriter, r *http.Request) {
	grants, err := h.shares.ListSharedWith(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "fileID"))
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]recipientResponse, 0, len(grants))
	for _, g := range grants {
		out = append(out, recipientResponse{UserID: g.SharedWith, SharedAt: g.CreatedAt})
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) listShareable(w http.ResponseWriter, r *http.Request) {
	users, err := h.shares.ListShareable(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "fileID"))
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{ID: u.ID, Username: u.Username, Email: u.Email})
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{ID: u.ID, Username: u.Username, Email: u.Email})
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) publicKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.users.GetPublicKey(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, publicKeyResponse{PublicKey: key})
}

func (h *Handler) adminLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.audit.List(r.Context(), userIDFromContext(r.Context()), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]logEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, logEntryResponse{
			ID: e.ID, Timestamp: e.Timestamp, Message: e.Message,
			UserID: e.UserID, Signature: e.Signature, Metadata: e.Metadata, Level: e.Level,
		})
	}

	writeJSON(w, http.StatusOK, out)
}
