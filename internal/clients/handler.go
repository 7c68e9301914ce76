package clients

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/invora-hq/invora/internal/authz"
	"github.com/invora-hq/invora/internal/platform/httpx"
	"github.com/invora-hq/invora/internal/shared"
)

// Handler exposes the client endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers client and attachment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/clients", func(r chi.Router) {
		// Reads are open to any active member; only writes need the
		// manage permission.
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
		r.Get("/{id}/attachments", h.listAttachments)
		r.Get("/{id}/attachments/{attachmentID}/download", h.download)
		r.Group(func(r chi.Router) {
			r.Use(requireManageClients)
			r.Post("/", h.create)
			r.Put("/{id}", h.update)
			r.Delete("/{id}", h.delete)
			r.Post("/{id}/attachments", h.upload)
			r.Delete("/{id}/attachments/{attachmentID}", h.deleteAttachment)
		})
	})
}

func requireManageClients(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := shared.IdentityFromContext(r.Context())
		if !identity.Can(authz.ManageClients) {
			httpx.RespondError(w, httpx.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	filters := ListFilters{
		Query:   r.URL.Query().Get("q"),
		Page:    httpx.QueryInt(r, "page", 1),
		PerPage: httpx.QueryInt(r, "per_page", 20),
	}
	list, pagination, err := h.service.List(r.Context(), identity.AccountID, filters)
	if err != nil {
		h.logger.Error("list clients", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []Client{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"clients": list, "pagination": pagination})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	client, err := h.service.Get(r.Context(), identity.AccountID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	client, err := h.service.Create(r.Context(), identity, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	client, err := h.service.Update(r.Context(), identity, id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if err := h.service.Delete(r.Context(), identity, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listAttachments(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	attachments, err := h.service.ListAttachments(r.Context(), identity.AccountID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if attachments == nil {
		attachments = []Attachment{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"attachments": attachments})
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if err := r.ParseMultipartForm(maxAttachmentSize); err != nil {
		httpx.RespondError(w, httpx.NewValidationError(httpx.FieldError{Field: "file", Message: "invalid multipart body"}))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.RespondError(w, httpx.NewValidationError(httpx.FieldError{Field: "file", Message: "is required"}))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxAttachmentSize+1))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	attachment, err := h.service.Upload(r.Context(), identity, id, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, attachment)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	attachmentID, err := pathID(r, "attachmentID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	attachment, err := h.service.Download(r.Context(), identity.AccountID, id, attachmentID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", attachment.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.FileName))
	w.Header().Set("Content-Length", strconv.FormatInt(attachment.ByteSize, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(attachment.Data)
}

func (h *Handler) deleteAttachment(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	attachmentID, err := pathID(r, "attachmentID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if err := h.service.DeleteAttachment(r.Context(), identity, id, attachmentID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
