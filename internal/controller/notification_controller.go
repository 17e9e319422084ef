// internal/controller/notification_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/teamcast-backend/internal/errors"
	"github.com/unclebandit/teamcast-backend/internal/model"
	"github.com/unclebandit/teamcast-backend/internal/service"
)

type NotificationController struct {
	Service *service.NotificationService
}

// Routes mounts the repository API.
func (c *NotificationController) Routes(r chi.Router) {
	r.Post("/notifications/drafts", c.CreateDraft)
	r.Get("/notifications/drafts", c.ListDrafts)
	r.Put("/notifications/drafts/{id}", c.UpdateDraft)
	r.Delete("/notifications/drafts/{id}", c.DeleteDraft)
	r.Post("/notifications/drafts/{id}/send", c.Send)
	r.Get("/notifications/sent", c.ListRecentSent)
	r.Post("/notifications/{partition}/{id}/duplicate", c.Duplicate)
	r.Get("/notifications/{partition}/{id}", c.Get)
	r.Post("/images/{name}", c.SaveImage)
	r.Get("/images/{name}", c.GetImage)
	r.Post("/cards/{name}", c.SaveCard)
	r.Get("/cards/{name}", c.GetCard)
}

func (c *NotificationController) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var body struct {
		model.Notification
		CreatedBy string `json:"created_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	draft, err := c.Service.CreateDraft(&body.Notification, body.CreatedBy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, draft)
}

func (c *NotificationController) ListDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := c.Service.ListDrafts()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": drafts})
}

func (c *NotificationController) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body model.Notification
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	updated, err := c.Service.UpdateDraft(id, &body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (c *NotificationController) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := c.Service.DeleteDraft(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *NotificationController) Send(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		SentBy string `json:"sent_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	result, err := c.Service.Send(id, body.SentBy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

func (c *NotificationController) ListRecentSent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	sent, err := c.Service.ListRecentSent(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": sent})
}

func (c *NotificationController) Get(w http.ResponseWriter, r *http.Request) {
	partition := model.Partition(chi.URLParam(r, "partition"))
	id := chi.URLParam(r, "id")

	n, err := c.Service.Get(partition, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if n == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (c *NotificationController) Duplicate(w http.ResponseWriter, r *http.Request) {
	partition := model.Partition(chi.URLParam(r, "partition"))
	id := chi.URLParam(r, "id")

	var body struct {
		CreatedBy string `json:"created_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := c.Service.Duplicate(partition, id, body.CreatedBy); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (c *NotificationController) SaveImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var body struct {
		Base64 string `json:"base64"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	stored, err := c.Service.SaveImage(name, body.Base64)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": stored})
}

func (c *NotificationController) GetImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	prefix := r.URL.Query().Get("prefix")

	content, err := c.Service.GetImage(prefix, name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"base64": content})
}

func (c *NotificationController) SaveCard(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := c.Service.SaveCard(name, string(payload)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *NotificationController) GetCard(w http.ResponseWriter, r *http.Request) {
	payload, err := c.Service.GetCard(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(payload))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP: absent rows are 404,
// retryable store failures are 503, everything else is a 500.
func writeError(w http.ResponseWriter, err error) {
	var notFound *appErrors.ErrNotificationNotFound
	if errors.As(err, &notFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if appErrors.IsRetryable(err) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
