package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/user/contact-crawler/internal/delivery/http/request"
	"github.com/user/contact-crawler/internal/delivery/http/response"
	"github.com/user/contact-crawler/internal/entity"
	"github.com/user/contact-crawler/internal/usecase"
	"go.uber.org/zap"
)

type Handler struct {
	urlManager usecase.URLManager
	logger     *zap.Logger
}

func NewHandler(urlManager usecase.URLManager, logger *zap.Logger) *Handler {
	return &Handler{
		urlManager: urlManager,
		logger:     logger,
	}
}

func (h *Handler) HandleSubmitDomains(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitDomainsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	domains := req.All()
	if len(domains) == 0 {
		h.writeJSONError(w, "At least one domain is required", http.StatusBadRequest)
		return
	}

	resp := response.SubmitDomainsResponse{Queued: []string{}}
	for _, domain := range domains {
		task, err := h.urlManager.Submit(r.Context(), domain, req.Force)
		switch {
		case err == nil:
			resp.Queued = append(resp.Queued, task.Domain)
		case errors.Is(err, usecase.ErrInvalidDomain), errors.Is(err, usecase.ErrDomainAlreadyQueued):
			resp.Skipped = append(resp.Skipped, response.SkippedEntry{Domain: domain, Reason: err.Error()})
		default:
			h.logger.Error("Failed to submit domain", zap.String("domain", domain), zap.Error(err))
			h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	if len(resp.Queued) == 0 {
		resp.Status = "skipped"
		resp.Message = "No domain was queued"
		h.writeJSON(w, http.StatusConflict, resp)
		return
	}
	resp.Status = "success"
	resp.Message = "Domains submitted for crawling"
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domain")
	if domain == "" {
		h.writeJSONError(w, "domain query parameter is required", http.StatusBadRequest)
		return
	}

	status, err := h.urlManager.GetStatus(r.Context(), entity.NewDomainTask(domain).Domain)
	if err != nil {
		h.logger.Error("Failed to get crawl status", zap.String("domain", domain), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if status.CurrentStatus == entity.StatusNotFound {
		h.writeJSONError(w, "Crawl status not found for the given domain", http.StatusNotFound)
		return
	}

	resp := response.CrawlStatusResponse{
		Domain:             status.Domain,
		CurrentStatus:      status.CurrentStatus,
		LastBatchID:        status.LastBatchID,
		LastCrawlTimestamp: status.LastCrawlTimestamp,
		PageCount:          status.PageCount,
		FailureReason:      status.FailureReason,
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	size, err := h.urlManager.QueueSize(r.Context())
	if err != nil {
		h.logger.Error("Failed to read queue size", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.QueueResponse{Size: size})
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
