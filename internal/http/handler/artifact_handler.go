package handler

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/straye-as/quotation-api/internal/artifact"
	"github.com/straye-as/quotation-api/internal/domain"
	"github.com/straye-as/quotation-api/internal/http/middleware"
	"github.com/straye-as/quotation-api/internal/logger"
	"github.com/straye-as/quotation-api/internal/mapper"
	"go.uber.org/zap"
)

type ArtifactHandler struct {
	coordinator *artifact.Coordinator
	logger      *zap.Logger
}

func NewArtifactHandler(coordinator *artifact.Coordinator, logger *zap.Logger) *ArtifactHandler {
	return &ArtifactHandler{
		coordinator: coordinator,
		logger:      logger,
	}
}

// @Summary Get quotation document
// @Description Serves a quotation PDF by filename. A missing file is rebuilt from its quotation record.
// @Tags Artifacts
// @Produce application/pdf
// @Produce json
// @Param filename path string true "Artifact filename"
// @Param download query string false "true or 1 to download as attachment"
// @Success 200 {file} binary
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Failure 503 {object} domain.APIError
// @Router /artifacts/quotations/{filename} [get]
func (h *ArtifactHandler) Serve(w http.ResponseWriter, r *http.Request) {
	req := domain.ArtifactRequest{
		Filename: chi.URLParam(r, "filename"),
		Download: isTruthy(r.URL.Query().Get("download")),
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	log := logger.WithArtifact(middleware.LoggerFromContext(r.Context(), h.logger), req.Filename)

	art, err := h.coordinator.Serve(r.Context(), req.Filename)
	if err != nil {
		h.logFailure(log, err)
		respondWithArtifactError(w, err)
		return
	}

	if art.Regenerated {
		log.Info("Served regenerated artifact", zap.String("served", art.Filename))
	}
	writeArtifact(w, art, req.Download)
}

// @Summary Get a quotation's document
// @Description Serves the PDF of a quotation by record ID, rebuilding it when missing.
// @Tags Artifacts
// @Produce application/pdf
// @Produce json
// @Param id path string true "Quotation ID"
// @Param download query string false "true or 1 to download as attachment"
// @Success 200 {file} binary
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Failure 503 {object} domain.APIError
// @Router /api/v1/quotations/{id}/artifact [get]
func (h *ArtifactHandler) ServeQuotation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quotation ID: must be a valid UUID")
		return
	}

	art, err := h.coordinator.ServeQuotation(r.Context(), id)
	if err != nil {
		h.logFailure(middleware.LoggerFromContext(r.Context(), h.logger).With(zap.String("quotationId", id.String())), err)
		respondWithArtifactError(w, err)
		return
	}

	writeArtifact(w, art, isTruthy(r.URL.Query().Get("download")))
}

// @Summary Regenerate a quotation's document
// @Description Rebuilds the PDF from the quotation record and links it, even if the current file exists.
// @Tags Artifacts
// @Produce json
// @Param id path string true "Quotation ID"
// @Success 200 {object} domain.RegenerateResponse
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Failure 503 {object} domain.APIError
// @Router /api/v1/quotations/{id}/artifact/regenerate [post]
func (h *ArtifactHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quotation ID: must be a valid UUID")
		return
	}

	log := middleware.LoggerFromContext(r.Context(), h.logger).With(zap.String("quotationId", id.String()))

	art, err := h.coordinator.Regenerate(r.Context(), id)
	if err != nil {
		h.logFailure(log, err)
		respondWithArtifactError(w, err)
		return
	}

	log.Info("Artifact regenerated on request", zap.String("filename", art.Filename))
	respondJSON(w, http.StatusOK, domain.RegenerateResponse{
		Success:     true,
		QuotationID: id,
		Filename:    art.Filename,
		Regenerated: art.Regenerated,
		Size:        len(art.Data),
	})
}

// @Summary Explain filename resolution
// @Description Runs the record lookup for a filename without building anything and reports which strategy matched.
// @Tags Artifacts
// @Produce json
// @Param filename path string true "Artifact filename"
// @Success 200 {object} domain.ResolutionDTO
// @Failure 404 {object} domain.APIError
// @Failure 503 {object} domain.APIError
// @Router /api/v1/artifacts/quotations/{filename}/resolution [get]
func (h *ArtifactHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	req := domain.ArtifactRequest{Filename: chi.URLParam(r, "filename")}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	match, err := h.coordinator.Resolve(r.Context(), req.Filename)
	if err != nil {
		respondWithArtifactError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, mapper.ToResolutionDTO(req.Filename, match))
}

func (h *ArtifactHandler) logFailure(log *zap.Logger, err error) {
	if kindOf(err) == artifact.KindNotFound {
		log.Info("Artifact not resolvable", zap.Error(err))
		return
	}
	log.Error("Failed to serve artifact", zap.Error(err))
}

func writeArtifact(w http.ResponseWriter, art *artifact.Artifact, download bool) {
	disposition := "inline"
	if download {
		disposition = "attachment"
	}

	w.Header().Set("Content-Type", "application/pdf")
	// FormatMediaType quotes the name or switches to filename*=utf-8'' for non-ASCII names
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": art.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.Header().Set("Cache-Control", "private, no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Data)
}

// isTruthy accepts the download flag values clients send
func isTruthy(v string) bool {
	return v == "true" || v == "1"
}

func kindOf(err error) artifact.Kind {
	var ae *artifact.Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
