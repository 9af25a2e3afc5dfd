package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/user/playtime-tracker/internal/domain"
	"github.com/user/playtime-tracker/internal/usecase"
)

// IngestHandler handles HTTP requests for log line ingestion. The shipper
// (Fluent Bit) posts either a single {"log","log_id"} object or an array of
// them; lines are applied in payload order and each line gets its own
// outcome.
type IngestHandler struct {
	useCase  *usecase.TrackSessionsUseCase
	logger   *slog.Logger
	maxBytes int64
	now      func() time.Time
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(uc *usecase.TrackSessionsUseCase, logger *slog.Logger, maxBytes int64) *IngestHandler {
	return &IngestHandler{
		useCase:  uc,
		logger:   logger,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

type ingestResponse struct {
	OK        bool                `json:"ok"`
	Processed int                 `json:"processed"`
	Results   []domain.LineResult `json:"results"`
}

// ServeHTTP processes incoming ingest requests.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	lines, err := h.decodeLines(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			http.Error(w, "Payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.logger.Warn("failed to decode ingest payload", "error", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	// Every admitted event runs to completion even if the shipper hangs up
	// mid-batch; there is no cancellation concept inside the engine.
	results := h.useCase.ApplyBatch(context.WithoutCancel(r.Context()), lines)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(ingestResponse{OK: true, Processed: len(results), Results: results}); err != nil {
		h.logger.Error("failed to encode ingest response", "error", err)
	}
}

// decodeLines accepts a JSON array of lines or a single line object.
func (h *IngestHandler) decodeLines(body io.Reader) ([]domain.RawLogLine, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	receivedAt := h.now()
	var lines []domain.RawLogLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		var single domain.RawLogLine
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, err
		}
		lines = []domain.RawLogLine{single}
	}
	for i := range lines {
		lines[i].ReceivedAt = receivedAt
	}
	return lines, nil
}
