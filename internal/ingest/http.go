package ingest

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"roadwatch/internal/metrics"
)

// HTTPHandler decodes JSON issue records and forwards them to sink.
// Params: sink receives validated records, max body limits payload size.
// Returns: HTTP handler for issue push endpoint.
type HTTPHandler struct {
	sink        IssueSink
	maxBodySize int64
	logger      *slog.Logger
}

// NewHTTPHandler creates ingest HTTP handler.
// Params: sink, max request body size in bytes, and logger.
// Returns: configured handler.
func NewHTTPHandler(sink IssueSink, maxBodySize int64, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{sink: sink, maxBodySize: maxBodySize, logger: logger}
}

// ServeHTTP handles one incoming issue or issue batch.
// Params: HTTP request/response writer pair.
// Returns: writes status code according to decode/push result.
func (h *HTTPHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost && request.Method != http.MethodPut {
		writeError(writer, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	request.Body = http.MaxBytesReader(writer, request.Body, h.maxBodySize)
	defer request.Body.Close()
	body, err := io.ReadAll(request.Body)
	if err != nil {
		writeError(writer, http.StatusBadRequest, err.Error())
		return
	}

	records, batch, err := decodePayload(body)
	if err != nil {
		metrics.IssuesIngested.WithLabelValues("http", "invalid").Inc()
		if h.logger != nil {
			h.logger.Debug("http ingest decode failed", "error", err.Error())
		}
		writeError(writer, http.StatusBadRequest, err.Error())
		return
	}

	if err := deliver(h.sink, records, batch); err != nil {
		metrics.IssuesIngested.WithLabelValues("http", "error").Inc()
		writeError(writer, http.StatusServiceUnavailable, err.Error())
		return
	}
	metrics.IssuesIngested.WithLabelValues("http", "ok").Add(float64(len(records)))
	writer.WriteHeader(http.StatusAccepted)
}

func writeError(writer http.ResponseWriter, status int, message string) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(map[string]string{"error": message})
}
