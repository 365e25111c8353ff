package telemetry

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/coregen-ai/convo/pkg/message"
)

// NewLogger builds the package's structured logger: pretty console output to
// w when pretty is true (for local/CLI use, e.g. cmd/convo-ping), structured
// JSON otherwise (the default for services). Neither the teacher nor the
// rest of the pack ships a bespoke logging layer for this client — zerolog
// is the pack's only structured-logging dependency (drawn in via the
// DOMAIN STACK expansion), so this is new rather than adapted.
func NewLogger(w io.Writer, pretty bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// LogRequestError writes one structured log line for a terminal request
// failure, with fields a caller would use to correlate against ratectl's
// metrics (kind, status code, request id, retriability).
func LogRequestError(logger zerolog.Logger, runID string, err *message.Error) {
	evt := logger.Error().
		Str("run_id", runID).
		Str("error.kind", string(err.Kind)).
		Bool("retriable", err.Retriable())
	if err.StatusCode != 0 {
		evt = evt.Int("http.status_code", err.StatusCode)
	}
	if err.RequestID != "" {
		evt = evt.Str("request_id", err.RequestID)
	}
	evt.Msg(err.Message)
}
