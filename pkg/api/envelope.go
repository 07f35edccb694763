package api

import (
	"encoding/json"
	"net/http"

	perrors "github.com/jllopis/promptx-bridge/pkg/errors"
)

// CodeOK is the envelope code of a successful response.
const CodeOK = 0

// Envelope wraps every JSON response.
type Envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Code: CodeOK, Msg: "success", Data: data})
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Envelope{Code: status, Msg: msg})
}

// writeError maps err to its HTTP status. Typed errors keep their message;
// anything else is reported with prefix as an internal failure.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, prefix string, err error) {
	status := perrors.StatusOf(err)
	msg := prefix + ": " + err.Error()
	if pe, ok := perrors.As(err); ok {
		msg = pe.Message
	}
	s.metrics.RecordError(r.Context(), err, "api")
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "api.request.error",
			"path", r.URL.Path,
			"status", status,
			"error", err.Error(),
		)
	} else {
		s.logger.WarnContext(r.Context(), "api.request.rejected",
			"path", r.URL.Path,
			"status", status,
			"error", err.Error(),
		)
	}
	writeFail(w, status, msg)
}
