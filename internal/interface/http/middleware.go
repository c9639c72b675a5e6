package httpservice

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/arkade-os/relayd/pkg/errors"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	log "github.com/sirupsen/logrus"
)

const (
	requestIdHeader = "X-Request-Id"
	callerHeader    = "X-Relay-Caller"
)

var somethingWentWrong = errors.INTERNAL_ERROR.New("something went wrong")

// handlerFunc is an http handler returning the error to be converted into the
// json error response.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			writeError(w, err)
		}
	}
}

type errorResponse struct {
	Code     uint16            `json:"code"`
	Name     string            `json:"name"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	var structuredErr errors.Error
	if !stderrors.As(err, &structuredErr) {
		structuredErr = errors.INTERNAL_ERROR.Wrap(err)
	}
	if structuredErr.Code() == errors.INTERNAL_ERROR.Code {
		structuredErr.Log().Error(structuredErr.Error())
	}

	writeJSON(w, runtime.HTTPStatusFromCode(structuredErr.GrpcCode()), errorResponse{
		Code:     structuredErr.Code(),
		Name:     structuredErr.CodeName(),
		Message:  structuredErr.Error(),
		Metadata: structuredErr.Metadata(),
	})
}

func writeJSON(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := r.Header.Get(requestIdHeader)
		if requestId == "" {
			requestId = uuid.NewString()
		}
		w.Header().Set(requestIdHeader, requestId)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.WithField("request_id", requestId).Debugf(
			"%s %s %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start),
		)
	})
}

// panicRecovery converts panics into INTERNAL_ERROR responses instead of
// crashing the server.
func panicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Errorf("panic-recovery middleware recovered from panic: %v", rec)
				log.Errorf("stack trace: %v", string(debug.Stack()))
				writeError(w, somethingWentWrong)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
