package httpx

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
	"github.com/mlopez/surveyforge/log"
)

// Will log an error, and send an HTTP response with status 500 and a generic detail message
func LogInternalError(w http.ResponseWriter, r *http.Request, code string, err error) {
	log.Errorf("%s: %s", code, err)
	writeDetail(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

// Will log a debug message, and send an HTTP response with status 404 and a detail message
func LogNotFound(w http.ResponseWriter, r *http.Request, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	writeDetail(w, r, http.StatusNotFound, "not found")
}

// Will log an error code at the given level, and send
// an HTTP response with status and default detail text
func LogStatus(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string) {
	log.Log(level, code)
	writeDetail(w, r, status, http.StatusText(status))
}

// Will log an error code and message at the given level, and send
// an HTTP response with the given status and the formatted message as detail
func LogDetail(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string, msg string, args ...any) {
	detail := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", detail)
	writeDetail(w, r, status, detail)
}

// Error bodies carry a human-readable "detail" field, clients fall
// back to a generic message when it is absent.
func writeDetail(w http.ResponseWriter, r *http.Request, status int, detail string) {
	w.WriteHeader(status)
	render.JSON(w, r, map[string]any{
		"detail": detail,
	})
}
