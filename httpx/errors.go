package httpx

import (
	"fmt"
	"net/http"

	"github.com/reliefworks/formsync/log"
)

// LogInternalError logs an error under the given code and sends a plain 500.
// The code, not the error, is what reaches the client logs dashboard.
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// LogNotFound logs a debug message with the missing id and sends a bare 404.
func LogNotFound(w http.ResponseWriter, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	w.WriteHeader(http.StatusNotFound)
}

// LogStatus logs an error code at the given level and sends the
// status with its default text.
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// LogStatusMsg logs an error code and formatted message at the given level,
// and sends the message to the client with the given status.
func LogStatusMsg(w http.ResponseWriter, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	http.Error(w, errMsg, status)
}

// LogUnprocessable rejects a structurally valid request whose content
// violates a model rule, with a message the dashboard can show verbatim.
func LogUnprocessable(w http.ResponseWriter, code string, msg string, args ...any) {
	LogStatusMsg(w, http.StatusUnprocessableEntity, log.DebugLevel, code, msg, args...)
}

// LogConflict rejects a request that lost against the current record state,
// such as an illegal status transition or a submission to a closed form.
func LogConflict(w http.ResponseWriter, code string, msg string, args ...any) {
	LogStatusMsg(w, http.StatusConflict, log.DebugLevel, code, msg, args...)
}
