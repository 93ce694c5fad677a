// internal/portal/api/response.go
package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"agritour-certification/internal/common/errors"
	"agritour-certification/internal/common/logger"
)

const storageFullMessage = "Storage may be full. Please free some space and try again."

// Response is the envelope of every portal API reply.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Code     string `json:"code"`
	Category string `json:"category"`
	Details  string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, Response{Success: true, Message: message, Data: data})
}

// StatusFor maps an error to its HTTP status by taxonomy class.
func StatusFor(stdErr *errors.StandardError) int {
	switch errors.GetErrorCategory(stdErr.Code) {
	case errors.CategoryValidation:
		return http.StatusUnprocessableEntity
	case errors.CategoryPersistence:
		return http.StatusInsufficientStorage
	case errors.CategoryRemote:
		return http.StatusServiceUnavailable
	case errors.CategoryAuth:
		if stdErr.Code == errors.ErrCodeForbidden {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case errors.CategoryBusiness:
		return http.StatusConflict
	case errors.CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	stdErr := errors.Normalize(err)
	status := StatusFor(stdErr)
	category := errors.GetErrorCategory(stdErr.Code)

	message := stdErr.Message
	if category == errors.CategoryPersistence {
		message = storageFullMessage
	}

	fields := map[string]interface{}{
		"code":   stdErr.Code,
		"status": status,
	}
	if status >= http.StatusInternalServerError {
		fields["error"] = err.Error()
		log.Error("Request failed", fields)
	} else {
		log.Debug("Request rejected", fields)
	}

	details := stdErr.Details
	if stdErr.Code == errors.ErrCodeInternal {
		details = ""
	}
	writeJSON(w, status, Response{
		Message: message,
		Error:   &ErrorBody{Code: string(stdErr.Code), Category: category, Details: details},
	})
}

// writeBadRequest rejects a request that could not be read at all.
func writeBadRequest(w http.ResponseWriter, details string) {
	writeJSON(w, http.StatusBadRequest, Response{
		Message: "Invalid request",
		Error:   &ErrorBody{Code: "INVALID_REQUEST", Category: errors.CategoryValidation, Details: details},
	})
}
