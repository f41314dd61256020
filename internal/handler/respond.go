package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/medtrack/internal/model"
)

// errorBody is the error envelope clients parse: detail is a message or, for
// conflicts, an object.
type errorBody struct {
	Detail any `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail any) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// writeInternal logs err and answers 500 with a generic message.
func writeInternal(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	writeDetail(w, http.StatusInternalServerError, msg)
}

// writeInvalid answers 400 for a *model.ValidationError and 500 otherwise.
func writeInvalid(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		writeDetail(w, http.StatusBadRequest, verr.Message)
		return
	}
	writeInternal(w, logger, "validation failed", err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// pathID parses the {id} path value, answering 400 when it is malformed.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseIDParam(r)
	if err != nil || id <= 0 {
		writeDetail(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string) (int64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func trimmedName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &model.ValidationError{Field: "name", Message: "Name is required"}
	}
	return name, nil
}

// emptyIfNil keeps list responses as [] rather than null.
func emptyIfNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
