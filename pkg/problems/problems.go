// Package problems defines the structured result codes handlers return
// instead of raising errors. Authorization failures, missing resources and
// expired tokens are all data, not exceptions.
package problems

import (
	"encoding/json"
	"net/http"
)

type Code string

const (
	Success          Code = "success"
	Expired          Code = "expired"
	NoAccessToken    Code = "no-access-token"
	NotFound         Code = "not-found"
	PermissionDenied Code = "permission-denied"
	Unauthenticated  Code = "unauthenticated"
	InvalidArgument  Code = "invalid-argument"
	Internal         Code = "internal"
)

// Result is the wire shape of every handler outcome.
type Result struct {
	Code    Code           `json:"code"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

func OK(data map[string]any) Result { return Result{Code: Success, Data: data} }

func Err(code Code, msg string) Result { return Result{Code: code, Message: msg} }

func (r Result) IsSuccess() bool { return r.Code == Success }

// HTTPStatus maps a result code to the HTTP status used when writing it.
func (r Result) HTTPStatus() int {
	switch r.Code {
	case Success:
		return http.StatusOK
	case Unauthenticated:
		return http.StatusUnauthorized
	case PermissionDenied:
		return http.StatusForbidden
	case NotFound, NoAccessToken, Expired:
		return http.StatusNotFound
	case InvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func Write(w http.ResponseWriter, r Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(r.HTTPStatus())
	_ = json.NewEncoder(w).Encode(r)
}
