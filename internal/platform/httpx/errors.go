package httpx

import (
	"errors"
	"net/http"
)

// Failure classes handlers wrap their errors in; RespondError picks the
// status from the first class that matches.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream unavailable")
)

type errorClass struct {
	err    error
	status int
	title  string
}

var errorClasses = []errorClass{
	{ErrNotFound, http.StatusNotFound, ""},
	{ErrConflict, http.StatusConflict, ""},
	{ErrValidation, http.StatusBadRequest, "Validation Failed"},
	{ErrForbidden, http.StatusForbidden, ""},
	{ErrUnauthorized, http.StatusUnauthorized, ""},
	{ErrUpstream, http.StatusBadGateway, ""},
}

// RespondError writes err as a problem document. Unclassified errors become a
// 500 with no detail so internal messages stay out of responses.
func RespondError(w http.ResponseWriter, err error) {
	for _, c := range errorClasses {
		if errors.Is(err, c.err) {
			Problem(w, c.status, c.title, err.Error())
			return
		}
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
