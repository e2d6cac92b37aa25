package handlers

import (
  "errors"
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/casaplan/casaplan-backend/internal/apperr"
)

type APIError struct {
  Message string `json:"message"`
  Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
  Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
  msg := "unknown error"
  if err != nil {
    msg = err.Error()
  }
  c.JSON(status, ErrorEnvelope{
    Error: APIError{
      Message: msg,
      Code:    code,
    },
  })
}

func RespondOK(c *gin.Context, payload any) {
  c.JSON(http.StatusOK, payload)
}

// RespondAppError maps the service error taxonomy to HTTP statuses:
// validation 400, not found 404, upstream generation 502, everything
// else 500.
func RespondAppError(c *gin.Context, err error) {
  switch {
  case errors.Is(err, apperr.ErrValidation):
    RespondError(c, http.StatusBadRequest, "validation_failed", err)
  case errors.Is(err, apperr.ErrNotFound):
    RespondError(c, http.StatusNotFound, "not_found", err)
  case errors.Is(err, apperr.ErrUpstreamGeneration):
    RespondError(c, http.StatusBadGateway, "plan_generation_failed", err)
  default:
    RespondError(c, http.StatusInternalServerError, "internal_error", err)
  }
}
