package common

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIError is the JSON body of every failed request
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newAPIError(status int, code, message string, cause error) *APIError {
	err := &APIError{Status: status, Code: code, Message: message}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

func NewBadRequestError(message string, cause error) *APIError {
	return newAPIError(http.StatusBadRequest, "BAD_REQUEST", message, cause)
}

func NewUnsupportedImageError(cause error) *APIError {
	return newAPIError(http.StatusBadRequest, "UNSUPPORTED_IMAGE", "the uploaded image could not be converted", cause)
}

func NewBadGatewayError(message string, cause error) *APIError {
	return newAPIError(http.StatusBadGateway, "OCR_UNAVAILABLE", message, cause)
}

func NewInternalError(message string, cause error) *APIError {
	return newAPIError(http.StatusInternalServerError, "INTERNAL_ERROR", message, cause)
}

// ErrorClassifier maps a domain error to an APIError; nil means "not mine"
type ErrorClassifier func(err error) *APIError

// NewErrorHandler returns an echo.HTTPErrorHandler that renders APIError bodies.
// Classifiers are consulted in order for errors that are neither APIError nor
// echo.HTTPError; anything unclassified becomes a 500.
func NewErrorHandler(classifiers ...ErrorClassifier) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		apiErr := classify(err, classifiers)
		if apiErr.Status >= http.StatusInternalServerError {
			slog.Error("request failed",
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"status", apiErr.Status,
				"error", err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(apiErr.Status)
		} else {
			err = c.JSON(apiErr.Status, apiErr)
		}
		if err != nil {
			slog.Error("failed to write error response", "error", err)
		}
	}
}

func classify(err error, classifiers []ErrorClassifier) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	}
	for _, classifier := range classifiers {
		if mapped := classifier(err); mapped != nil {
			return mapped
		}
	}
	return NewInternalError("an unexpected error occurred", err)
}
