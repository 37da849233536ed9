// Package response holds the uniform envelope every service call returns.
package response

import (
	"net/http"
	"strconv"
)

type Response struct {
	HasError   bool           `json:"hasError"`
	Message    string         `json:"message"`
	StatusCode string         `json:"statusCode"`
	Payload    map[string]any `json:"payload"`
}

func Success(status int, payload map[string]any) Response {
	if payload == nil {
		payload = map[string]any{}
	}

	return Response{
		HasError:   false,
		Message:    "Success",
		StatusCode: strconv.Itoa(status),
		Payload:    payload,
	}
}

func Error(status int, payload map[string]any) Response {
	if payload == nil {
		payload = map[string]any{}
	}

	return Response{
		HasError:   true,
		Message:    "Error",
		StatusCode: strconv.Itoa(status),
		Payload:    payload,
	}
}

// HTTPStatus turns the textual status code back into an HTTP status line
// value, falling back to 500 when it does not parse.
func (r Response) HTTPStatus() int {
	code, err := strconv.Atoi(r.StatusCode)

	if err != nil || code < 100 || code > 599 {
		return http.StatusInternalServerError
	}

	return code
}
