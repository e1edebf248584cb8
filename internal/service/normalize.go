package service

import (
	"encoding/json"
	"errors"
	"net/http"

	"bff-gateway/internal/model"
)

// fallbackErrorBody is used only if encoding an error envelope itself fails.
const fallbackErrorBody = `{"error":"internal gateway error"}`

// successResponse passes the upstream status and body through.
func successResponse(ep *Endpoint, res *model.UpstreamResult) *model.Response {
	status := res.StatusCode
	if ep.NormalizeStatus {
		status = http.StatusOK
	}
	return &model.Response{
		StatusCode: status,
		Body:       jsonText(res.Body),
	}
}

// failureResponse collapses any error past validation into a 500 envelope
// carrying the most specific message available.
func failureResponse(ep *Endpoint, err error) *model.Response {
	return errorResponse(http.StatusInternalServerError, errorPayload(ep, err))
}

// errorResponse wraps payload as {"error": payload}.
func errorResponse(status int, payload any) *model.Response {
	body, err := json.Marshal(map[string]any{"error": payload})
	if err != nil {
		body = []byte(fallbackErrorBody)
	}
	return &model.Response{StatusCode: status, Body: string(body)}
}

// errorPayload prefers the upstream-provided body, then the local error text.
func errorPayload(ep *Endpoint, err error) any {
	var ue *model.UpstreamError
	if !errors.As(err, &ue) || !ue.HasBody() {
		return err.Error()
	}
	if !json.Valid(ue.Body) {
		return string(ue.Body)
	}
	if ep.ErrorDetail == ErrorMessage {
		if msg, ok := nestedMessage(ue.Body); ok {
			return msg
		}
	}
	return json.RawMessage(ue.Body)
}

func nestedMessage(body []byte) (json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, false
	}
	msg, ok := obj["message"]
	return msg, ok && string(msg) != "null"
}

// jsonText returns body unchanged when it is JSON, otherwise encodes it as a
// JSON string. An empty body becomes "".
func jsonText(body []byte) string {
	if len(body) > 0 && json.Valid(body) {
		return string(body)
	}
	b, err := json.Marshal(string(body))
	if err != nil {
		return `""`
	}
	return string(b)
}
