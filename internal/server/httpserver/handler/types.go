package handler

import "time"

// Response is the standard JSON envelope. /metrics is the only endpoint
// that does not use it.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// SessionView is the body of GET /session and POST /session/regenerate.
// Data marshals as base64.
type SessionView struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Rejected  bool   `json:"rejected,omitempty"`
	Data      []byte `json:"data"`
}

// GCResult is the body of POST /admin/gc.
type GCResult struct {
	Removed     int    `json:"removed"`
	TriggeredAt string `json:"triggered_at"`
}
