package wsserver

// APIResponse is the REST envelope shape, kept verbatim from the
// teacher's models.APIResponse (models/response.go) — only the
// domain served inside Data changes (device/status, not
// devices/actions).
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func successResponse(data interface{}) APIResponse {
	return APIResponse{Success: true, Data: data}
}

func errorResponse(err string) APIResponse {
	return APIResponse{Success: false, Error: err}
}
