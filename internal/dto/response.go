package dto

// BaseResponse is the JSON envelope of every API reply. Code repeats the HTTP
// status for clients that only look at the body.
type BaseResponse struct {
	Code    int    `json:"code"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func NewBaseResponse(status int, message string, data any) BaseResponse {
	return BaseResponse{
		Code:    status,
		Success: status < 400,
		Message: message,
		Data:    data,
	}
}
