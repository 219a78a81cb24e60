package domain

// Общий конверт ответа: {success, message, data} или {success:false, error}
type APIEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func OkData(data any) APIEnvelope { return APIEnvelope{Success: true, Data: data} }
func OkMessage(msg string, data any) APIEnvelope {
	return APIEnvelope{Success: true, Message: msg, Data: data}
}
func Fail(text string) APIEnvelope { return APIEnvelope{Success: false, Error: text} }
