package request_models

type AcceptDisclaimerRequest struct {
	UserID        string `json:"user_id" binding:"required"`
	Version       string `json:"version"`
	ConsentSource string `json:"consent_source"`
	IsDemo        bool   `json:"is_demo"`
	ConsentUIHash string `json:"consent_ui_hash"`
	Country       string `json:"country"`
	Locale        string `json:"locale"`
}

type CreateSessionRequest struct {
	Title string `json:"title"`
}

type SendMessageRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
}
