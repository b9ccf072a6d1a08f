package dto

type ExchangeRequest struct {
	Token string `json:"token"`
}

type SessionResponse struct {
	UniverseTime string `json:"universe_time"`
}
