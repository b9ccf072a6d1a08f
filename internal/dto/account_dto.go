package dto

type SubscribeRequest struct {
	Tier string `json:"tier"`
}

type SubscribeResponse struct {
	URL string `json:"url"`
}
