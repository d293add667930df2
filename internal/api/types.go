package api

import "time"

type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
}

type ErrorResponse struct {
	Errors string `json:"errors"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type AddTreeRequest struct {
	Name         string `json:"name"`
	SerialNumber string `json:"serialNumber"`
	Price        int64  `json:"price"`
	Quantity     int64  `json:"quantity"`
}

type AddTreeResponse struct {
	Created bool `json:"created"`
}

type UpdatePriceRequest struct {
	Price int64 `json:"price"`
}

type TreeResponse struct {
	Name         string `json:"name"`
	SerialNumber string `json:"serialNumber"`
	Price        int64  `json:"price"`
	Quantity     int64  `json:"quantity"`
}

type PlantRequest struct {
	Tree     string `json:"tree"`
	Quantity int64  `json:"quantity"`
	Payment  int64  `json:"payment"`
}

type TransferRequest struct {
	ToUser   string `json:"toUser"`
	Tree     string `json:"tree"`
	Quantity int64  `json:"quantity"`
}

type ReturnRequest struct {
	Tree     string `json:"tree"`
	Quantity int64  `json:"quantity"`
}

type ReturnResponse struct {
	Refund int64 `json:"refund"`
}

type RewardResponse struct {
	Tree      string     `json:"tree"`
	Fruits    int64      `json:"fruits"`
	Flowers   int64      `json:"flowers"`
	Woods     int64      `json:"woods"`
	ClaimedAt *time.Time `json:"claimedAt,omitempty"`
}

type SaplingResponse struct {
	Tree      string    `json:"tree"`
	Quantity  int64     `json:"quantity"`
	Price     int64     `json:"price"`
	PlantedAt time.Time `json:"plantedAt"`
}

type InfoResponse struct {
	Saplings []SaplingResponse `json:"saplings"`
	Rewards  []RewardResponse  `json:"rewards"`
}
