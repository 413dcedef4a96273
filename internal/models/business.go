package models

import "time"

type Business struct {
	BusinessID   string    `json:"businessId"`
	BusinessName string    `json:"businessName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
