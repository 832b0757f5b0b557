package model

import "time"

type Reward struct {
	ID          int64     `json:"id"`
	CreatorID   string    `json:"creator_id"`
	Name        string    `json:"name"`
	Cost        int       `json:"cost"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
