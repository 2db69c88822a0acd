package entity

import "time"

type History struct {
	ID        string    `json:"id"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"timestamp"`
}
