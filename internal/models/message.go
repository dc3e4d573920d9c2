package models

import "time"

// ChatMessage is one message in a session transcript. Messages are written
// by the external worker and read back by the API.
type ChatMessage struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	TeamID    string    `json:"team_id"`
	Author    string    `json:"author"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Tokens    int64     `json:"tokens"`
}
