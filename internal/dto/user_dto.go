package dto

import "github.com/google/uuid"

type UserResponse struct {
	Id        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	AvatarURL *string   `json:"avatar,omitempty"`
}

// SenderResponse is the resolved identity attached to a message. AI-authored
// messages carry the fixed "AI" username and no id.
type SenderResponse struct {
	Id        *uuid.UUID `json:"id,omitempty"`
	Username  string     `json:"username"`
	AvatarURL *string    `json:"avatar,omitempty"`
}
