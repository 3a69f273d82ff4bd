package dto

import "github.com/google/uuid"

type AiMessageRequest struct {
	ChatId  uuid.UUID `json:"chatId" validate:"required"`
	Message string    `json:"message" validate:"required"`
}

// AiMessageResponse carries the persisted AI reply. Warning is set when the
// upstream call failed and the fixed fallback text was used instead.
type AiMessageResponse struct {
	Message MessageResponse `json:"message"`
	Warning string          `json:"warning,omitempty"`
}

type AnalyzeFileRequest struct {
	FileContent string `json:"fileContent" validate:"required"`
	FileName    string `json:"fileName"`
	FileType    string `json:"fileType"`
}

type AnalyzeFileResponse struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	Analysis string `json:"analysis"`
	Warning  string `json:"warning,omitempty"`
}
