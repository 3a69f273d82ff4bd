package service

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/serverutils"

	"github.com/google/uuid"
)

type IUploadService interface {
	// Save stores the uploaded file under the upload tree and returns the
	// descriptor clients attach to messages.
	Save(file *multipart.FileHeader, saver func(*multipart.FileHeader, string) error) (*dto.UploadResponse, error)
}

type uploadService struct {
	uploadDir string
}

func NewUploadService(uploadDir string) IUploadService {
	return &uploadService{uploadDir: uploadDir}
}

func (s *uploadService) Save(file *multipart.FileHeader, saver func(*multipart.FileHeader, string) error) (*dto.UploadResponse, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, serverutils.NewInternalError("Failed to prepare upload directory", err)
	}

	// UUID prefix keeps colliding client filenames apart.
	stored := fmt.Sprintf("%s-%s", uuid.NewString(), filepath.Base(file.Filename))
	target := filepath.Join(s.uploadDir, stored)

	if err := saver(file, target); err != nil {
		return nil, serverutils.NewInternalError("Failed to store file", err)
	}

	return &dto.UploadResponse{
		Filename: file.Filename,
		Path:     "/uploads/" + stored,
		MimeType: file.Header.Get("Content-Type"),
	}, nil
}
