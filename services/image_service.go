package services

import (
	"fmt"
	"mime/multipart"

	"github.com/tailorbook/tailorbook-api/utils"
)

// ImageService handles garment reference photo upload, retrieval and deletion
type ImageService interface {
	// UploadImage validates and uploads a photo, returns the storage key
	UploadImage(fileHeader *multipart.FileHeader) (string, error)

	// GetImageURL generates a URL for accessing an uploaded photo
	GetImageURL(imageKey string) (string, error)

	// DeleteImage removes a photo from storage
	DeleteImage(imageKey string) error
}

// S3ImageService implements ImageService using AWS S3 for storage
type S3ImageService struct {
	s3Service S3Interface
}

// NewImageService creates an image service with the given storage backend
func NewImageService(s3Service S3Interface) *S3ImageService {
	return &S3ImageService{s3Service: s3Service}
}

// UploadImage validates and uploads a garment photo to S3
func (s *S3ImageService) UploadImage(fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	s3Key, err := s.s3Service.UploadFile(fileHeader)
	if err != nil {
		return "", fmt.Errorf("failed to upload photo: %w", err)
	}

	return s3Key, nil
}

// GetImageURL generates a presigned URL for accessing a photo
func (s *S3ImageService) GetImageURL(imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}

	url, err := s.s3Service.GetPresignedURL(imageKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate photo URL: %w", err)
	}

	return url, nil
}

// DeleteImage deletes a photo from S3
func (s *S3ImageService) DeleteImage(imageKey string) error {
	if imageKey == "" {
		return nil
	}

	if err := s.s3Service.DeleteFile(imageKey); err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}

	return nil
}
