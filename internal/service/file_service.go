package service

import (
	"context"
	"fmt"
	"io"

	"github.com/coretrack/warranty-api/internal/domain"
	"github.com/coretrack/warranty-api/internal/storage"
	"github.com/coretrack/warranty-api/internal/store"
	"go.uber.org/zap"
)

// FileService attaches files to service cases. Bytes go to blob storage;
// metadata rows go to the active record backend, linked by case code like
// the part rows are.
type FileService struct {
	store   store.Store
	storage storage.Storage
	logger  *zap.Logger
}

func NewFileService(st store.Store, blobs storage.Storage, logger *zap.Logger) *FileService {
	return &FileService{store: st, storage: blobs, logger: logger}
}

// UploadToCase stores a file against an existing case
func (s *FileService) UploadToCase(ctx context.Context, caseCode, filename, contentType string, data io.Reader) (*domain.Attachment, error) {
	matches, err := s.store.FindCasesByCode(ctx, caseCode)
	if err != nil {
		return nil, fmt.Errorf("failed to find case by code: %w", err)
	}
	if len(matches) == 0 {
		return nil, notFound("case", caseCode)
	}

	storagePath, size, err := s.storage.Upload(ctx, filename, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	att := &domain.Attachment{
		CaseCode:    caseCode,
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		StoragePath: storagePath,
	}
	if err := s.store.CreateAttachment(ctx, att); err != nil {
		// Orphaned blob cleanup, best effort
		if delErr := s.storage.Delete(ctx, storagePath); delErr != nil {
			s.logger.Warn("failed to clean up orphaned blob",
				zap.String("storage_path", storagePath),
				zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to record attachment: %w", err)
	}

	s.logger.Info("attachment uploaded",
		zap.String("attachment_id", att.ID),
		zap.String("case_code", caseCode),
		zap.String("filename", filename),
		zap.Int64("size", size))
	return att, nil
}

func (s *FileService) ListByCase(ctx context.Context, caseCode string) ([]domain.Attachment, error) {
	atts, err := s.store.ListAttachments(ctx, caseCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return atts, nil
}

// Download streams an attachment's bytes. The caller closes the reader.
func (s *FileService) Download(ctx context.Context, id string) (*domain.Attachment, io.ReadCloser, error) {
	att, err := s.store.GetAttachment(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	if att == nil {
		return nil, nil, notFound("attachment", id)
	}

	rc, err := s.storage.Download(ctx, att.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to download file: %w", err)
	}
	return att, rc, nil
}

func (s *FileService) Delete(ctx context.Context, id string) error {
	att, err := s.store.GetAttachment(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get attachment: %w", err)
	}
	if att == nil {
		return notFound("attachment", id)
	}

	if err := s.storage.Delete(ctx, att.StoragePath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if err := s.store.DeleteAttachment(ctx, id); err != nil {
		return fmt.Errorf("failed to delete attachment record: %w", err)
	}

	s.logger.Info("attachment deleted",
		zap.String("attachment_id", id),
		zap.String("case_code", att.CaseCode))
	return nil
}
