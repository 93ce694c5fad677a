// internal/evidence/evidence.go
package evidence

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"agritour-certification/internal/common/config"
	"agritour-certification/internal/common/errors"
	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/common/storage"
	"agritour-certification/internal/models"
)

const (
	DefaultMaxBytes       int64 = 5 << 20
	DefaultMaxPerQuestion       = 5

	keyPrefix = "evidence"
)

// Allowed lists the content types accepted as evidence. Types are sniffed from
// the file body, never taken from the client.
var Allowed = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Upload is one file received from the applicant.
type Upload struct {
	FileName string
	Content  io.Reader
}

type Service struct {
	store          storage.ObjectStore
	maxBytes       int64
	maxPerQuestion int
	logger         logger.Logger
	now            func() time.Time
}

func NewService(store storage.ObjectStore, cfg config.AssessmentConfig, log logger.Logger) *Service {
	s := &Service{
		store:          store,
		maxBytes:       cfg.MaxAttachmentBytes,
		maxPerQuestion: cfg.MaxAttachments,
		logger:         log.WithFields(map[string]interface{}{"component": "evidence"}),
		now:            time.Now,
	}
	if s.maxBytes <= 0 {
		s.maxBytes = DefaultMaxBytes
	}
	if s.maxPerQuestion <= 0 {
		s.maxPerQuestion = DefaultMaxPerQuestion
	}
	return s
}

// ObjectKey is where an attachment body lives in the evidence bucket.
func ObjectKey(applicantID, questionID, attachmentID string) string {
	return path.Join(keyPrefix, applicantID, questionID, attachmentID)
}

type checked struct {
	name        string
	contentType string
	body        []byte
}

// Accept validates every upload before storing any of them, so a rejected batch
// leaves both the answer and the bucket untouched. existing is the number of
// attachments the question already holds.
func (s *Service) Accept(ctx context.Context, applicantID, questionID string, existing int, uploads ...Upload) ([]models.Attachment, error) {
	if len(uploads) == 0 {
		return nil, errors.NewAssessmentValidationError("no files uploaded")
	}
	if existing+len(uploads) > s.maxPerQuestion {
		return nil, errors.NewAttachmentRejectedError(uploads[0].FileName,
			fmt.Sprintf("at most %d attachments per question", s.maxPerQuestion))
	}

	files := make([]checked, 0, len(uploads))
	for _, up := range uploads {
		c, err := s.check(up)
		if err != nil {
			s.logger.Warn("Attachment rejected", map[string]interface{}{
				"questionId": questionID,
				"fileName":   up.FileName,
				"error":      err.Error(),
			})
			return nil, err
		}
		files = append(files, c)
	}

	stored := make([]models.Attachment, 0, len(files))
	for _, f := range files {
		id := uuid.NewString()
		att := models.Attachment{
			ID:          id,
			FileName:    f.name,
			ContentType: f.contentType,
			Size:        int64(len(f.body)),
			ObjectKey:   ObjectKey(applicantID, questionID, id),
			UploadedAt:  s.now().UTC(),
		}
		if err := s.store.Put(ctx, att.ObjectKey, bytes.NewReader(f.body), att.Size, att.ContentType); err != nil {
			s.rollback(ctx, stored)
			return nil, errors.NewStorageFailedError("put", err)
		}
		stored = append(stored, att)
	}

	s.logger.Info("Attachments stored", map[string]interface{}{"questionId": questionID, "count": len(stored)})
	return stored, nil
}

func (s *Service) check(up Upload) (checked, error) {
	if up.Content == nil {
		return checked{}, errors.NewAttachmentRejectedError(up.FileName, "empty file")
	}
	body, err := io.ReadAll(io.LimitReader(up.Content, s.maxBytes+1))
	if err != nil {
		return checked{}, errors.NewAttachmentRejectedError(up.FileName, "unreadable: "+err.Error())
	}
	if len(body) == 0 {
		return checked{}, errors.NewAttachmentRejectedError(up.FileName, "empty file")
	}
	if int64(len(body)) > s.maxBytes {
		return checked{}, errors.NewAttachmentRejectedError(up.FileName,
			fmt.Sprintf("larger than %d bytes", s.maxBytes))
	}

	mtype := mimetype.Detect(body)
	if !mimetype.EqualsAny(mtype.String(), Allowed...) {
		return checked{}, errors.NewAttachmentRejectedError(up.FileName, "unsupported type "+mtype.String())
	}

	name := path.Base(up.FileName)
	if name == "." || name == "/" {
		name = "attachment" + mtype.Extension()
	}
	return checked{name: name, contentType: mtype.String(), body: body}, nil
}

func (s *Service) rollback(ctx context.Context, stored []models.Attachment) {
	for _, att := range stored {
		if err := s.store.Remove(ctx, att.ObjectKey); err != nil {
			s.logger.Warn("Failed to remove orphaned attachment", map[string]interface{}{
				"objectKey": att.ObjectKey,
				"error":     err.Error(),
			})
		}
	}
}

// Discard removes the stored body of an attachment that was taken off an answer.
func (s *Service) Discard(ctx context.Context, att models.Attachment) error {
	if att.ObjectKey == "" {
		return nil
	}
	if err := s.store.Remove(ctx, att.ObjectKey); err != nil {
		return errors.NewStorageFailedError("remove", err)
	}
	return nil
}

// DownloadURL returns a time-limited link for reviewers.
func (s *Service) DownloadURL(ctx context.Context, att models.Attachment, expiry time.Duration) (string, error) {
	u, err := s.store.PresignedURL(ctx, att.ObjectKey, expiry)
	if err != nil {
		return "", errors.NewStorageFailedError("presign", err)
	}
	return u, nil
}
