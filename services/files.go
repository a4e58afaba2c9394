package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
	"github.com/vnkhanh/code-review-backend/storage"
	"github.com/vnkhanh/code-review-backend/utils"
)

const DefaultMaxUploadBytes int64 = 10 << 20

// UploadInput là một file nhận từ multipart form.
type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type FileService struct {
	store    repository.Store
	objects  storage.ObjectStorage
	hints    TextGenerator
	logger   *slog.Logger
	maxBytes int64
}

func NewFileService(store repository.Store, objects storage.ObjectStorage, hints TextGenerator, logger *slog.Logger, maxBytes int64) *FileService {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &FileService{store: store, objects: objects, hints: hints, logger: logger, maxBytes: maxBytes}
}

// readLimited đọc toàn bộ body, quá max thì trả TooLarge.
func readLimited(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, BadRequest("failed to read uploaded file")
	}
	if int64(len(data)) > max {
		return nil, TooLarge(fmt.Sprintf("file exceeds the %d MB limit", max>>20))
	}
	return data, nil
}

// objectKey: projects/<projectID>/<uuid>-<slug>.<ext>
func objectKey(prefix string, owner uuid.UUID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := slug.Make(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "file"
	}
	return fmt.Sprintf("%s/%s/%s-%s%s", prefix, owner, uuid.NewString(), base, ext)
}

func (s *FileService) Upload(ctx context.Context, actor Actor, projectID uuid.UUID, in UploadInput) (*models.File, error) {
	if s.objects == nil {
		return nil, Unavailable("file storage is not configured")
	}
	if strings.TrimSpace(in.Filename) == "" {
		return nil, BadRequest("file is required")
	}
	if in.Size > s.maxBytes {
		return nil, TooLarge(fmt.Sprintf("file exceeds the %d MB limit", s.maxBytes>>20))
	}
	p, err := loadProject(ctx, s.store, actor, projectID, accessEdit)
	if err != nil {
		return nil, err
	}

	data, err := readLimited(in.Body, s.maxBytes)
	if err != nil {
		return nil, err
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	f := &models.File{
		ProjectID:  p.ID,
		Filename:   filepath.Base(in.Filename),
		MimeType:   contentType,
		Size:       int64(len(data)),
		Language:   utils.DetectLanguage(in.Filename),
		UploadedBy: actor.UserID,
	}
	switch {
	case utils.IsPDF(in.Filename, contentType):
		text, err := ExtractTextFromPDF(data)
		if err != nil {
			s.logger.Warn("pdf text extraction failed", slog.String("filename", f.Filename), slog.String("error", err.Error()))
		}
		f.Content = text
	case utils.IsTextFile(in.Filename, contentType) && utf8.Valid(data):
		f.Content = string(data)
	}

	f.StorageKey = objectKey("projects", p.ID, in.Filename)
	url, err := s.objects.Put(ctx, f.StorageKey, bytes.NewReader(data), f.Size, contentType)
	if err != nil {
		return nil, Internal("failed to store file", err)
	}
	f.URL = url

	if err := s.store.CreateFile(ctx, f); err != nil {
		if delErr := s.objects.Delete(ctx, f.StorageKey); delErr != nil {
			s.logger.Warn("cleanup stored object failed", slog.String("key", f.StorageKey), slog.String("error", delErr.Error()))
		}
		return nil, Internal("failed to save file", err)
	}
	return f, nil
}

// loadFile nạp file và kiểm tra quyền trên project chứa nó.
func loadFile(ctx context.Context, store repository.Store, actor Actor, id uuid.UUID, level accessLevel) (*models.File, *models.Project, error) {
	f, err := store.GetFile(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, NotFound("file not found")
		}
		return nil, nil, Internal("failed to load file", err)
	}
	p, err := loadProject(ctx, store, actor, f.ProjectID, level)
	if err != nil {
		return nil, nil, err
	}
	return f, p, nil
}

func (s *FileService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.File, error) {
	f, _, err := loadFile(ctx, s.store, actor, id, accessView)
	return f, err
}

func (s *FileService) ListByProject(ctx context.Context, actor Actor, projectID uuid.UUID) ([]models.File, error) {
	if _, err := loadProject(ctx, s.store, actor, projectID, accessView); err != nil {
		return nil, err
	}
	files, err := s.store.ListFilesByProject(ctx, projectID)
	if err != nil {
		return nil, Internal("failed to list files", err)
	}
	return files, nil
}

// Download trả metadata và nội dung file; caller phải Close reader.
func (s *FileService) Download(ctx context.Context, actor Actor, id uuid.UUID) (*models.File, io.ReadCloser, error) {
	f, _, err := loadFile(ctx, s.store, actor, id, accessView)
	if err != nil {
		return nil, nil, err
	}
	if s.objects == nil {
		return nil, nil, Unavailable("file storage is not configured")
	}
	rc, err := s.objects.Get(ctx, f.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, NotFound("file content not found")
		}
		return nil, nil, Internal("failed to read file", err)
	}
	return f, rc, nil
}

// Delete xoá file, các comment trên file, rồi xoá object khỏi storage.
func (s *FileService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	var key string
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		f, _, err := loadFile(ctx, tx, actor, id, accessEdit)
		if err != nil {
			return err
		}
		key = f.StorageKey
		if err := tx.DeleteCommentsByFile(ctx, f.ID); err != nil {
			return Internal("failed to delete comments", err)
		}
		if err := tx.DeleteFile(ctx, f.ID); err != nil {
			return Internal("failed to delete file", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.objects != nil && key != "" {
		if err := s.objects.Delete(ctx, key); err != nil {
			s.logger.Warn("delete stored object failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	return nil
}

const reviewPrompt = `You are a senior engineer mentoring a student.
Review the following %s file named %q. List concrete issues (bugs, readability,
naming, missing error handling) as short bullet points with line numbers where possible.
Do not rewrite the whole file.

%s`

// maxHintChars giới hạn độ dài code gửi sang model
const maxHintChars = 30000

// truncateUTF8 cắt s còn tối đa limit byte mà không tách đôi một rune.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

func (s *FileService) ReviewHints(ctx context.Context, actor Actor, id uuid.UUID) (string, error) {
	if s.hints == nil {
		return "", Unavailable("AI review is not configured")
	}
	f, _, err := loadFile(ctx, s.store, actor, id, accessView)
	if err != nil {
		return "", err
	}
	content := f.Content
	if strings.TrimSpace(content) == "" {
		return "", BadRequest("file has no text content to review")
	}
	content = truncateUTF8(content, maxHintChars)
	out, err := s.hints.GenerateText(ctx, fmt.Sprintf(reviewPrompt, f.Language, f.Filename, content))
	if err != nil {
		return "", Unavailable("AI review failed, please try again later")
	}
	return out, nil
}
