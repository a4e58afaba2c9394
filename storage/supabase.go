package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	supa "github.com/supabase-community/storage-go"
)

// SupabaseStorage lưu object vào một bucket của Supabase Storage.
type SupabaseStorage struct {
	client  *supa.Client
	baseURL string
	bucket  string
}

func NewSupabaseStorage(supabaseURL, supabaseKey, bucket string) (*SupabaseStorage, error) {
	if supabaseURL == "" || supabaseKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL hoặc SUPABASE_KEY chưa cấu hình")
	}
	if bucket == "" {
		bucket = "uploads"
	}
	base := strings.TrimRight(supabaseURL, "/")
	return &SupabaseStorage{
		client:  supa.NewClient(base+"/storage/v1", supabaseKey, nil),
		baseURL: base,
		bucket:  bucket,
	}, nil
}

func (s *SupabaseStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	options := supa.FileOptions{
		ContentType: &contentType,
	}
	if _, err := s.client.UploadFile(s.bucket, key, &buf, options); err != nil {
		return "", fmt.Errorf("supabase upload: %w", err)
	}
	// Public URL: <bucket>/<key>
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, key), nil
}

func (s *SupabaseStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, err := s.client.DownloadFile(s.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("supabase download: %w", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *SupabaseStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.client.RemoveFile(s.bucket, []string{key}); err != nil {
		return fmt.Errorf("supabase remove: %w", err)
	}
	return nil
}
