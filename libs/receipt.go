package libs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryReceiptStore uploads payment receipts to Cloudinary and returns
// their secure URL.
type CloudinaryReceiptStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryReceiptStore(cloudName, apiKey, apiSecret, folder string) (*CloudinaryReceiptStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}
	return &CloudinaryReceiptStore{cld: cld, folder: folder}, nil
}

func (s *CloudinaryReceiptStore) SaveReceipt(ctx context.Context, filename string, data []byte) (string, error) {
	publicID := fmt.Sprintf("%d_%s", time.Now().Unix(), strings.ReplaceAll(filename, " ", "_"))
	publicID = strings.TrimSuffix(publicID, filepath.Ext(publicID))

	result, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:     publicID,
		Folder:       s.folder,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to cloudinary: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload to cloudinary: %s", result.Error.Message)
	}
	return result.SecureURL, nil
}

// LocalReceiptStore writes receipts below an upload directory and returns
// the path relative to it.
type LocalReceiptStore struct {
	dir string
	now func() time.Time
}

func NewLocalReceiptStore(dir string) *LocalReceiptStore {
	return &LocalReceiptStore{dir: dir, now: time.Now}
}

func (s *LocalReceiptStore) SaveReceipt(_ context.Context, filename string, data []byte) (string, error) {
	uploadPath := filepath.Join(s.dir, "receipts")
	if err := os.MkdirAll(uploadPath, os.ModePerm); err != nil {
		return "", fmt.Errorf("create receipt dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	name := fmt.Sprintf("%d_%s", s.now().UnixNano(), strings.ReplaceAll(filepath.Base(filename), " ", "_"))
	if len(name) > 255 {
		name = fmt.Sprintf("%d%s", s.now().UnixNano(), ext)
	}

	if err := os.WriteFile(filepath.Join(uploadPath, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write receipt: %w", err)
	}
	return filepath.Join("receipts", name), nil
}
