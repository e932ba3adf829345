package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tieubaoca/librarian-be/types"
)

// FileService stores uploaded documents on disk and feeds them to the
// ingestion pipeline. HTTP uploads and CLI ingestion share the same storage
// layout and pipeline.
type FileService struct {
	uploadDir string
	ingest    *IngestService
}

func NewFileService(uploadDir string, ingest *IngestService) *FileService {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		panic(err)
	}
	return &FileService{
		uploadDir: uploadDir,
		ingest:    ingest,
	}
}

// UploadFile saves the uploaded PDF under a timestamped name and ingests it,
// streaming per-page status to the channel if one is provided.
func (s *FileService) UploadFile(ctx context.Context, req types.UploadRequest, file *multipart.FileHeader, progress chan<- types.ProcessingDocumentStatus) (*types.IngestReport, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".pdf" {
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	baseName := strings.TrimSuffix(file.Filename, ext)
	if req.Title != "" {
		baseName = strings.TrimSuffix(req.Title, ext)
	}
	destPath, err := s.storeFile(src, baseName, ext)
	if err != nil {
		return nil, err
	}
	return s.runIngest(ctx, destPath, req, progress)
}

// IngestPath copies a document from the local filesystem into the upload
// directory and ingests it. Used by the CLI.
func (s *FileService) IngestPath(ctx context.Context, sourcePath string, req types.UploadRequest, progress chan<- types.ProcessingDocumentStatus) (*types.IngestReport, error) {
	ext := strings.ToLower(filepath.Ext(sourcePath))
	if ext != ".pdf" {
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	baseName := strings.TrimSuffix(filepath.Base(sourcePath), ext)
	destPath, err := s.storeFile(src, baseName, ext)
	if err != nil {
		return nil, err
	}
	return s.runIngest(ctx, destPath, req, progress)
}

// storeFile writes the source into the upload directory under a sanitized,
// timestamped name so the corpus directory is self-contained.
func (s *FileService) storeFile(src io.Reader, baseName, ext string) (string, error) {
	timestamp := time.Now().Unix()
	filename := fmt.Sprintf("%s_%d%s", sanitizeFileName(baseName), timestamp, ext)
	destPath := filepath.Join(s.uploadDir, filename)

	dst, err := os.Create(destPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return destPath, nil
}

func (s *FileService) runIngest(ctx context.Context, destPath string, req types.UploadRequest, progress chan<- types.ProcessingDocumentStatus) (*types.IngestReport, error) {
	report, err := s.ingest.Ingest(ctx, destPath, req, progress)
	if progress != nil {
		status := types.ProcessingDocumentStatus{
			Status:   "completed",
			Message:  "Done processing PDF",
			Progress: 1,
		}
		if err != nil {
			status = types.ProcessingDocumentStatus{
				Status:  "failed",
				Message: err.Error(),
			}
		}
		select {
		case progress <- status:
		case <-ctx.Done():
		}
	}
	return report, err
}

func sanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			return r
		}
		return '_'
	}, name)
}
