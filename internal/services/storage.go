package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// StoredFile describes an upload written to the upload directory.
type StoredFile struct {
	OriginalName string
	StoredName   string
	Path         string
	Format       Format
	Size         int64
}

type StorageService interface {
	SaveFile(file *multipart.FileHeader, fileType string) (*StoredFile, error)
	GetFilePath(filename string) string
	DeleteFile(path string) error
	MoveToAccepted(path, filename string) (string, error)
	EnsureUploadDir() error
}

type storageService struct {
	uploadPath   string
	acceptedPath string
}

func NewStorageService(uploadPath, acceptedPath string) StorageService {
	return &storageService{
		uploadPath:   uploadPath,
		acceptedPath: acceptedPath,
	}
}

func (s *storageService) EnsureUploadDir() error {
	for _, dir := range []string{s.uploadPath, s.acceptedPath} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// SaveFile validates the upload's type and copies it under a unique name
// prefixed with fileType.
func (s *storageService) SaveFile(file *multipart.FileHeader, fileType string) (*StoredFile, error) {
	format, err := DetectFormat(file.Header.Get("Content-Type"), file.Filename)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == "" {
		ext = "." + string(format)
	}

	// Generate the unique filename
	uniqueFilename := fmt.Sprintf("%s_%s%s", fileType, uuid.New().String(), ext)
	filePath := filepath.Join(s.uploadPath, uniqueFilename)

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	n, err := io.Copy(dst, src)
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	return &StoredFile{
		OriginalName: filepath.Base(file.Filename),
		StoredName:   uniqueFilename,
		Path:         filePath,
		Format:       format,
		Size:         n,
	}, nil
}

func (s *storageService) GetFilePath(filename string) string {
	return filepath.Join(s.uploadPath, filepath.Base(filename))
}

func (s *storageService) DeleteFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// MoveToAccepted moves a stored upload into the accepted directory under
// its original name and returns the new path.
func (s *storageService) MoveToAccepted(path, filename string) (string, error) {
	dest := filepath.Join(s.acceptedPath, filepath.Base(filename))

	if err := os.Rename(path, dest); err == nil {
		return dest, nil
	}

	// Rename fails across devices; fall back to copy and remove.
	if err := copyFile(path, dest); err != nil {
		return "", fmt.Errorf("failed to move file: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("failed to remove source after copy: %w", err)
	}
	return dest, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
