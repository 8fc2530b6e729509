package storage

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// FileManager owns the short-lived artifacts of a session: the uploaded
// prescription image and any exported PDF. Everything under it is deleted
// when the session ends.
type FileManager struct {
	baseDir        string
	imageDir       string
	pdfDir         string
	maxUploadBytes int64
}

var mimeExtensionFallback = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/tiff": ".tiff",
	"image/bmp":  ".bmp",
	"image/webp": ".webp",
}

func NewFileManager(baseDir string, maxUploadBytes int64) (*FileManager, error) {
	fm := &FileManager{
		baseDir:        baseDir,
		imageDir:       filepath.Join(baseDir, "uploads"),
		pdfDir:         filepath.Join(baseDir, "pdf"),
		maxUploadBytes: maxUploadBytes,
	}

	for _, dir := range []string{fm.baseDir, fm.imageDir, fm.pdfDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	return fm, nil
}

// SaveUploadedImage stores the uploaded prescription image under sessionID,
// rejecting non-image content and uploads over the size limit.
func (fm *FileManager) SaveUploadedImage(sessionID string, file multipart.File, filename string) (string, error) {
	sample := make([]byte, 512)
	n, err := file.Read(sample)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read image sample: %w", err)
	}
	sample = sample[:n]

	contentType := strings.ToLower(http.DetectContentType(sample))
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("unsupported upload type %s: expected an image", contentType)
	}

	ext := normalizeExtension(filename)
	if ext == "" {
		ext = fallbackExtension(contentType)
	}
	if ext == "" {
		ext = ".img"
	}

	path := filepath.Join(fm.imageDir, sessionID+ext)
	if err := fm.writeWithLimit(path, sample, file); err != nil {
		return "", err
	}

	return path, nil
}

func (fm *FileManager) PDFPath(sessionID string) string {
	return filepath.Join(fm.pdfDir, fmt.Sprintf("%s.pdf", sessionID))
}

// PurgeSession removes every temporary artifact belonging to sessionID.
func (fm *FileManager) PurgeSession(sessionID string) {
	matches, _ := filepath.Glob(filepath.Join(fm.imageDir, sessionID+".*"))
	for _, m := range matches {
		_ = os.Remove(m)
	}
	_ = os.Remove(fm.PDFPath(sessionID))
}

func (fm *FileManager) writeWithLimit(path string, sample []byte, file multipart.File) error {
	if fm.maxUploadBytes > 0 && int64(len(sample)) > fm.maxUploadBytes {
		return fmt.Errorf("image exceeds maximum size")
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}

	cleanup := func(err error) error {
		out.Close()
		os.Remove(path)
		return err
	}

	total := int64(0)
	if len(sample) > 0 {
		if _, err := out.Write(sample); err != nil {
			return cleanup(fmt.Errorf("write image sample: %w", err))
		}
		total += int64(len(sample))
	}

	buf := make([]byte, 32*1024)
	for {
		n, err := file.Read(buf)
		if n > 0 {
			total += int64(n)
			if fm.maxUploadBytes > 0 && total > fm.maxUploadBytes {
				return cleanup(fmt.Errorf("image exceeds maximum size"))
			}
			if _, werr := out.Write(buf[:n]); werr != nil {
				return cleanup(fmt.Errorf("write image file: %w", werr))
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return cleanup(fmt.Errorf("read image content: %w", err))
		}
	}

	if err := out.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close image file: %w", err)
	}

	return nil
}

func normalizeExtension(filename string) string {
	ext := strings.ToLower(strings.TrimSpace(filepath.Ext(filename)))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func fallbackExtension(contentType string) string {
	if ext, ok := mimeExtensionFallback[contentType]; ok {
		return ext
	}
	exts, err := mime.ExtensionsByType(contentType)
	if err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
