package middleware

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"immobile-portal/internal/metrics"
	"immobile-portal/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	uploadedFilesKey = "uploadedFiles"

	// UploadField is the multipart field carrying image files
	UploadField = "images"

	// room for part headers and plain form fields on top of the file limit
	formOverhead    = 1 << 20
	multipartMemory = 32 << 20
)

// UploadedFile describes one multipart file after the storage upload.
// StorageURL is nil when the upload failed or the file was rejected.
type UploadedFile struct {
	Filename    string
	Size        int64
	ContentType string
	Key         string
	StorageURL  *string
}

// Upload sends every file of the multipart field "images" to object storage before the handler runs.
// Objects uploaded for a request that ends in an error are deleted again.
// Files larger than maxBytes get no URL; a body beyond maxBytes plus form overhead is not parsed at all.
func Upload(store storage.Storage, logger *zap.Logger, maxBytes int64, keyPrefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+formOverhead)

		var headers []*multipart.FileHeader
		if err := c.Request.ParseMultipartForm(min(maxBytes, multipartMemory)); err != nil {
			logger.Debug("no multipart form", zap.Error(err))
		} else if c.Request.MultipartForm != nil {
			headers = c.Request.MultipartForm.File[UploadField]
		}

		ctx := c.Request.Context()
		uploaded := make([]UploadedFile, 0, len(headers))
		for _, fh := range headers {
			uploaded = append(uploaded, uploadOne(ctx, store, logger, keyPrefix, maxBytes, fh))
		}
		c.Set(uploadedFilesKey, uploaded)

		c.Next()

		if len(c.Errors) == 0 && c.Writer.Status() < http.StatusMultipleChoices {
			return
		}
		discardUploads(context.WithoutCancel(ctx), store, logger, uploaded)
	}
}

func uploadOne(ctx context.Context, store storage.Storage, logger *zap.Logger, keyPrefix string, maxBytes int64, fh *multipart.FileHeader) UploadedFile {
	file := UploadedFile{Filename: fh.Filename, Size: fh.Size}

	if fh.Size > maxBytes {
		logger.Warn("rejected oversized upload",
			zap.String("filename", fh.Filename),
			zap.Int64("size", fh.Size),
			zap.Int64("limit", maxBytes),
		)
		metrics.ImageUploads.WithLabelValues("failed").Inc()
		return file
	}

	f, err := fh.Open()
	if err != nil {
		logger.Warn("failed to open uploaded file", zap.String("filename", fh.Filename), zap.Error(err))
		metrics.ImageUploads.WithLabelValues("failed").Inc()
		return file
	}
	defer f.Close()

	// sniff the content type from the first 512 bytes
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		logger.Warn("failed to read uploaded file", zap.String("filename", fh.Filename), zap.Error(err))
		metrics.ImageUploads.WithLabelValues("failed").Inc()
		return file
	}
	file.ContentType = http.DetectContentType(head[:n])
	if !strings.HasPrefix(file.ContentType, "image/") {
		logger.Warn("rejected non-image upload",
			zap.String("filename", fh.Filename),
			zap.String("content_type", file.ContentType),
		)
		metrics.ImageUploads.WithLabelValues("failed").Inc()
		return file
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		logger.Warn("failed to rewind uploaded file", zap.String("filename", fh.Filename), zap.Error(err))
		metrics.ImageUploads.WithLabelValues("failed").Inc()
		return file
	}

	key := path.Join(keyPrefix, uuid.NewString()+strings.ToLower(filepath.Ext(fh.Filename)))
	url, err := store.Upload(ctx, key, f, fh.Size, file.ContentType)
	if err != nil {
		logger.Warn("failed to upload image", zap.String("filename", fh.Filename), zap.Error(err))
		metrics.ImageUploads.WithLabelValues("failed").Inc()
		return file
	}

	metrics.ImageUploads.WithLabelValues("ok").Inc()
	file.Key = key
	file.StorageURL = &url
	return file
}

func discardUploads(ctx context.Context, store storage.Storage, logger *zap.Logger, files []UploadedFile) {
	for _, f := range files {
		if f.StorageURL == nil {
			continue
		}
		if err := store.Delete(ctx, f.Key); err != nil {
			logger.Error("failed to discard upload", zap.String("key", f.Key), zap.Error(err))
			continue
		}
		metrics.ImageUploads.WithLabelValues("discarded").Inc()
	}
}

// UploadedFiles returns the files processed by Upload
func UploadedFiles(c *gin.Context) []UploadedFile {
	v, ok := c.Get(uploadedFilesKey)
	if !ok {
		return nil
	}
	files, _ := v.([]UploadedFile)
	return files
}

// SetUploadedFiles attaches already uploaded files to the context
func SetUploadedFiles(c *gin.Context, files []UploadedFile) {
	c.Set(uploadedFilesKey, files)
}

// StorageURLs returns the URLs of the files that reached storage
func StorageURLs(files []UploadedFile) []string {
	urls := make([]string, 0, len(files))
	for _, f := range files {
		if f.StorageURL != nil {
			urls = append(urls, *f.StorageURL)
		}
	}
	return urls
}
