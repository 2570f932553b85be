package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"path"
	"regexp"
	"strings"

	// Decoders for the accepted picture formats.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/BradenHooton/labsy/internal/config"
	"github.com/BradenHooton/labsy/internal/models"
	"github.com/BradenHooton/labsy/internal/storage"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

var (
	folderPattern    = regexp.MustCompile(`^[a-z0-9_-]+(/[a-z0-9_-]+)*$`)
	extensionPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)
)

var pictureTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// UploadResult describes a stored object.
type UploadResult struct {
	URL         string
	Key         string
	Bucket      string
	ContentType string
	Size        int64
}

// UploadService stores profile pictures and generic files in object storage.
type UploadService struct {
	storage storage.Driver
	cfg     config.UploadConfig
	logger  *slog.Logger
}

// NewUploadService creates a new UploadService.
func NewUploadService(driver storage.Driver, cfg config.UploadConfig, logger *slog.Logger) *UploadService {
	return &UploadService{
		storage: driver,
		cfg:     cfg,
		logger:  logger,
	}
}

// KeyFromURL reports the object key for URLs produced by this service.
func (s *UploadService) KeyFromURL(url string) (string, bool) {
	return s.storage.KeyFromURL(url)
}

// UploadProfilePicture normalises a JPEG, PNG or WebP picture to fit the configured
// square and stores it under profiles/<accountID>/. PNG stays PNG, the rest becomes JPEG.
func (s *UploadService) UploadProfilePicture(ctx context.Context, accountID string, file io.Reader) (*UploadResult, error) {
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxPictureBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read picture", models.ErrBadRequest)
	}
	if int64(len(data)) > s.cfg.MaxPictureBytes {
		return nil, fmt.Errorf("%w: picture exceeds %d bytes", models.ErrPayloadTooLarge, s.cfg.MaxPictureBytes)
	}

	contentType := http.DetectContentType(data)
	if !pictureTypes[contentType] {
		return nil, fmt.Errorf("%w: only JPEG, PNG and WebP pictures are allowed", models.ErrUnsupportedMediaType)
	}

	// The header is enough to refuse pictures whose pixel buffer would not fit in memory.
	header, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: unrecognised image format", models.ErrUnsupportedMediaType)
		}
		return nil, fmt.Errorf("%w: picture could not be decoded", models.ErrBadRequest)
	}
	if maxPixels := s.cfg.MaxPicturePixels; maxPixels > 0 && int64(header.Width)*int64(header.Height) > maxPixels {
		return nil, fmt.Errorf("%w: picture dimensions %dx%d exceed %d pixels",
			models.ErrBadRequest, header.Width, header.Height, maxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: unrecognised image format", models.ErrUnsupportedMediaType)
		}
		return nil, fmt.Errorf("%w: picture could not be decoded", models.ErrBadRequest)
	}

	dim := s.cfg.PictureMaxDimension
	resized := imaging.Fit(img, dim, dim, imaging.Lanczos)

	format, ext, outType := imaging.JPEG, ".jpg", "image/jpeg"
	if contentType == "image/png" {
		format, ext, outType = imaging.PNG, ".png", "image/png"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		s.logger.Error("failed to encode picture", slog.String("account_id", accountID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	key := fmt.Sprintf("profiles/%s/%s%s", accountID, uuid.New().String(), ext)
	size := int64(buf.Len())

	return s.put(ctx, key, &buf, outType, size)
}

// Upload stores a generic file at <folder>/<accountID>/<uuid><ext>. The content type is
// sniffed from the first bytes of the file.
func (s *UploadService) Upload(ctx context.Context, accountID, folder string, file io.ReadSeeker, filename string, size int64) (*UploadResult, error) {
	folder = strings.Trim(folder, "/")
	if !folderPattern.MatchString(folder) {
		return nil, fmt.Errorf("%w: folder must be lowercase letters, digits, '-' or '_' separated by '/'", models.ErrBadRequest)
	}
	if size > s.cfg.MaxFileBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", models.ErrPayloadTooLarge, s.cfg.MaxFileBytes)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: failed to read file", models.ErrBadRequest)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: file is empty", models.ErrBadRequest)
	}
	contentType := http.DetectContentType(head[:n])
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		s.logger.Error("failed to rewind upload", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	ext := strings.ToLower(path.Ext(filename))
	if !extensionPattern.MatchString(ext) {
		ext = ""
	}

	key := fmt.Sprintf("%s/%s/%s%s", folder, accountID, uuid.New().String(), ext)

	return s.put(ctx, key, io.LimitReader(file, s.cfg.MaxFileBytes), contentType, size)
}

func (s *UploadService) put(ctx context.Context, key string, body io.Reader, contentType string, size int64) (*UploadResult, error) {
	url, err := s.storage.Put(ctx, key, body, contentType)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Info("upload cancelled", slog.String("key", key))
			return nil, err
		}
		s.logger.Error("failed to store object", slog.String("key", key), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("object stored",
		slog.String("key", key),
		slog.String("content_type", contentType),
		slog.Int64("size", size),
	)

	return &UploadResult{
		URL:         url,
		Key:         key,
		Bucket:      s.storage.Bucket(),
		ContentType: contentType,
		Size:        size,
	}, nil
}

// DeleteByURL removes an object previously returned by this service. URLs that do not
// belong to the configured storage are ignored.
func (s *UploadService) DeleteByURL(ctx context.Context, url string) error {
	key, ok := s.storage.KeyFromURL(url)
	if !ok {
		return nil
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
