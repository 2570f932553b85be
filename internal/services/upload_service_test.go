package services_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BradenHooton/labsy/internal/config"
	"github.com/BradenHooton/labsy/internal/models"
	"github.com/BradenHooton/labsy/internal/services"
	"github.com/BradenHooton/labsy/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUploadService(t *testing.T) (*services.UploadService, string) {
	t.Helper()
	root := t.TempDir()
	cfg := config.UploadConfig{
		MaxPictureBytes:     1 << 20,
		MaxFileBytes:        1 << 10,
		PictureMaxDimension: 512,
		MaxPicturePixels:    4_000_000,
	}
	return services.NewUploadService(storage.NewLocalDriver(root, ""), cfg, discardLogger()), root
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// oversizedPNG returns a tiny PNG whose header declares w x h pixels.
func oversizedPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := pngBytes(t, 1, 1)
	// IHDR: length(4) type(4) width(4) height(4) ... crc over type and data.
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

// ── Profile picture tests ──

func TestUploadService_UploadProfilePicture_ResizesPNG(t *testing.T) {
	svc, root := newUploadService(t)

	result, err := svc.UploadProfilePicture(context.Background(), "acct_1", bytes.NewReader(pngBytes(t, 1024, 256)))

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Key, "profiles/acct_1/"))
	assert.True(t, strings.HasSuffix(result.Key, ".png"))
	assert.Equal(t, "image/png", result.ContentType)
	assert.Equal(t, "/uploads/"+result.Key, result.URL)
	assert.Equal(t, "local", result.Bucket)

	f, err := os.Open(filepath.Join(root, filepath.FromSlash(result.Key)))
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Width)
	assert.Equal(t, 128, cfg.Height)
}

func TestUploadService_UploadProfilePicture_RejectsOtherTypes(t *testing.T) {
	svc, _ := newUploadService(t)

	_, err := svc.UploadProfilePicture(context.Background(), "acct_1", strings.NewReader("GIF89a....."))

	assert.ErrorIs(t, err, models.ErrUnsupportedMediaType)
}

func TestUploadService_UploadProfilePicture_TooLarge(t *testing.T) {
	svc, _ := newUploadService(t)

	_, err := svc.UploadProfilePicture(context.Background(), "acct_1", bytes.NewReader(make([]byte, 2<<20)))

	assert.ErrorIs(t, err, models.ErrPayloadTooLarge)
}

// ── Generic upload tests ──

func TestUploadService_Upload(t *testing.T) {
	svc, root := newUploadService(t)
	body := "%PDF-1.4 test document"

	result, err := svc.Upload(context.Background(), "acct_1", "designs/drafts", strings.NewReader(body), "Brief.PDF", int64(len(body)))

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Key, "designs/drafts/acct_1/"))
	assert.True(t, strings.HasSuffix(result.Key, ".pdf"))
	assert.Equal(t, "application/pdf", result.ContentType)

	stored, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(result.Key)))
	require.NoError(t, err)
	assert.Equal(t, body, string(stored))
}

func TestUploadService_Upload_Validation(t *testing.T) {
	svc, _ := newUploadService(t)

	tests := []struct {
		name    string
		folder  string
		body    string
		size    int64
		wantErr error
	}{
		{name: "traversal", folder: "../etc", body: "x", size: 1, wantErr: models.ErrBadRequest},
		{name: "uppercase", folder: "Designs", body: "x", size: 1, wantErr: models.ErrBadRequest},
		{name: "empty folder", folder: "", body: "x", size: 1, wantErr: models.ErrBadRequest},
		{name: "too large", folder: "designs", body: "x", size: 4 << 10, wantErr: models.ErrPayloadTooLarge},
		{name: "empty file", folder: "designs", body: "", size: 0, wantErr: models.ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(context.Background(), "acct_1", tt.folder, strings.NewReader(tt.body), "f.txt", tt.size)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUploadService_DeleteByURL(t *testing.T) {
	svc, root := newUploadService(t)
	body := "hello"

	result, err := svc.Upload(context.Background(), "acct_1", "notes", strings.NewReader(body), "a.txt", int64(len(body)))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteByURL(context.Background(), result.URL))
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(result.Key)))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, svc.DeleteByURL(context.Background(), "https://lh3.googleusercontent.com/a/pic.jpg"), "foreign URLs are ignored")
}

func TestUploadService_UploadProfilePicture_RejectsHugeDimensions(t *testing.T) {
	svc, root := newUploadService(t)
	data := oversizedPNG(t, 12000, 12000)
	require.Less(t, len(data), 1024)

	_, err := svc.UploadProfilePicture(context.Background(), "acct_1", bytes.NewReader(data))

	assert.ErrorIs(t, err, models.ErrBadRequest)
	assert.Contains(t, err.Error(), "12000x12000")

	entries, readErr := os.ReadDir(root)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "nothing is stored")
}
