package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/BradenHooton/labsy/internal/auth"
	"github.com/BradenHooton/labsy/internal/services"
	pkghttp "github.com/BradenHooton/labsy/pkg/http"
)

// UploadServiceInterface defines the generic file upload contract.
type UploadServiceInterface interface {
	Upload(ctx context.Context, accountID, folder string, file io.ReadSeeker, filename string, size int64) (*services.UploadResult, error)
}

// UploadHandler handles file uploads.
type UploadHandler struct {
	service  UploadServiceInterface
	maxBytes int64
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(service UploadServiceInterface, maxBytes int64) *UploadHandler {
	return &UploadHandler{service: service, maxBytes: maxBytes}
}

// UploadResponse describes a stored file.
type UploadResponse struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	Bucket   string `json:"bucket"`
}

// UploadFile stores the multipart "file" part under the "folder" form value
//
// @Summary Upload file
// @Accept multipart/form-data
// @Param file formData file true "File"
// @Param folder formData string true "Target folder, e.g. designs/drafts"
// @Produce json
// @Success 201 {object} UploadResponse
// @Failure 400 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Router /uploads/file [post]
func (h *UploadHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	account := auth.GetAccountFromContext(r)
	if account == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	file, header, ok := formFile(w, r, h.maxBytes)
	if !ok {
		return
	}
	defer file.Close()

	folder := r.FormValue("folder")
	if folder == "" {
		pkghttp.WriteValidationError(w, []pkghttp.FieldError{{
			Field:   "folder",
			Rule:    "required",
			Message: "folder is required",
		}})
		return
	}

	result, err := h.service.Upload(r.Context(), account.ID, folder, file, header.Filename, header.Size)
	if err != nil {
		respondError(w, r, err, "Invalid upload")
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, &UploadResponse{
		URL:      result.URL,
		FileName: result.Key,
		Bucket:   result.Bucket,
	})
}
