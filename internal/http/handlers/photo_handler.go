// Photo HTTP handlers.
//
//   - POST /photos  (multipart upload: "files" x N, optional "uploaded_by")
//   - GET  /photos  (list newest first, paginated, ETag support)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wedding-backend/internal/domain"
	"github.com/tbourn/go-wedding-backend/internal/services"
)

// UploadPhotosResponse lists the photos stored by one upload.
type UploadPhotosResponse struct {
	Photos []domain.GuestPhoto `json:"photos"`
}

// ListPhotosResponse wraps a page of photos and pagination information.
type ListPhotosResponse struct {
	Photos     []domain.GuestPhoto `json:"photos"`
	Pagination Pagination          `json:"pagination"`
}

// UploadPhotos godoc
// @ID          uploadPhotos
// @Summary     Upload guest photos
// @Description Accepts up to PHOTO_MAX_BATCH images (JPEG, PNG, GIF, WebP). Each is downscaled and re-encoded as JPEG.
// @Tags        Photos
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       files        formData  file    true   "Images"
// @Param       uploaded_by  formData  string  false  "Uploader name (default Anonymous)"
//
// @Success     201  {object}  handlers.UploadPhotosResponse
// @Failure     400  {object}  handlers.ErrorResponse  "No files, too many files or unsupported image"
// @Failure     413  {object}  handlers.ErrorResponse  "Request body too large"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /photos [post]
func (h *Handlers) UploadPhotos(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "upload is too large")
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "expected multipart/form-data")
		return
	}

	headers := form.File["files"]
	files := make([]services.PhotoFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "could not read "+fh.Filename)
			return
		}
		defer f.Close()
		files = append(files, services.PhotoFile{Filename: fh.Filename, Body: f})
	}

	photos, err := h.photoSvc.Upload(c.Request.Context(), c.PostForm("uploaded_by"), files)
	switch {
	case err == nil:
		ok(c, http.StatusCreated, UploadPhotosResponse{Photos: photos})
	case errors.Is(err, services.ErrNoFiles):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no files uploaded")
	case errors.Is(err, services.ErrTooManyFiles):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "too many files in one upload")
	case errors.Is(err, services.ErrUnsupportedImage):
		fail(c, http.StatusBadRequest, ErrCodeUnsupportedImage, err.Error())
	default:
		failService(c, err, ErrCodeCreateFailed, "could not store photos")
	}
}

// ListPhotos godoc
// @ID          listPhotos
// @Summary     List guest photos (paginated)
// @Description Returns photos newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Photos
// @Produce     json
//
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListPhotosResponse
// @Success     304  {string}  string "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /photos [get]
func (h *Handlers) ListPhotos(c *gin.Context) {
	page, pageSize := clampPagination(c)
	if notModified(c, domain.TablePhotos, h.photoSvc.Stats, page, pageSize) {
		return
	}
	items, total, err := h.photoSvc.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list photos")
		return
	}
	ok(c, http.StatusOK, ListPhotosResponse{Photos: items, Pagination: paginate(page, pageSize, total)})
}
