// Guestbook HTTP handlers.
//
//   - POST   /guestbook       (post a message with a deletion secret)
//   - GET    /guestbook       (list newest first; secrets are never returned)
//   - DELETE /guestbook/{id}  (deletion gate: requires the original secret)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-wedding-backend/internal/domain"
	"github.com/tbourn/go-wedding-backend/internal/http/middleware"
	"github.com/tbourn/go-wedding-backend/internal/services"
)

// ListGuestbookResponse wraps a page of entries and pagination information.
type ListGuestbookResponse struct {
	Entries    []domain.GuestbookEntry `json:"entries"`
	Pagination Pagination              `json:"pagination"`
}

// DeleteGuestbookRequest carries the secret chosen when the entry was posted.
type DeleteGuestbookRequest struct {
	Secret string `json:"secret" example:"1234"`
}

// PostGuestbook godoc
// @ID          postGuestbook
// @Summary     Post a guestbook message
// @Description Stores a message. The secret (min 4 characters) is kept as a hash and is required to delete the entry.
// @Tags        Guestbook
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string                 false  "Replay protection key"
// @Param       body             body    domain.GuestbookInput  true   "Guestbook payload"
//
// @Success     201  {object}  domain.GuestbookEntry
// @Success     200  {object}  domain.GuestbookEntry  "Idempotent replay"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     409  {object}  handlers.ErrorResponse  "Idempotency conflict"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /guestbook [post]
func (h *Handlers) PostGuestbook(c *gin.Context) {
	var in domain.GuestbookInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	e, replayed, err := h.guestbookSvc.Post(c.Request.Context(), in, key)
	if err != nil {
		failService(c, err, ErrCodeCreateFailed, "could not save message")
		return
	}
	submitted(c, replayed, e)
}

// ListGuestbook godoc
// @ID          listGuestbook
// @Summary     List guestbook messages (paginated)
// @Description Returns messages newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Guestbook
// @Produce     json
//
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListGuestbookResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /guestbook [get]
func (h *Handlers) ListGuestbook(c *gin.Context) {
	page, pageSize := clampPagination(c)
	if notModified(c, domain.TableGuestbook, h.guestbookSvc.Stats, page, pageSize) {
		return
	}
	items, total, err := h.guestbookSvc.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list messages")
		return
	}
	ok(c, http.StatusOK, ListGuestbookResponse{Entries: items, Pagination: paginate(page, pageSize, total)})
}

// DeleteGuestbook godoc
// @ID          deleteGuestbook
// @Summary     Delete a guestbook message
// @Description Deletes the entry only when the supplied secret matches the one given when posting.
// @Tags        Guestbook
// @Accept      json
// @Produce     json
//
// @Param       id    path  string                           true  "Entry ID (UUID)"  format(uuid)
// @Param       body  body  handlers.DeleteGuestbookRequest  true  "Deletion secret"
//
// @Success     204  {string}  string "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid JSON body"
// @Failure     403  {object}  handlers.ErrorResponse  "Secret mismatch"
// @Failure     404  {object}  handlers.ErrorResponse  "Entry not found or id is not a UUID"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /guestbook/{id} [delete]
func (h *Handlers) DeleteGuestbook(c *gin.Context) {
	id := c.Param("id")
	// Entries are keyed by UUID, so any other id names no entry.
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "guestbook entry not found")
		return
	}
	var req DeleteGuestbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	err := h.guestbookSvc.Delete(c.Request.Context(), id, req.Secret)
	switch {
	case err == nil:
		noContent(c)
	case errors.Is(err, services.ErrGuestbookNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "guestbook entry not found")
	case errors.Is(err, services.ErrSecretMismatch):
		fail(c, http.StatusForbidden, ErrCodeSecretMismatch, "the secret does not match this entry")
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not delete message")
	}
}
