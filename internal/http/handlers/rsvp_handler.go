// RSVP HTTP handlers.
//
//   - POST /rsvps  (submit, Idempotency-Key aware)
//   - GET  /rsvps  (list newest first, paginated, ETag support)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wedding-backend/internal/domain"
	"github.com/tbourn/go-wedding-backend/internal/http/middleware"
)

// ListRSVPsResponse wraps a page of responses and pagination information.
type ListRSVPsResponse struct {
	RSVPs      []domain.RSVP `json:"rsvps"`
	Pagination Pagination    `json:"pagination"`
}

// SubmitRSVP godoc
// @ID          submitRSVP
// @Summary     Submit an RSVP
// @Description Stores an attendance response. Declined responses are stored with zero counts.
// @Description A repeated Idempotency-Key returns the stored response with 200.
// @Tags        RSVPs
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string             false  "Replay protection key"
// @Param       body             body    domain.RSVPInput  true   "RSVP payload"
//
// @Success     201  {object}  domain.RSVP
// @Success     200  {object}  domain.RSVP  "Idempotent replay"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     409  {object}  handlers.ErrorResponse  "Idempotency conflict"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /rsvps [post]
func (h *Handlers) SubmitRSVP(c *gin.Context) {
	in := domain.DefaultRSVPInput()
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	r, replayed, err := h.rsvpSvc.Submit(c.Request.Context(), in, key)
	if err != nil {
		failService(c, err, ErrCodeCreateFailed, "could not save RSVP")
		return
	}
	submitted(c, replayed, r)
}

// ListRSVPs godoc
// @ID          listRSVPs
// @Summary     List RSVPs (paginated)
// @Description Returns responses newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        RSVPs
// @Produce     json
//
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListRSVPsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /rsvps [get]
func (h *Handlers) ListRSVPs(c *gin.Context) {
	page, pageSize := clampPagination(c)
	if notModified(c, domain.TableRSVPs, h.rsvpSvc.Stats, page, pageSize) {
		return
	}
	items, total, err := h.rsvpSvc.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list RSVPs")
		return
	}
	ok(c, http.StatusOK, ListRSVPsResponse{RSVPs: items, Pagination: paginate(page, pageSize, total)})
}
