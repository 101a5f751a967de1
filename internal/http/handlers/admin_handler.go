// Admin HTTP handlers, mounted under /admin behind basic auth.
//
//   - GET   /admin/stats
//   - GET   /admin/rsvps
//   - GET   /admin/guestbook
//   - GET   /admin/questions       (all questions, newest first)
//   - PATCH /admin/questions/{id}  (approve / answer)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wedding-backend/internal/domain"
	"github.com/tbourn/go-wedding-backend/internal/services"
)

// AdminStats godoc
// @ID          adminStats
// @Summary     RSVP summary
// @Description Totals for the dashboard. Adult and child totals count attending guests only.
// @Tags        Admin
// @Produce     json
// @Security    BasicAuth
// @Success     200  {object}  domain.RSVPStats
// @Failure     401  {string}  string "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /admin/stats [get]
func (h *Handlers) AdminStats(c *gin.Context) {
	st, err := h.rsvpSvc.Summary(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not compute stats")
		return
	}
	ok(c, http.StatusOK, st)
}

// AdminListQuestions godoc
// @ID          adminListQuestions
// @Summary     List all questions (paginated)
// @Tags        Admin
// @Produce     json
// @Security    BasicAuth
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListQuestionsResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /admin/questions [get]
func (h *Handlers) AdminListQuestions(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.questionSvc.ListPage(c.Request.Context(), false, page, pageSize)
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list questions")
		return
	}
	ok(c, http.StatusOK, ListQuestionsResponse{Questions: items, Pagination: paginate(page, pageSize, total)})
}

// ModerateQuestion godoc
// @ID          moderateQuestion
// @Summary     Approve or answer a question
// @Description Applies a partial update. An empty answer clears it. Approved questions are pushed to the change feed.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    BasicAuth
// @Param       id    path  string               true  "Question ID"
// @Param       body  body  domain.QuestionPatch  true  "Patch"
// @Success     200  {object}  domain.Question
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Question not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /admin/questions/{id} [patch]
func (h *Handlers) ModerateQuestion(c *gin.Context) {
	var p domain.QuestionPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	q, err := h.questionSvc.Moderate(c.Request.Context(), c.Param("id"), p)
	switch {
	case err == nil:
		ok(c, http.StatusOK, q)
	case errors.Is(err, services.ErrEmptyPatch):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "nothing to update")
	case errors.Is(err, services.ErrQuestionNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "question not found")
	default:
		failService(c, err, ErrCodeInternal, "could not update question")
	}
}
