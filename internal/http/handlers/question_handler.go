// Q&A HTTP handlers.
//
//   - POST /questions  (ask; stored unapproved)
//   - GET  /questions  (approved questions oldest first, paginated, ETag support)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wedding-backend/internal/domain"
	"github.com/tbourn/go-wedding-backend/internal/http/middleware"
)

// ListQuestionsResponse wraps a page of questions and pagination information.
type ListQuestionsResponse struct {
	Questions  []domain.Question `json:"questions"`
	Pagination Pagination        `json:"pagination"`
}

// AskQuestion godoc
// @ID          askQuestion
// @Summary     Ask the couple a question
// @Description Stores a question. It becomes public once approved.
// @Tags        Questions
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string                false  "Replay protection key"
// @Param       body             body    domain.QuestionInput  true   "Question payload"
//
// @Success     201  {object}  domain.Question
// @Success     200  {object}  domain.Question  "Idempotent replay"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /questions [post]
func (h *Handlers) AskQuestion(c *gin.Context) {
	var in domain.QuestionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	q, replayed, err := h.questionSvc.Ask(c.Request.Context(), in, key)
	if err != nil {
		failService(c, err, ErrCodeCreateFailed, "could not save question")
		return
	}
	submitted(c, replayed, q)
}

// ListQuestions godoc
// @ID          listQuestions
// @Summary     List approved questions (paginated)
// @Description Returns approved questions oldest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Questions
// @Produce     json
//
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListQuestionsResponse
// @Success     304  {string}  string "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /questions [get]
func (h *Handlers) ListQuestions(c *gin.Context) {
	page, pageSize := clampPagination(c)
	if notModified(c, domain.TableQuestions, h.questionSvc.Stats, page, pageSize) {
		return
	}
	items, total, err := h.questionSvc.ListPage(c.Request.Context(), true, page, pageSize)
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list questions")
		return
	}
	ok(c, http.StatusOK, ListQuestionsResponse{Questions: items, Pagination: paginate(page, pageSize, total)})
}
