package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-selftest/internal/middleware"
	"github.com/stemsi/exstem-selftest/internal/model"
	"github.com/stemsi/exstem-selftest/internal/response"
	"github.com/stemsi/exstem-selftest/internal/service"
	"github.com/stemsi/exstem-selftest/internal/validator"
)

// ReviewHandler handles manual grading of essay answers.
type ReviewHandler struct {
	reviewService *service.ReviewService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// ListPending godoc
// GET /api/v1/admin/reviews?page=1&per_page=20
// Lists essay answers waiting for a manual score, oldest first.
func (h *ReviewHandler) ListPending(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	reviews, pagination, err := h.reviewService.ListPending(c.Request.Context(), page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if reviews == nil {
		reviews = []model.EssayReview{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"reviews": reviews}, pagination)
}

// GradeReview godoc
// POST /api/v1/admin/reviews/:review_id/grade
// Awards a score between 0 and the question's maximum.
func (h *ReviewHandler) GradeReview(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	reviewID, err := strconv.ParseInt(c.Param("review_id"), 10, 64)
	if err != nil || reviewID <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.GradeReviewRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	review, err := h.reviewService.Grade(c.Request.Context(), reviewID, *req.Score, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReviewNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrReviewNotFound)
		case errors.Is(err, service.ErrReviewAlreadyGiven):
			response.Fail(c, http.StatusConflict, response.ErrReviewAlreadyGiven)
		case errors.Is(err, service.ErrScoreOutOfRange):
			response.Fail(c, http.StatusBadRequest, response.ErrScoreOutOfRange)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"review": review})
}
