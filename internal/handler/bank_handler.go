package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/exstem-selftest/internal/middleware"
	"github.com/stemsi/exstem-selftest/internal/model"
	"github.com/stemsi/exstem-selftest/internal/response"
	"github.com/stemsi/exstem-selftest/internal/service"
	"github.com/stemsi/exstem-selftest/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// BankHandler handles question bank administration.
type BankHandler struct {
	bankService   *service.BankService
	exportService *service.ExportService
}

// NewBankHandler creates a new BankHandler.
func NewBankHandler(bankService *service.BankService, exportService *service.ExportService) *BankHandler {
	return &BankHandler{bankService: bankService, exportService: exportService}
}

// ListBanks godoc
// GET /api/v1/admin/banks?page=1&per_page=10
// Lists question banks, newest first.
func (h *BankHandler) ListBanks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	banks, pagination, err := h.bankService.List(c.Request.Context(), page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if banks == nil {
		banks = []model.QuestionBank{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"banks": banks}, pagination)
}

// CreateBank godoc
// POST /api/v1/admin/banks
// Creates an empty question bank.
func (h *BankHandler) CreateBank(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateQuestionBankRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	authorID := claims.UserID
	b := &model.QuestionBank{
		AuthorID:    &authorID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.bankService.Create(c.Request.Context(), b); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"bank": b})
}

// GetBank godoc
// GET /api/v1/admin/banks/:bank_id
// Returns a bank with its questions, answer keys included.
func (h *BankHandler) GetBank(c *gin.Context) {
	bankID, ok := parseBankID(c)
	if !ok {
		return
	}

	b, err := h.bankService.GetByID(c.Request.Context(), bankID)
	if err != nil {
		failBank(c, err)
		return
	}
	questions, err := h.bankService.Questions(c.Request.Context(), bankID)
	if err != nil {
		failBank(c, err)
		return
	}
	if questions == nil {
		questions = []model.Question{}
	}

	response.Success(c, http.StatusOK, gin.H{"bank": b, "questions": questions})
}

// ReplaceQuestions godoc
// PUT /api/v1/admin/banks/:bank_id/questions
// Replaces the whole question sequence of a bank and refreshes its cache.
// Questions the engine cannot grade are stored but reported as issues.
func (h *BankHandler) ReplaceQuestions(c *gin.Context) {
	bankID, ok := parseBankID(c)
	if !ok {
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions := make([]model.Question, len(req.Questions))
	for i := range req.Questions {
		questions[i] = req.Questions[i].ToQuestion(i + 1)
	}

	issues, err := h.bankService.ReplaceQuestions(c.Request.Context(), bankID, questions)
	if err != nil {
		failBank(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"question_count": len(questions),
		"issues":         issues,
	})
}

// RefreshCache godoc
// POST /api/v1/admin/banks/:bank_id/refresh-cache
// Rebuilds the Redis payload of a bank from PostgreSQL.
func (h *BankHandler) RefreshCache(c *gin.Context) {
	bankID, ok := parseBankID(c)
	if !ok {
		return
	}

	if err := h.bankService.RefreshCache(c.Request.Context(), bankID); err != nil {
		failBank(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Cache refreshed"})
}

// ExportResults godoc
// GET /api/v1/admin/banks/:bank_id/results.xlsx
// Downloads every attempt at the bank as a spreadsheet.
func (h *BankHandler) ExportResults(c *gin.Context) {
	bankID, ok := parseBankID(c)
	if !ok {
		return
	}

	data, name, err := h.exportService.BankResults(c.Request.Context(), bankID)
	if err != nil {
		failBank(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func parseBankID(c *gin.Context) (uuid.UUID, bool) {
	bankID, err := uuid.Parse(c.Param("bank_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return bankID, true
}

func failBank(c *gin.Context, err error) {
	if errors.Is(err, service.ErrBankNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrBankNotFound)
		return
	}
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}
