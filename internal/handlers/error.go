package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/debugmentor/debugmentor-backend/internal/apierr"
	"github.com/debugmentor/debugmentor-backend/internal/services"
)

type ErrorHandler struct {
	analysisService services.AnalysisService
	quizService     services.QuizService
}

func NewErrorHandler(analysisService services.AnalysisService, quizService services.QuizService) *ErrorHandler {
	return &ErrorHandler{analysisService: analysisService, quizService: quizService}
}

func (eh *ErrorHandler) Analyze(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req struct {
		ErrorInput      string `json:"error_input"`
		ErrorType       string `json:"error_type"`
		ExperienceLevel string `json:"experience_level"`
		Language        string `json:"preferred_language"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.ValidationFailed("body", "invalid request body"))
		return
	}

	result, err := eh.analysisService.Analyze(c.Request.Context(), userID, req.ErrorInput, req.ErrorType, req.ExperienceLevel, req.Language)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, result)
}

func (eh *ErrorHandler) TestFix(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	errorLogID, err := pathID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req struct {
		FixCode string `json:"fix_code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.ValidationFailed("body", "invalid request body"))
		return
	}

	result, err := eh.analysisService.TestFix(c.Request.Context(), userID, errorLogID, req.FixCode)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, result)
}

func (eh *ErrorHandler) History(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	result, err := eh.analysisService.History(c.Request.Context(), userID, page, limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, result)
}

func (eh *ErrorHandler) GetByID(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	id, err := pathID(c)
	if err != nil {
		RespondError(c, err)
		return
	}

	errorLog, err := eh.analysisService.GetByID(c.Request.Context(), userID, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, errorLog)
}

func (eh *ErrorHandler) GenerateQuiz(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	errorLogID, err := pathID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req struct {
		NumQuestions int `json:"num_questions"`
	}
	// Body is optional; the default question count applies when absent.
	_ = c.ShouldBindJSON(&req)

	questions, err := eh.quizService.Generate(c.Request.Context(), userID, errorLogID, req.NumQuestions)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"questions": questions})
}

func (eh *ErrorHandler) SubmitQuizAnswer(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	errorLogID, err := pathID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req struct {
		QuestionIndex  int  `json:"question_index"`
		SelectedAnswer int  `json:"selected_answer"`
		IsCorrect      bool `json:"is_correct"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.ValidationFailed("body", "invalid request body"))
		return
	}

	if err := eh.quizService.SubmitAnswer(c.Request.Context(), userID, errorLogID, req.QuestionIndex, req.SelectedAnswer, req.IsCorrect); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"recorded": true})
}

func (eh *ErrorHandler) CompleteQuiz(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	errorLogID, err := pathID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req struct {
		Correct int `json:"correct"`
		Total   int `json:"total"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.ValidationFailed("body", "invalid request body"))
		return
	}

	result, err := eh.quizService.Complete(c.Request.Context(), userID, errorLogID, req.Correct, req.Total)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, result)
}

func pathID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apierr.ValidationFailed("id", "must be a valid uuid")
	}
	return id, nil
}
