package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/docreview-backend/internal/requestdata"
	"github.com/yungbote/docreview-backend/internal/services"
)

type ReviewHandler struct {
	reviewService services.ReviewService
	exportService services.ExportService
}

func NewReviewHandler(reviewService services.ReviewService, exportService services.ExportService) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		exportService: exportService,
	}
}

func currentUserID(c *gin.Context) (uuid.UUID, error) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("no authenticated user")
	}
	return rd.UserID, nil
}

func pathUUID(c *gin.Context, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", param)
	}
	return id, nil
}

func (rh *ReviewHandler) Create(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	var input services.CreateReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid request body"))
		return
	}
	review, err := rh.reviewService.CreateReview(c.Request.Context(), userID, input)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "create_failed", err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (rh *ReviewHandler) List(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	status := c.Query("status")
	var folderID *uuid.UUID
	if raw := c.Query("folder_id"); raw != "" {
		id, pErr := uuid.Parse(raw)
		if pErr != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid folder_id"))
			return
		}
		folderID = &id
	}

	reviews, total, err := rh.reviewService.ListReviews(c.Request.Context(), userID, status, folderID, limit, offset)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{"reviews": reviews, "total": total})
}

func (rh *ReviewHandler) Get(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	reviewID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	includeResults := c.DefaultQuery("include_results", "true") != "false"
	detail, err := rh.reviewService.GetReview(c.Request.Context(), reviewID, userID, includeResults)
	if err != nil {
		RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	RespondOK(c, detail)
}

func (rh *ReviewHandler) Delete(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	reviewID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := rh.reviewService.DeleteReview(c.Request.Context(), reviewID, userID); err != nil {
		RespondError(c, http.StatusNotFound, "delete_failed", err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (rh *ReviewHandler) Analyze(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	reviewID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	// request body is optional
	var req struct {
		ForceReprocess bool `json:"force_reprocess"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid request body"))
			return
		}
	}
	if err := rh.reviewService.StartAnalysis(c.Request.Context(), reviewID, userID, req.ForceReprocess); err != nil {
		RespondError(c, http.StatusConflict, "analyze_failed", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}

func (rh *ReviewHandler) Status(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	reviewID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	progress, err := rh.reviewService.GetProgress(c.Request.Context(), reviewID, userID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	RespondOK(c, progress)
}

func (rh *ReviewHandler) AddFiles(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	reviewID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	var req struct {
		FileIDs []uuid.UUID `json:"file_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid request body"))
		return
	}
	added, err := rh.reviewService.AddFiles(c.Request.Context(), reviewID, userID, req.FileIDs)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "add_files_failed", err)
		return
	}
	RespondOK(c, gin.H{"added": added})
}

func (rh *ReviewHandler) AddColumn(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	reviewID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	var input services.CreateColumnInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid request body"))
		return
	}
	column, err := rh.reviewService.AddColumn(c.Request.Context(), reviewID, userID, input)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "add_column_failed", err)
		return
	}
	c.JSON(http.StatusCreated, column)
}

func (rh *ReviewHandler) UpdateColumn(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	reviewID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	columnID, err := pathUUID(c, "columnId")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	var input services.UpdateColumnInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid request body"))
		return
	}
	column, err := rh.reviewService.UpdateColumn(c.Request.Context(), reviewID, columnID, userID, input)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "update_column_failed", err)
		return
	}
	RespondOK(c, column)
}

func (rh *ReviewHandler) DeleteColumn(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	reviewID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	columnID, err := pathUUID(c, "columnId")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := rh.reviewService.DeleteColumn(c.Request.Context(), reviewID, columnID, userID); err != nil {
		RespondError(c, http.StatusNotFound, "delete_column_failed", err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (rh *ReviewHandler) UpdateResult(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	reviewID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	resultID, err := pathUUID(c, "resultId")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	var input services.UpdateResultInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid request body"))
		return
	}
	result, err := rh.reviewService.UpdateResult(c.Request.Context(), reviewID, resultID, userID, input)
	if err != nil {
		RespondError(c, http.StatusNotFound, "update_result_failed", err)
		return
	}
	RespondOK(c, result)
}

// Export renders the review matrix as csv (default) or json, with optional
// confidence and source columns.
func (rh *ReviewHandler) Export(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	reviewID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	opts := services.ExportOptions{
		IncludeConfidence: c.DefaultQuery("include_confidence", "true") != "false",
		IncludeSource:     c.DefaultQuery("include_metadata", "true") != "false",
	}
	switch c.DefaultQuery("format", "csv") {
	case "csv":
		data, filename, eErr := rh.exportService.ExportCSV(c.Request.Context(), reviewID, userID, opts)
		if eErr != nil {
			RespondError(c, http.StatusNotFound, "export_failed", eErr)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, "text/csv", data)
	case "json":
		payload, eErr := rh.exportService.ExportJSON(c.Request.Context(), reviewID, userID, opts)
		if eErr != nil {
			RespondError(c, http.StatusNotFound, "export_failed", eErr)
			return
		}
		RespondOK(c, payload)
	default:
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("unsupported export format"))
	}
}

func (rh *ReviewHandler) Stats(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	reviewID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	stats, err := rh.reviewService.GetStats(c.Request.Context(), reviewID, userID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "stats_failed", err)
		return
	}
	RespondOK(c, stats)
}

func (rh *ReviewHandler) Summary(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	summary, err := rh.reviewService.GetSummary(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "summary_failed", err)
		return
	}
	RespondOK(c, summary)
}
