package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/docreview-backend/internal/services"
)

type FileHandler struct {
	fileService services.FileService
}

func NewFileHandler(fileService services.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

func (fh *FileHandler) Register(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	var input services.RegisterFileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid request body"))
		return
	}
	file, err := fh.fileService.RegisterFile(c.Request.Context(), userID, input)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "register_failed", err)
		return
	}
	c.JSON(http.StatusCreated, file)
}

// IngestText is the callback the ingestion pipeline hits once a file's text
// has been extracted.
func (fh *FileHandler) IngestText(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	fileID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	var req struct {
		Content string `json:"content"`
		Failed  bool   `json:"failed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid request body"))
		return
	}
	if req.Failed {
		if err := fh.fileService.MarkFailed(c.Request.Context(), fileID, userID); err != nil {
			RespondError(c, http.StatusNotFound, "ingest_failed", err)
			return
		}
		RespondOK(c, gin.H{"success": true})
		return
	}
	if req.Content == "" {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("content required"))
		return
	}
	if err := fh.fileService.IngestText(c.Request.Context(), fileID, userID, req.Content); err != nil {
		RespondError(c, http.StatusNotFound, "ingest_failed", err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (fh *FileHandler) Get(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	fileID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	file, err := fh.fileService.GetFile(c.Request.Context(), fileID, userID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	RespondOK(c, file)
}

func (fh *FileHandler) List(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	var folderID *uuid.UUID
	if raw := c.Query("folder_id"); raw != "" {
		id, pErr := uuid.Parse(raw)
		if pErr != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid folder_id"))
			return
		}
		folderID = &id
	}
	files, err := fh.fileService.ListFiles(c.Request.Context(), userID, folderID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{"files": files})
}

func (fh *FileHandler) Delete(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	fileID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := fh.fileService.DeleteFile(c.Request.Context(), fileID, userID); err != nil {
		RespondError(c, http.StatusNotFound, "delete_failed", err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}
