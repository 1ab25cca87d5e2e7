package folderHandler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"records-service/internal/service/folderService"
	"records-service/pkg/logger"
	"records-service/pkg/middleware"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type FolderHandler struct {
	folders *folderService.FolderService
	log     *logger.Logger
}

func New(folders *folderService.FolderService, log *logger.Logger) *FolderHandler {
	return &FolderHandler{folders: folders, log: log}
}

// List returns every folder of the current user with merged file listings.
// An empty account gets an empty array, not an error.
func (h *FolderHandler) List(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	folders, err := h.folders.ListFolders(c.Request.Context(), uid)
	if err != nil {
		h.log.Error("failed to list folders", zap.Error(err), zap.Uint32("userID", uid))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list folders"})
		return
	}

	c.JSON(http.StatusOK, folders)
}

// Create handles the multipart create-folder form: name, date and zero or
// more files.
func (h *FolderHandler) Create(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	req := folderService.CreateFolderRequest{
		Name: c.PostForm("name"),
		Date: c.PostForm("date"),
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	uploads, closers, err := openUploads(form.File["files"])
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer closeAll(closers)

	created, err := h.folders.CreateFolder(c.Request.Context(), uid, req, uploads)
	if err != nil {
		if created != nil {
			// Record exists but the batch did not finish; the detail
			// screen retries the upload (no rollback).
			h.log.Warn("folder created with incomplete upload",
				zap.Error(err), zap.String("folderID", created.ID.String()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":  "folder created but file upload failed",
				"folder": created,
			})
			return
		}
		h.respondError(c, err, "failed to create folder")
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *FolderHandler) Get(c *gin.Context) {
	uid, folderID, ok := h.folderRequest(c)
	if !ok {
		return
	}

	f, err := h.folders.GetFolder(c.Request.Context(), uid, folderID)
	if err != nil {
		h.respondError(c, err, "failed to load folder")
		return
	}

	c.JSON(http.StatusOK, f)
}

func (h *FolderHandler) Rename(c *gin.Context) {
	uid, folderID, ok := h.folderRequest(c)
	if !ok {
		return
	}

	var req folderService.RenameFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	f, err := h.folders.RenameFolder(c.Request.Context(), uid, folderID, req)
	if err != nil {
		h.respondError(c, err, "failed to rename folder")
		return
	}

	c.JSON(http.StatusOK, f)
}

func (h *FolderHandler) Delete(c *gin.Context) {
	uid, folderID, ok := h.folderRequest(c)
	if !ok {
		return
	}

	if err := h.folders.DeleteFolder(c.Request.Context(), uid, folderID); err != nil {
		h.respondError(c, err, "failed to delete folder")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "folder deleted"})
}

func (h *FolderHandler) UploadFiles(c *gin.Context) {
	uid, folderID, ok := h.folderRequest(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	uploads, closers, err := openUploads(form.File["files"])
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer closeAll(closers)

	f, err := h.folders.UploadFiles(c.Request.Context(), uid, folderID, uploads)
	if err != nil {
		h.respondError(c, err, "failed to upload files")
		return
	}

	c.JSON(http.StatusOK, f)
}

func (h *FolderHandler) DeleteFile(c *gin.Context) {
	uid, folderID, ok := h.folderRequest(c)
	if !ok {
		return
	}

	f, err := h.folders.DeleteFile(c.Request.Context(), uid, folderID, c.Param("fileName"))
	if err != nil {
		h.respondError(c, err, "failed to delete file")
		return
	}

	c.JSON(http.StatusOK, f)
}

// folderRequest resolves the authenticated user and the folder id path
// parameter, writing the error response itself when either is missing.
func (h *FolderHandler) folderRequest(c *gin.Context) (uint32, uuid.UUID, bool) {
	uid, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return 0, uuid.Nil, false
	}

	folderID, err := uuid.Parse(c.Param("folderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid folder id"})
		return 0, uuid.Nil, false
	}
	return uid, folderID, true
}

func (h *FolderHandler) respondError(c *gin.Context, err error, fallback string) {
	var vErrs validation.Errors
	switch {
	case errors.As(err, &vErrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, folderService.ErrInvalidFileName), errors.Is(err, folderService.ErrNoFiles):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, folderService.ErrFolderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "folder not found"})
	case errors.Is(err, folderService.ErrFolderBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "another operation on this folder is in progress"})
	default:
		h.log.Error(fallback, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func openUploads(headers []*multipart.FileHeader) ([]folderService.Upload, []multipart.File, error) {
	uploads := make([]folderService.Upload, 0, len(headers))
	closers := make([]multipart.File, 0, len(headers))
	for _, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			closeAll(closers)
			return nil, nil, errors.New("failed to open uploaded file " + fh.Filename)
		}
		closers = append(closers, src)
		uploads = append(uploads, folderService.Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Reader:      src,
		})
	}
	return uploads, closers, nil
}

func closeAll(files []multipart.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
