package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/config"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/middleware"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/models"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/services"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/downloadtoken"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/logger"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	defaultDataRows = 100
	maxDataRows     = 1000
)

var fileSortColumns = map[string]string{
	"createdAt":     "created_at",
	"size":          "size",
	"originalName":  "original_name",
	"downloadCount": "download_count",
}

type FilesHandler struct {
	DB     *gorm.DB
	Files  *services.FileService
	Queue  *services.ProcessingQueue
	Charts *services.ChartService
	Stats  *services.StatsService
	Signer *downloadtoken.Signer

	maxUploadBytes int64
	syncProcessing bool
}

func NewFilesHandler(db *gorm.DB, files *services.FileService, queue *services.ProcessingQueue, charts *services.ChartService, stats *services.StatsService, signer *downloadtoken.Signer, cfg *config.Config) *FilesHandler {
	return &FilesHandler{
		DB:             db,
		Files:          files,
		Queue:          queue,
		Charts:         charts,
		Stats:          stats,
		Signer:         signer,
		maxUploadBytes: cfg.MaxUploadBytes(),
		syncProcessing: cfg.SyncProcessing(),
	}
}

func (h *FilesHandler) Upload(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "file is required")
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		return utils.Error(c, fiber.StatusRequestEntityTooLarge, "file too large")
	}

	filename := filepath.Base(strings.TrimSpace(fileHeader.Filename))
	if filename == "" || filename == "." || filename == "/" {
		return utils.Error(c, fiber.StatusBadRequest, "invalid filename")
	}

	stream, err := fileHeader.Open()
	if err != nil {
		return utils.ServerError(c, "failed opening uploaded file", err)
	}
	defer stream.Close()
	data, err := io.ReadAll(stream)
	if err != nil {
		return utils.ServerError(c, "failed reading uploaded file", err)
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(filename))
	}

	isPublic := false
	if raw := strings.TrimSpace(c.FormValue("isPublic")); raw != "" {
		if isPublic, err = strconv.ParseBool(raw); err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "isPublic must be a boolean")
		}
	}

	ctx := c.UserContext()
	file, err := h.Files.Store(ctx, currentUser, services.UploadInput{
		Name:        filename,
		MimeType:    contentType,
		Data:        data,
		Description: strings.TrimSpace(c.FormValue("description")),
		Tags:        splitTags(c.FormValue("tags")),
		IsPublic:    isPublic,
	})
	if err != nil {
		return serviceError(c, err, "file", "storing file")
	}

	logger.InfoWithUser(currentUser.ID.String(), "file_uploaded", map[string]any{
		"file_id":    file.ID.String(),
		"file_name":  file.OriginalName,
		"file_size":  file.Size,
		"mime_type":  file.MimeType,
		"request_id": getRequestID(c),
	})
	h.Stats.Invalidate()

	if h.syncProcessing {
		if _, err := h.Queue.ProcessNow(ctx, file.ID, &currentUser.ID); err != nil {
			return serviceError(c, err, "file", "processing file")
		}
		if err := h.DB.First(file, "id = ?", file.ID).Error; err != nil {
			return utils.ServerError(c, "failed loading file", err)
		}
	} else if _, err := h.Queue.Enqueue(ctx, file.ID, &currentUser.ID); err != nil {
		return utils.ServerError(c, "failed scheduling processing", err)
	}

	return utils.Success(c, fiber.StatusCreated, file)
}

func (h *FilesHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return h.list(c, !wantsAll(c, currentUser), currentUser)
}

// list renders a filtered page of files; ownOnly restricts it to user's.
func (h *FilesHandler) list(c *fiber.Ctx, ownOnly bool, user *models.User) error {
	p := utils.ParsePagination(c)
	query := h.DB.WithContext(c.UserContext()).Model(&models.File{})
	if ownOnly {
		query = query.Where("owner_id = ?", user.ID)
	}

	if status := models.FileStatus(c.Query("status")); status != "" {
		if !models.ValidFileStatus(status) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid status filter")
		}
		query = query.Where("status = ?", status)
	}
	if mimeType := strings.TrimSpace(c.Query("mimeType")); mimeType != "" {
		query = query.Where("mime_type = ?", mimeType)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		query = query.Where("LOWER(original_name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if tag := strings.ToLower(strings.TrimSpace(c.Query("tag"))); tag != "" {
		query = whereHasTag(query, tag)
	}
	if isPublic := utils.ParseBoolQuery(c, "isPublic"); isPublic != nil {
		query = query.Where("is_public = ?", *isPublic)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ServerError(c, "failed counting files", err)
	}

	files := []models.File{}
	order := utils.ParseSort(c, fileSortColumns, "created_at")
	if err := utils.ApplyPagination(query.Order(order), p).Find(&files).Error; err != nil {
		return utils.ServerError(c, "failed listing files", err)
	}
	return utils.Paginated(c, files, p.Page, p.Limit, total)
}

// whereHasTag filters on the JSON tags column, which each dialect queries
// differently.
func whereHasTag(query *gorm.DB, tag string) *gorm.DB {
	if query.Dialector.Name() == "postgres" {
		return query.Where("files.tags @> ?::jsonb", fmt.Sprintf("[%q]", tag))
	}
	return query.Where("EXISTS (SELECT 1 FROM json_each(files.tags) WHERE json_each.value = ?)", tag)
}

func (h *FilesHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	file, err := loadFile(c, h.DB, currentUser, false)
	if err != nil {
		return serviceError(c, err, "file", "loading file")
	}
	return utils.Success(c, fiber.StatusOK, file)
}

type fileStatusResponse struct {
	ID                 string                `json:"id"`
	Status             models.FileStatus     `json:"status"`
	ProcessingProgress int                   `json:"processingProgress"`
	ErrorMessage       *string               `json:"errorMessage,omitempty"`
	ProcessedAt        *time.Time            `json:"processedAt,omitempty"`
	Job                *models.ProcessingJob `json:"job,omitempty"`
}

func (h *FilesHandler) Status(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	file, err := loadFile(c, h.DB, currentUser, false)
	if err != nil {
		return serviceError(c, err, "file", "loading file")
	}
	job, err := h.Queue.JobForFile(c.UserContext(), file.ID)
	if err != nil {
		return utils.ServerError(c, "failed loading processing job", err)
	}
	return utils.Success(c, fiber.StatusOK, fileStatusResponse{
		ID:                 file.ID.String(),
		Status:             file.Status,
		ProcessingProgress: file.ProcessingProgress,
		ErrorMessage:       file.ErrorMessage,
		ProcessedAt:        file.ProcessedAt,
		Job:                job,
	})
}

type updateFileRequest struct {
	OriginalName *string   `json:"originalName"`
	Description  *string   `json:"description"`
	Tags         *[]string `json:"tags"`
	IsPublic     *bool     `json:"isPublic"`
}

func (h *FilesHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	file, err := loadFile(c, h.DB, currentUser, true)
	if err != nil {
		return serviceError(c, err, "file", "loading file")
	}

	var req updateFileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if req.OriginalName != nil {
		name := filepath.Base(strings.TrimSpace(*req.OriginalName))
		if name == "" || name == "." || name == "/" {
			return utils.Error(c, fiber.StatusBadRequest, "originalName cannot be empty")
		}
		file.OriginalName = name
	}
	if req.Description != nil {
		file.Description = strings.TrimSpace(*req.Description)
	}
	if req.Tags != nil {
		file.Tags = services.NormalizeTags(*req.Tags)
	}
	if req.IsPublic != nil {
		file.IsPublic = *req.IsPublic
	}

	if err := h.DB.WithContext(c.UserContext()).Model(file).
		Select("original_name", "description", "tags", "is_public").
		Updates(file).Error; err != nil {
		return utils.ServerError(c, "failed updating file", err)
	}

	logger.InfoWithUser(currentUser.ID.String(), "file_updated", map[string]any{
		"file_id":    file.ID.String(),
		"request_id": getRequestID(c),
	})
	return utils.Success(c, fiber.StatusOK, file)
}

func (h *FilesHandler) Download(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	file, err := loadFile(c, h.DB, currentUser, false)
	if err != nil {
		return serviceError(c, err, "file", "loading file")
	}
	return h.sendFile(c, currentUser, file)
}

func (h *FilesHandler) sendFile(c *fiber.Ctx, user *models.User, file *models.File) error {
	if !file.IsProcessed() {
		return utils.Error(c, fiber.StatusConflict, "file has not been processed yet")
	}

	data, err := h.Files.Blobs.Get(c.UserContext(), file.StorageKey)
	if err != nil {
		return serviceError(c, err, "file", "downloading file")
	}
	if err := h.Files.IncrementDownloads(c.UserContext(), file.ID); err != nil {
		logger.Error("download_count_failed", err, map[string]any{"file_id": file.ID.String()})
	}

	details := map[string]any{
		"file_id":    file.ID.String(),
		"file_name":  file.OriginalName,
		"file_size":  len(data),
		"request_id": getRequestID(c),
	}
	if user != nil {
		logger.InfoWithUser(user.ID.String(), "file_downloaded", details)
	} else {
		logger.Info("file_downloaded_anonymous", details)
	}

	c.Set(fiber.HeaderContentType, file.MimeType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.OriginalName))
	return c.Status(fiber.StatusOK).Send(data)
}

// loadPublicFile serves routes mounted behind OptionalAuth. Anonymous callers
// only ever see public files; a private file is reported as missing to them.
func (h *FilesHandler) loadPublicFile(c *fiber.Ctx) (*models.User, *models.File, error) {
	currentUser := middleware.GetCurrentUser(c)
	file, err := loadFile(c, h.DB, currentUser, false)
	if currentUser == nil && errors.Is(err, services.ErrAccessDenied) {
		return nil, nil, services.ErrNotFound
	}
	return currentUser, file, err
}

func (h *FilesHandler) PublicGet(c *fiber.Ctx) error {
	_, file, err := h.loadPublicFile(c)
	if err != nil {
		return serviceError(c, err, "file", "loading file")
	}
	return utils.Success(c, fiber.StatusOK, file)
}

func (h *FilesHandler) PublicDownload(c *fiber.Ctx) error {
	currentUser, file, err := h.loadPublicFile(c)
	if err != nil {
		return serviceError(c, err, "file", "loading file")
	}
	return h.sendFile(c, currentUser, file)
}

func (h *FilesHandler) DownloadURL(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	file, err := loadFile(c, h.DB, currentUser, false)
	if err != nil {
		return serviceError(c, err, "file", "loading file")
	}
	if !file.IsProcessed() {
		return utils.Error(c, fiber.StatusConflict, "file has not been processed yet")
	}

	token, expiresAt, err := h.Signer.Issue(file.ID.String(), currentUser.ID.String())
	if err != nil {
		return utils.ServerError(c, "failed issuing download link", err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"url":       "/api/v1/files/" + file.ID.String() + "/link?token=" + token,
		"expiresAt": expiresAt.UTC(),
	})
}

// DownloadLink serves a signed link without an Authorization header. The
// issuing user must still be able to see the file.
func (h *FilesHandler) DownloadLink(c *fiber.Ctx) error {
	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}
	tok, err := h.Signer.Verify(c.Query("token"), fileID.String())
	if err != nil {
		if errors.Is(err, downloadtoken.ErrExpired) {
			return utils.Error(c, fiber.StatusUnauthorized, "download link expired")
		}
		return utils.Error(c, fiber.StatusUnauthorized, "invalid download link")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", tok.UserID).Error; err != nil || !user.IsActive() {
		return utils.Error(c, fiber.StatusUnauthorized, "invalid download link")
	}
	c.Locals("userID", user.ID.String())

	var file models.File
	if err := h.DB.First(&file, "id = ?", fileID).Error; err != nil {
		return serviceError(c, err, "file", "loading file")
	}
	if !services.CanViewFile(&user, &file) {
		return utils.Error(c, fiber.StatusForbidden, "access denied")
	}
	return h.sendFile(c, &user, &file)
}

type fileDataResponse struct {
	FileID    string           `json:"fileId"`
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	TotalRows int              `json:"totalRows"`
	Sheets    []string         `json:"sheets,omitempty"`
	Sheet     string           `json:"sheet,omitempty"`
	Warnings  []string         `json:"warnings,omitempty"`
}

func (h *FilesHandler) Data(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	limit := queryInt(c, "limit", defaultDataRows)
	if limit < 1 {
		limit = defaultDataRows
	}
	if limit > maxDataRows {
		limit = maxDataRows
	}

	file, table, err := h.Charts.LoadTable(c.UserContext(), currentUser, fileID, c.Query("sheet"))
	if err != nil {
		return serviceError(c, err, "file", "reading file data")
	}
	return utils.Success(c, fiber.StatusOK, fileDataResponse{
		FileID:    file.ID.String(),
		Columns:   table.Columns,
		Rows:      table.Head(limit),
		TotalRows: len(table.Rows),
		Sheets:    table.Sheets,
		Sheet:     table.Sheet,
		Warnings:  table.Warnings,
	})
}

func (h *FilesHandler) Reprocess(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	file, err := loadFile(c, h.DB, currentUser, true)
	if err != nil {
		return serviceError(c, err, "file", "loading file")
	}

	job, err := h.Queue.Retry(c.UserContext(), file.ID, &currentUser.ID, h.syncProcessing)
	if err != nil {
		return serviceError(c, err, "file", "reprocessing file")
	}

	logger.InfoWithUser(currentUser.ID.String(), "file_reprocess_requested", map[string]any{
		"file_id":    file.ID.String(),
		"job_id":     job.ID.String(),
		"request_id": getRequestID(c),
	})
	status := fiber.StatusAccepted
	if h.syncProcessing {
		status = fiber.StatusOK
	}
	return utils.Success(c, status, job)
}

func (h *FilesHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	file, err := loadFile(c, h.DB, currentUser, true)
	if err != nil {
		return serviceError(c, err, "file", "loading file")
	}

	if err := h.Files.Delete(c.UserContext(), file); err != nil {
		return utils.ServerError(c, "failed deleting file", err)
	}
	h.Stats.Invalidate()

	logger.InfoWithUser(currentUser.ID.String(), "file_deleted", map[string]any{
		"file_id":    file.ID.String(),
		"file_name":  file.OriginalName,
		"owner_id":   file.OwnerID.String(),
		"request_id": getRequestID(c),
	})
	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "file deleted"})
}
