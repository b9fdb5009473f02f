package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/config"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/models"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/storage"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/logger"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const staleJobAfter = 10 * time.Minute

var ErrJobNotRetryable = errors.New("file is not in a failed state")

type ProcessingTask struct {
	FileID        uuid.UUID
	RequestedByID *uuid.UUID
}

// ProcessingQueue moves uploaded files from "processing" to "processed" or
// "failed". Every attempt is persisted as a ProcessingJob so work survives
// restarts; the channel only carries wake-ups for the worker.
type ProcessingQueue struct {
	DB            *gorm.DB
	Blobs         storage.BlobStore
	Transcoder    *Transcoder
	Notifications *NotificationService

	config config.ProcessingConfig
	queue  chan ProcessingTask

	mu      sync.Mutex
	closed  bool
	timers  map[*time.Timer]struct{}
	started bool
	done    chan struct{}
}

func NewProcessingQueue(db *gorm.DB, blobs storage.BlobStore, transcoder *Transcoder, notifications *NotificationService, cfg config.ProcessingConfig) *ProcessingQueue {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.QueueBufferSize < 1 {
		cfg.QueueBufferSize = 1
	}
	return &ProcessingQueue{
		DB:            db,
		Blobs:         blobs,
		Transcoder:    transcoder,
		Notifications: notifications,
		config:        cfg,
		queue:         make(chan ProcessingTask, cfg.QueueBufferSize),
		timers:        make(map[*time.Timer]struct{}),
		done:          make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (q *ProcessingQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	go q.run()
}

func (q *ProcessingQueue) run() {
	defer close(q.done)
	for task := range q.queue {
		processingQueueDepth.Set(float64(len(q.queue)))
		// Failures are persisted on the job by processPending.
		_, _ = q.processPending(context.Background(), task)
	}
}

// Shutdown stops accepting work, cancels pending retry timers and waits for
// the in-flight job to finish or ctx to expire. Jobs left pending are picked
// up again by RecoverStaleJobs on the next start.
func (q *ProcessingQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	for t := range q.timers {
		t.Stop()
	}
	q.timers = nil
	started := q.started
	close(q.queue)
	q.mu.Unlock()

	if !started {
		return nil
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ProcessingQueue) push(task ProcessingTask) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	select {
	case q.queue <- task:
		processingQueueDepth.Set(float64(len(q.queue)))
		return true
	default:
		return false
	}
}

func (q *ProcessingQueue) pushAfter(task ProcessingTask, delay time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		q.mu.Lock()
		if q.timers != nil {
			delete(q.timers, t)
		}
		q.mu.Unlock()
		if !q.push(task) {
			logger.Warn("processing_queue_full_on_retry", map[string]any{"file_id": task.FileID.String()})
		}
	})
	q.timers[t] = struct{}{}
}

// Enqueue creates a pending job for the file unless one is already pending
// or running, and wakes the worker.
func (q *ProcessingQueue) Enqueue(ctx context.Context, fileID uuid.UUID, requestedByID *uuid.UUID) (*models.ProcessingJob, error) {
	job, created, err := q.ensureJob(ctx, fileID, requestedByID, q.config.MaxAttempts)
	if err != nil {
		return nil, err
	}
	if !created {
		return job, nil
	}

	if q.push(ProcessingTask{FileID: fileID, RequestedByID: requestedByID}) {
		logger.Info("processing_job_enqueued", map[string]any{
			"job_id":  job.ID.String(),
			"file_id": fileID.String(),
		})
	} else {
		logger.Warn("processing_queue_full", map[string]any{
			"job_id":  job.ID.String(),
			"file_id": fileID.String(),
		})
	}
	return job, nil
}

func (q *ProcessingQueue) ensureJob(ctx context.Context, fileID uuid.UUID, requestedByID *uuid.UUID, maxAttempts int) (*models.ProcessingJob, bool, error) {
	var existing models.ProcessingJob
	err := q.DB.WithContext(ctx).
		Where("file_id = ? AND status IN ?", fileID, []models.ProcessingJobStatus{
			models.ProcessingJobStatusPending, models.ProcessingJobStatusProcessing,
		}).
		Order("created_at DESC").
		First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to check existing job: %w", err)
	}

	job := models.ProcessingJob{
		FileID:        fileID,
		RequestedByID: requestedByID,
		Status:        models.ProcessingJobStatusPending,
		MaxAttempts:   maxAttempts,
	}
	if err := q.DB.WithContext(ctx).Create(&job).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create processing job: %w", err)
	}
	return &job, true, nil
}

// ProcessNow runs a single attempt inline and returns its error. Used when
// processing is configured as synchronous, so upload and reprocess requests
// see content errors directly.
func (q *ProcessingQueue) ProcessNow(ctx context.Context, fileID uuid.UUID, requestedByID *uuid.UUID) (*models.ProcessingJob, error) {
	if _, _, err := q.ensureJob(ctx, fileID, requestedByID, 1); err != nil {
		return nil, err
	}
	return q.processPending(ctx, ProcessingTask{FileID: fileID, RequestedByID: requestedByID})
}

// Retry resets a failed file and schedules it again.
func (q *ProcessingQueue) Retry(ctx context.Context, fileID uuid.UUID, requestedByID *uuid.UUID, inline bool) (*models.ProcessingJob, error) {
	var file models.File
	if err := q.DB.WithContext(ctx).First(&file, "id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if file.Status != models.FileStatusFailed {
		return nil, ErrJobNotRetryable
	}

	if err := q.DB.WithContext(ctx).Model(&file).Updates(map[string]any{
		"status":              models.FileStatusProcessing,
		"processing_progress": 0,
		"error_message":       nil,
	}).Error; err != nil {
		return nil, err
	}

	if inline {
		return q.ProcessNow(ctx, fileID, requestedByID)
	}
	return q.Enqueue(ctx, fileID, requestedByID)
}

func (q *ProcessingQueue) JobForFile(ctx context.Context, fileID uuid.UUID) (*models.ProcessingJob, error) {
	var job models.ProcessingJob
	err := q.DB.WithContext(ctx).Where("file_id = ?", fileID).Order("created_at DESC").First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// processPending claims the newest pending job of the file and runs it.
func (q *ProcessingQueue) processPending(ctx context.Context, task ProcessingTask) (*models.ProcessingJob, error) {
	var job models.ProcessingJob
	err := q.DB.WithContext(ctx).
		Where("file_id = ? AND status = ?", task.FileID, models.ProcessingJobStatusPending).
		Order("created_at DESC").
		First(&job).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("processing_job_load_failed", err, map[string]any{"file_id": task.FileID.String()})
		}
		return nil, err
	}

	now := time.Now().UTC()
	job.Status = models.ProcessingJobStatusProcessing
	job.StartedAt = &now
	job.NextRetryAt = nil
	if err := q.DB.WithContext(ctx).Save(&job).Error; err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	started := time.Now()
	procErr := q.process(ctx, &job)
	processingDuration.Observe(time.Since(started).Seconds())

	if procErr != nil {
		q.markJobFailed(ctx, &job, procErr)
		return &job, procErr
	}

	completedAt := time.Now().UTC()
	job.Status = models.ProcessingJobStatusCompleted
	job.CompletedAt = &completedAt
	job.LastError = nil
	if err := q.DB.WithContext(ctx).Save(&job).Error; err != nil {
		logger.Error("processing_job_complete_failed", err, map[string]any{"job_id": job.ID.String()})
	}
	processingJobsTotal.WithLabelValues("completed").Inc()
	logger.Info("processing_job_completed", map[string]any{
		"job_id":  job.ID.String(),
		"file_id": job.FileID.String(),
	})
	return &job, nil
}

func (q *ProcessingQueue) process(ctx context.Context, job *models.ProcessingJob) error {
	var file models.File
	if err := q.DB.WithContext(ctx).First(&file, "id = ?", job.FileID).Error; err != nil {
		return fmt.Errorf("%w: file not found", ErrInvalidContent)
	}
	q.setProgress(ctx, file.ID, 10)

	raw, err := q.Blobs.Get(ctx, file.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return fmt.Errorf("%w: stored payload is missing", ErrInvalidContent)
		}
		return fmt.Errorf("failed to load payload: %w", err)
	}
	q.setProgress(ctx, file.ID, 30)

	result, err := q.Transcoder.Transcode(ctx, file.MimeType, file.OriginalName, raw)
	if err != nil {
		return err
	}
	q.setProgress(ctx, file.ID, 70)

	if result.ContentType != file.MimeType || len(result.Data) != len(raw) {
		if err := q.Blobs.Put(ctx, file.StorageKey, result.Data, result.ContentType); err != nil {
			return fmt.Errorf("failed to store transcoded payload: %w", err)
		}
	}

	if result.ContentType != file.MimeType {
		file.OriginalName = RenameForContentType(file.OriginalName, result.ContentType)
	}

	processedAt := time.Now().UTC()
	if err := q.DB.WithContext(ctx).Model(&file).Updates(map[string]any{
		"original_name":       file.OriginalName,
		"status":              models.FileStatusProcessed,
		"processing_progress": 100,
		"mime_type":           result.ContentType,
		"size":                int64(len(result.Data)),
		"checksum":            utils.Checksum(result.Data),
		"metadata":            result.MetadataJSON(),
		"row_count":           result.RowCount,
		"error_message":       nil,
		"processed_at":        processedAt,
	}).Error; err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}

	q.Notifications.notifySafe(ctx, &file.OwnerID, NotificationInput{
		Title:    "File processed",
		Message:  fmt.Sprintf("%s is ready for analysis.", file.OriginalName),
		Type:     models.NotificationTypeSuccess,
		Priority: models.NotificationPriorityLow,
		Link:     fileLink(file.ID),
		Metadata: map[string]any{"fileId": file.ID.String()},
	})
	return nil
}

func (q *ProcessingQueue) setProgress(ctx context.Context, fileID uuid.UUID, progress int) {
	if err := q.DB.WithContext(ctx).Model(&models.File{}).Where("id = ?", fileID).
		Update("processing_progress", progress).Error; err != nil {
		logger.Warn("processing_progress_update_failed", map[string]any{
			"file_id": fileID.String(),
			"error":   err.Error(),
		})
	}
}

// markJobFailed records the error. Content errors and exhausted attempts
// fail the file for good; anything else is retried after a delay.
func (q *ProcessingQueue) markJobFailed(ctx context.Context, job *models.ProcessingJob, jobErr error) {
	job.Attempts++
	errStr := jobErr.Error()
	job.LastError = &errStr

	permanent := errors.Is(jobErr, ErrInvalidContent) || errors.Is(jobErr, ErrUnsupportedFileType)
	if permanent || job.Attempts >= job.MaxAttempts {
		job.Status = models.ProcessingJobStatusFailed
		q.failFile(ctx, job.FileID, errStr)
		processingJobsTotal.WithLabelValues("failed").Inc()
		logger.Error("processing_job_final_failure", jobErr, map[string]any{
			"job_id":   job.ID.String(),
			"file_id":  job.FileID.String(),
			"attempts": job.Attempts,
		})
	} else {
		job.Status = models.ProcessingJobStatusPending
		delay := q.retryDelay(job.Attempts)
		nextRetry := time.Now().UTC().Add(delay)
		job.NextRetryAt = &nextRetry
		processingJobsTotal.WithLabelValues("retried").Inc()
		logger.Warn("processing_job_retry_scheduled", map[string]any{
			"job_id":       job.ID.String(),
			"file_id":      job.FileID.String(),
			"attempts":     job.Attempts,
			"max_attempts": job.MaxAttempts,
			"next_retry":   nextRetry.Format(time.RFC3339),
		})
		q.pushAfter(ProcessingTask{FileID: job.FileID, RequestedByID: job.RequestedByID}, delay)
	}

	if err := q.DB.WithContext(ctx).Save(job).Error; err != nil {
		logger.Error("processing_job_failed_update_failed", err, map[string]any{"job_id": job.ID.String()})
	}
}

func (q *ProcessingQueue) retryDelay(attempts int) time.Duration {
	if len(q.config.RetryDelays) == 0 {
		return 5 * time.Second
	}
	idx := attempts - 1
	if idx >= len(q.config.RetryDelays) {
		idx = len(q.config.RetryDelays) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return q.config.RetryDelays[idx]
}

func (q *ProcessingQueue) failFile(ctx context.Context, fileID uuid.UUID, message string) {
	var file models.File
	if err := q.DB.WithContext(ctx).First(&file, "id = ?", fileID).Error; err != nil {
		return
	}
	if err := q.DB.WithContext(ctx).Model(&file).Updates(map[string]any{
		"status":        models.FileStatusFailed,
		"error_message": message,
	}).Error; err != nil {
		logger.Error("processing_file_fail_update_failed", err, map[string]any{"file_id": fileID.String()})
		return
	}

	q.Notifications.notifySafe(ctx, &file.OwnerID, NotificationInput{
		Title:    "File processing failed",
		Message:  fmt.Sprintf("%s could not be processed: %s", file.OriginalName, message),
		Type:     models.NotificationTypeError,
		Priority: models.NotificationPriorityHigh,
		Link:     fileLink(file.ID),
		Metadata: map[string]any{"fileId": file.ID.String()},
	})
}

// RecoverStaleJobs requeues jobs interrupted by a restart and pending jobs
// that never reached the worker.
func (q *ProcessingQueue) RecoverStaleJobs(ctx context.Context) {
	var stale []models.ProcessingJob
	if err := q.DB.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.ProcessingJobStatusProcessing, time.Now().UTC().Add(-staleJobAfter)).
		Find(&stale).Error; err != nil {
		logger.Error("processing_stale_lookup_failed", err, nil)
		return
	}
	for i := range stale {
		job := &stale[i]
		job.Status = models.ProcessingJobStatusPending
		job.NextRetryAt = nil
		if err := q.DB.WithContext(ctx).Save(job).Error; err != nil {
			logger.Error("processing_job_stale_recovery_failed", err, map[string]any{"job_id": job.ID.String()})
			continue
		}
		logger.Info("processing_job_stale_recovered", map[string]any{
			"job_id":  job.ID.String(),
			"file_id": job.FileID.String(),
		})
	}

	var pending []models.ProcessingJob
	if err := q.DB.WithContext(ctx).Where("status = ?", models.ProcessingJobStatusPending).
		Order("created_at ASC").Find(&pending).Error; err != nil {
		logger.Error("processing_pending_lookup_failed", err, nil)
		return
	}
	for _, job := range pending {
		task := ProcessingTask{FileID: job.FileID, RequestedByID: job.RequestedByID}
		if job.NextRetryAt != nil && job.NextRetryAt.After(time.Now()) {
			q.pushAfter(task, time.Until(*job.NextRetryAt))
			continue
		}
		if !q.push(task) {
			logger.Warn("processing_queue_full_on_recovery", map[string]any{"job_id": job.ID.String()})
		}
	}
}

func fileLink(id uuid.UUID) *string {
	link := "/files/" + id.String()
	return &link
}
