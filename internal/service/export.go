package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"surveybot/internal/events"
	"surveybot/internal/logger"
	"surveybot/internal/metrics"
	"surveybot/internal/model"
)

// RowAppender writes rows to the response spreadsheet
type RowAppender interface {
	AppendRows(ctx context.Context, rows []model.Row) error
}

// SubmissionArchive keeps a copy of every finished questionnaire
type SubmissionArchive interface {
	Save(ctx context.Context, s *model.Submission) error
}

// Exporter sends finished questionnaires to the spreadsheet, once, under a timeout
type Exporter struct {
	appender  RowAppender
	archive   SubmissionArchive // Optional
	timeout   time.Duration
	recorder  metrics.Recorder
	publisher events.Publisher
	logger    *logger.Logger
}

// NewExporter creates an exporter. archive may be nil.
func NewExporter(
	appender RowAppender,
	archive SubmissionArchive,
	timeout time.Duration,
	recorder metrics.Recorder,
	publisher events.Publisher,
	log *logger.Logger,
) *Exporter {
	return &Exporter{
		appender:  appender,
		archive:   archive,
		timeout:   timeout,
		recorder:  recorder,
		publisher: publisher,
		logger:    log,
	}
}

// Export appends rows for respondent. Archive and event failures are only logged.
func (x *Exporter) Export(ctx context.Context, respondent model.RespondentID, rows []model.Row) error {
	log := x.logger.WithRespondent(int64(respondent))

	exportCtx, cancel := context.WithTimeout(ctx, x.timeout)
	start := time.Now()
	err := x.appender.AppendRows(exportCtx, rows)
	cancel()
	x.recorder.ObserveExport(err == nil, time.Since(start))

	submission := &model.Submission{
		ID:           uuid.New().String(),
		RespondentID: respondent,
		Rows:         rows,
		Status:       model.ExportStatusExported,
		CompletedAt:  time.Now().UTC(),
	}
	if err != nil {
		submission.Status = model.ExportStatusFailed
		submission.Error = err.Error()
		x.publishFailure(ctx, respondent, err)
	}

	if x.archive != nil {
		if archErr := x.archive.Save(context.WithoutCancel(ctx), submission); archErr != nil {
			log.WithError(archErr).Warn("Failed to archive submission", zap.String("submission_id", submission.ID))
		}
	}

	if err != nil {
		return fmt.Errorf("append %d rows: %w", len(rows), err)
	}
	log.Debug("Exported submission", zap.String("submission_id", submission.ID), zap.Int("rows", len(rows)))
	return nil
}

func (x *Exporter) publishFailure(ctx context.Context, respondent model.RespondentID, cause error) {
	ev := events.NewEvent(events.SubjectSurveyExportFailed, map[string]any{
		"respondentId": int64(respondent),
		"error":        cause.Error(),
	})
	if err := x.publisher.Publish(ctx, events.SubjectSurveyExportFailed, ev); err != nil {
		x.logger.WithError(err).Warn("Failed to publish event", zap.String("subject", events.SubjectSurveyExportFailed))
	}
}
