// crushnote/moderation/pipeline.go
package moderation

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Ali-GR/CrushNoteApp/database"
	"github.com/Ali-GR/CrushNoteApp/models"
)

// TextClassifier is what the pipeline needs from the AI stage. The
// concrete implementation is Classifier; tests substitute their own.
type TextClassifier interface {
	Classify(ctx context.Context, input string) (*ClassifierResult, error)
}

// Pipeline runs the post-report moderation stages: the community report
// threshold first, then the AI adjudicator for anything still pending.
type Pipeline struct {
	db         *database.DatabaseService
	classifier TextClassifier
	logger     *slog.Logger
}

func NewPipeline(db *database.DatabaseService, classifier TextClassifier, logger *slog.Logger) *Pipeline {
	return &Pipeline{db: db, classifier: classifier, logger: logger}
}

// Adjudication statuses mirror the wire contract of the adjudicate
// endpoint: "violation" means the content was removed, "okay" means the
// report was dismissed.
const (
	StatusViolation = "violation"
	StatusOkay      = "okay"
)

type AdjudicationResult struct {
	Status     string               `json:"status"`
	Action     models.OutcomeAction `json:"action"`
	Categories map[string]bool      `json:"categories,omitempty"`
	Strikes    int                  `json:"strikes,omitempty"`
}

// Adjudicate asks the AI classifier to rule on a single report. A flagged
// verdict deletes the content and strikes the author; a clean verdict
// dismisses the report. Classifier failures are recorded to the audit log
// and returned to the caller, which decides how softly to fail.
func (p *Pipeline) Adjudicate(ctx context.Context, reportID string) (*AdjudicationResult, error) {
	report, err := p.db.GetReportTarget(reportID)
	if err != nil {
		return nil, err
	}

	verdict, err := p.classifier.Classify(ctx, report.Content)
	if err != nil {
		p.logger.Warn("Classifier call failed", "report_id", reportID, "error", err)
		if logErr := p.db.RecordModAction("ai", "adjudication_failed", report.TargetID, err.Error()); logErr != nil {
			p.logger.Error("Failed to record failed adjudication", "error", logErr)
		}
		return nil, err
	}

	if verdict.Flagged {
		details := "flagged by classifier"
		if cats, merr := json.Marshal(verdict.Categories); merr == nil {
			details = "flagged by classifier: " + string(cats)
		}
		strikes, err := p.db.DeleteContentAndStrike(report.TargetID, report.TargetType, "ai", details)
		if err != nil {
			return nil, err
		}
		return &AdjudicationResult{
			Status:     StatusViolation,
			Action:     models.ActionDeleted,
			Categories: verdict.Categories,
			Strikes:    strikes,
		}, nil
	}

	if err := p.db.DismissReport(reportID, "ai", "classifier found no violation"); err != nil && err != database.ErrNotFound {
		return nil, err
	}
	return &AdjudicationResult{
		Status: StatusOkay,
		Action: models.ActionDismissed,
	}, nil
}

// ProcessReport runs the full post-report pipeline for a freshly filed
// report. The community threshold is authoritative; the AI stage only
// runs while the report is still pending, and its failures degrade to the
// pending outcome rather than surfacing an error to the reporter.
func (p *Pipeline) ProcessReport(ctx context.Context, reportID, targetID string, targetType models.TargetType) (models.ReportOutcome, error) {
	outcome, err := p.db.ModerateReportedContent(targetID, targetType)
	if err != nil {
		return models.ReportOutcome{}, err
	}
	if outcome.Action != models.ActionPending {
		return outcome, nil
	}

	result, err := p.Adjudicate(ctx, reportID)
	if err != nil {
		// Soft failure: the report stays pending for a later pass.
		p.logger.Warn("AI adjudication unavailable, report stays pending", "report_id", reportID, "error", err)
		return outcome, nil
	}

	switch result.Status {
	case StatusViolation:
		return models.Deleted(result.Strikes), nil
	default:
		return models.Dismissed(), nil
	}
}
