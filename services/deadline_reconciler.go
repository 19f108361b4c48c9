package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"permit-portal-api/models"
	"permit-portal-api/repository"
	"permit-portal-api/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReconcileRule moves submissions still in From past their Column deadline to To.
type ReconcileRule struct {
	From   models.StatusCode
	Column repository.DeadlineColumn
	To     models.StatusCode
}

// DefaultReconcileRules expire unpaid and unrevised submissions.
func DefaultReconcileRules() []ReconcileRule {
	return []ReconcileRule{
		{From: models.StatusPaymentPending, Column: repository.PaymentDeadlineColumn, To: models.StatusPaymentFailed},
		{From: models.StatusPaymentFailed, Column: repository.NewPaymentDeadlineColumn, To: models.StatusRejected},
		{From: models.StatusNeedsRevision, Column: repository.RevisionDeadlineColumn, To: models.StatusRejected},
	}
}

type ReconcileSummary struct {
	RunID        string `json:"run_id"`
	Examined     int    `json:"examined"`
	Transitioned int    `json:"transitioned"`
	Skipped      int    `json:"skipped"`
	Failed       int    `json:"failed"`
}

// DeadlineReconciler applies elapsed deadlines through the lifecycle service. It
// runs from a scheduler, never from a request handler.
type DeadlineReconciler struct {
	records   repository.RecordStore
	lifecycle *LifecycleService
	rules     []ReconcileRule
	logger    *zap.Logger
	now       func() time.Time
}

func NewDeadlineReconciler(records repository.RecordStore, lifecycle *LifecycleService, rules []ReconcileRule, logger *zap.Logger) *DeadlineReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(rules) == 0 {
		rules = DefaultReconcileRules()
	}
	return &DeadlineReconciler{records: records, lifecycle: lifecycle, rules: rules, logger: logger, now: time.Now}
}

// WithClock replaces the time source.
func (r *DeadlineReconciler) WithClock(now func() time.Time) *DeadlineReconciler {
	r.now = now
	return r
}

// Reconcile runs every rule once. Submissions that moved on since they were
// listed are skipped.
func (r *DeadlineReconciler) Reconcile(ctx context.Context) (*ReconcileSummary, error) {
	summary := &ReconcileSummary{RunID: uuid.NewString()}
	log := r.logger.With(zap.String("run_id", summary.RunID))
	now := r.now()

	var errs []error
	for _, rule := range r.rules {
		if !rule.Column.Valid() {
			return summary, fmt.Errorf("reconcile rule %s: unknown deadline column %q", rule.From, rule.Column)
		}
		expired, err := r.records.ListDeadlineExpired(ctx, rule.From, rule.Column, now)
		if err != nil {
			errs = append(errs, persistenceError(fmt.Sprintf("list expired %s", rule.Column), err))
			continue
		}
		for _, sub := range expired {
			summary.Examined++
			from := rule.From
			_, err := r.lifecycle.Transition(ctx, TransitionInput{
				SubmissionID:   sub.SubmissionID,
				Status:         rule.To,
				ExpectedStatus: &from,
				Comment:        expiryComment(rule, sub),
			})
			switch {
			case err == nil:
				summary.Transitioned++
				DeadlineActionsTotal.WithLabelValues(rule.From.String(), rule.To.String(), "transitioned").Inc()
			case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrSubmissionBusy):
				summary.Skipped++
				DeadlineActionsTotal.WithLabelValues(rule.From.String(), rule.To.String(), "skipped").Inc()
				log.Debug("deadline action skipped", zap.Int("submission_id", sub.SubmissionID), zap.Error(err))
			default:
				summary.Failed++
				DeadlineActionsTotal.WithLabelValues(rule.From.String(), rule.To.String(), "failed").Inc()
				log.Error("deadline action failed", zap.Int("submission_id", sub.SubmissionID), zap.Error(err))
				errs = append(errs, err)
			}
		}
	}

	log.Info("deadline reconciliation finished",
		zap.Int("examined", summary.Examined),
		zap.Int("transitioned", summary.Transitioned),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return summary, errors.Join(errs...)
}

func expiryComment(rule ReconcileRule, sub models.Submission) *CommentInput {
	var deadline *time.Time
	switch rule.Column {
	case repository.PaymentDeadlineColumn:
		deadline = sub.PaymentDeadline
	case repository.NewPaymentDeadlineColumn:
		deadline = sub.NewPaymentDeadline
	case repository.RevisionDeadlineColumn:
		deadline = sub.RevisionDeadline
	}
	text := fmt.Sprintf("Automatically moved to %s: %s elapsed on %s.", rule.To, rule.Column, utils.FormatDeadlinePtr(deadline))
	return &CommentInput{Official: &text}
}
