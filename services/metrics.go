package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransitionsTotal counts committed status transitions.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permit_status_transitions_total",
		Help: "Committed status transitions by source and target status",
	}, []string{"from", "to"})

	// TransitionRejectionsTotal counts transition requests refused before any write.
	TransitionRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permit_status_transition_rejections_total",
		Help: "Transition requests rejected by error kind",
	}, []string{"reason"})

	// SagaRunsTotal counts resubmission, deletion and intake runs by outcome.
	SagaRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permit_saga_runs_total",
		Help: "Saga executions by saga name and outcome",
	}, []string{"saga", "outcome"})

	// SagaStepFailuresTotal counts the step a failed saga stopped at.
	SagaStepFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permit_saga_step_failures_total",
		Help: "Fatal saga step failures",
	}, []string{"saga", "step"})

	// ArtifactDeleteWarningsTotal counts best-effort blob deletes that failed.
	ArtifactDeleteWarningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permit_artifact_delete_warnings_total",
		Help: "Blob deletes that failed without aborting a saga",
	}, []string{"saga"})

	// DeadlineActionsTotal counts reconciler actions by rule and outcome.
	DeadlineActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permit_deadline_actions_total",
		Help: "Deadline reconciler transitions by rule and outcome",
	}, []string{"from", "to", "outcome"})
)

func errorReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrSubmissionBusy):
		return "busy"
	case errors.Is(err, ErrArtifact):
		return "artifact"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	}
	return "other"
}
