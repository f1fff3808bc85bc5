package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	// ErrNotTaskFreelancer rejects a submit attempted by anyone but the
	// assigned freelancer.
	ErrNotTaskFreelancer = errors.New("actor is not the assigned freelancer")
	// ErrNotTaskCommissioner rejects a review decision attempted by anyone but
	// the commissioner.
	ErrNotTaskCommissioner = errors.New("actor is not the project commissioner")
	// ErrMissingRejectReason rejects a rework request without feedback.
	ErrMissingRejectReason = errors.New("reject reason is required")
)

// StateTransitionError reports an operation attempted from a status it is not
// valid in, naming the attempted and allowed transitions.
type StateTransitionError struct {
	Op      string
	From    Status
	Allowed []Status
}

func (e *StateTransitionError) Error() string {
	allowed := make([]string, 0, len(e.Allowed))
	for _, s := range e.Allowed {
		allowed = append(allowed, string(s))
	}
	return fmt.Sprintf("cannot %s task from status %q, allowed from: %s",
		e.Op, e.From, strings.Join(allowed, ", "))
}

// Patch is the set of fields a successful transition changes. The caller is
// responsible for persisting it; on error the stored record must not change.
type Patch struct {
	Status        Status
	Completed     bool
	Rejected      bool
	FeedbackCount int
	LastFeedback  string
	Version       int
	UpdatedAt     time.Time
}

// Submit moves an ongoing task into review. Valid only for the assigned
// freelancer. Version advances only on resubmission after a rejection, so
// version 1 always denotes the first delivery.
func Submit(t Task, actorID snowflake.ID) (Patch, error) {
	if actorID != t.FreelancerID {
		return Patch{}, ErrNotTaskFreelancer
	}
	if t.Status != StatusOngoing {
		return Patch{}, &StateTransitionError{Op: "submit", From: t.Status, Allowed: []Status{StatusOngoing}}
	}

	version := t.Version
	if t.Rejected {
		version++
	}

	return Patch{
		Status:        StatusInReview,
		Completed:     false,
		Rejected:      false,
		FeedbackCount: t.FeedbackCount,
		LastFeedback:  t.LastFeedback,
		Version:       version,
		UpdatedAt:     time.Now().UTC(),
	}, nil
}

// Approve accepts an in-review task. Valid only for the commissioner. The
// resulting patch is the trigger point downstream invoice generation observes.
func Approve(t Task, actorID snowflake.ID) (Patch, error) {
	if actorID != t.CommissionerID {
		return Patch{}, ErrNotTaskCommissioner
	}
	if t.Status != StatusInReview {
		return Patch{}, &StateTransitionError{Op: "approve", From: t.Status, Allowed: []Status{StatusInReview}}
	}

	return Patch{
		Status:        StatusApproved,
		Completed:     true,
		Rejected:      false,
		FeedbackCount: t.FeedbackCount,
		LastFeedback:  t.LastFeedback,
		Version:       t.Version,
		UpdatedAt:     time.Now().UTC(),
	}, nil
}

// Reject sends an in-review task back for rework. Valid only for the
// commissioner; a reason is mandatory.
func Reject(t Task, actorID snowflake.ID, reason string) (Patch, error) {
	if actorID != t.CommissionerID {
		return Patch{}, ErrNotTaskCommissioner
	}
	if t.Status != StatusInReview {
		return Patch{}, &StateTransitionError{Op: "reject", From: t.Status, Allowed: []Status{StatusInReview}}
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Patch{}, ErrMissingRejectReason
	}

	return Patch{
		Status:        StatusOngoing,
		Completed:     false,
		Rejected:      true,
		FeedbackCount: t.FeedbackCount + 1,
		LastFeedback:  reason,
		Version:       t.Version,
		UpdatedAt:     time.Now().UTC(),
	}, nil
}

// Apply returns a copy of the task with the patch applied.
func (p Patch) Apply(t Task) Task {
	t.Status = p.Status
	t.Completed = p.Completed
	t.Rejected = p.Rejected
	t.FeedbackCount = p.FeedbackCount
	t.LastFeedback = p.LastFeedback
	t.Version = p.Version
	t.UpdatedAt = p.UpdatedAt
	return t
}
