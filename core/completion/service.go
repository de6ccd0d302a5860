package completion

import (
	"context"
	"errors"
	"time"

	"github.com/mwalimu/darasa/core"
	"github.com/mwalimu/darasa/core/class"
	"github.com/mwalimu/darasa/core/user"
)

var (
	// gate rejections, in workflow order
	ErrMissingToken     = errors.New("missing completion token")
	ErrInvalidToken     = errors.New("invalid or expired completion token")
	ErrNotAuthenticated = errors.New("authentication required")
	ErrWrongRole        = errors.New("only learners can complete classes")
	ErrNoValidClasses   = errors.New("no valid classes found for completion")

	ErrNotFound = errors.New("completion not found")
)

type (
	// Completion is the fact record that a given user attended/finished a
	// given class. Unique on (user, class); re-completion overwrites the
	// timestamp rather than duplicating.
	Completion struct {
		ID          int       `json:"id"`
		UserID      string    `json:"user_id"`
		ClassID     int       `json:"class_id"`
		CompletedAt time.Time `json:"completed_at"` // UTC
		CreatedAt   time.Time `json:"created_at"`   // UTC
		UpdatedAt   time.Time `json:"updated_at"`   // UTC

		// denormalized class info for reporting queries
		ClassName     string    `json:"class_name,omitempty"`
		Organizer     string    `json:"organizer,omitempty"`
		EventDatetime time.Time `json:"event_datetime,omitempty"`
	}

	Repository interface {
		HasCompletion(ctx context.Context, userID string, classID int) (bool, error)
		// RecordCompletion upserts on the (user, class) unique key; a
		// conflicting row gets its completed_at overwritten. This is the
		// correctness backstop for concurrent consumers of one token.
		RecordCompletion(ctx context.Context, userID string, classID int, completedAt time.Time) (Completion, error)
		QueryUserCompletions(ctx context.Context, userID string) ([]Completion, error)
		QueryClassCompletions(ctx context.Context, classID int) ([]Completion, error)
		DeleteCompletion(ctx context.Context, userID string, classID int) error
	}

	// ClassStore is the narrow slice of the class service the workflow needs.
	ClassStore interface {
		GetByID(ctx context.Context, id int) (class.Class, error)
	}

	// ClassError reports a single class whose completion write failed.
	ClassError struct {
		ClassID int
		Name    string
		Err     string
	}

	// Result partitions the outcome of a completion run into the three
	// buckets the results page renders. A run never fails wholesale because
	// of one class; it degrades per item.
	Result struct {
		NewlyCompleted   []class.Class
		AlreadyCompleted []class.Class
		Errors           []ClassError
	}

	Service struct {
		tokens  *TokenService
		classes ClassStore
		repo    Repository
		logger  core.Logger
	}
)

func NewService(tokens *TokenService, classes ClassStore, repo Repository, logger core.Logger) *Service {
	return &Service{tokens: tokens, classes: classes, repo: repo, logger: logger}
}

func (svc *Service) Tokens() *TokenService { return svc.tokens }

// Complete runs the completion workflow for a presented token:
// token extraction -> validation -> authentication -> role check -> class
// resolution -> per-class recording. Gate failures return one of the Err*
// rejections; ErrNotAuthenticated is not terminal (the caller redirects to
// login and the flow resumes).
func (svc *Service) Complete(ctx context.Context, token string, auth core.AuthContext) (Result, error) {
	if token == "" {
		return Result{}, ErrMissingToken
	}

	info, err := svc.tokens.Validate(token)
	if err != nil {
		// the specific cause is logged only; the caller gets one generic
		// rejection so forgery attempts learn nothing
		svc.logger.Info("completion token rejected", map[string]interface{}{"cause": err.Error()})
		return Result{}, ErrInvalidToken
	}

	if !auth.Authenticated {
		return Result{}, ErrNotAuthenticated
	}
	if !auth.HasRole(user.RoleLearner) {
		return Result{}, ErrWrongRole
	}

	classes := svc.resolveClasses(ctx, info.ClassIDs)
	if len(classes) == 0 {
		return Result{}, ErrNoValidClasses
	}

	return svc.record(ctx, auth.UserID, classes), nil
}

// resolveClasses looks up each token class ID; IDs that no longer exist are
// silently dropped.
func (svc *Service) resolveClasses(ctx context.Context, classIDs []int) []class.Class {
	classes := make([]class.Class, 0, len(classIDs))
	for _, id := range classIDs {
		cls, err := svc.classes.GetByID(ctx, id)
		if err != nil {
			if err != class.ErrNotFound {
				svc.logger.Warn("resolving completion class", err)
			}
			continue
		}
		classes = append(classes, cls)
	}
	return classes
}

func (svc *Service) record(ctx context.Context, userID string, classes []class.Class) Result {
	var res Result
	now := time.Now().UTC()

	for _, cls := range classes {
		done, err := svc.repo.HasCompletion(ctx, userID, cls.ID)
		if err != nil {
			res.Errors = append(res.Errors, ClassError{ClassID: cls.ID, Name: cls.Name, Err: err.Error()})
			continue
		}
		if done {
			res.AlreadyCompleted = append(res.AlreadyCompleted, cls)
			continue
		}
		if _, err := svc.repo.RecordCompletion(ctx, userID, cls.ID, now); err != nil {
			svc.logger.Error("recording completion", err)
			res.Errors = append(res.Errors, ClassError{ClassID: cls.ID, Name: cls.Name, Err: err.Error()})
			continue
		}
		res.NewlyCompleted = append(res.NewlyCompleted, cls)
	}
	return res
}

// QueryForUser lists a user's completions, most recent first.
func (svc *Service) QueryForUser(ctx context.Context, userID string) ([]Completion, error) {
	return svc.repo.QueryUserCompletions(ctx, userID)
}

// QueryForClass lists every completion of a class.
func (svc *Service) QueryForClass(ctx context.Context, classID int) ([]Completion, error) {
	return svc.repo.QueryClassCompletions(ctx, classID)
}

// Delete removes a completion record; admin tooling only.
func (svc *Service) Delete(ctx context.Context, userID string, classID int) error {
	return svc.repo.DeleteCompletion(ctx, userID, classID)
}
