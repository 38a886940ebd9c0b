package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Astemirdum/libsys/library/internal/errs"
	"github.com/Astemirdum/libsys/library/internal/events"
	"github.com/Astemirdum/libsys/library/internal/model"
	"github.com/Astemirdum/libsys/library/internal/policy"
	"github.com/Astemirdum/libsys/library/internal/repository"
	"github.com/Astemirdum/libsys/pkg/auth"
	"github.com/Astemirdum/libsys/pkg/validate"
)

// Enqueuer schedules background metadata enrichment for a book.
type Enqueuer interface {
	Enqueue(isbn string) bool
}

type Service struct {
	log       *zap.Logger
	repo      repository.Repository
	gate      policy.Gate
	tokens    *auth.TokenManager
	validator *validate.CustomValidator
	events    events.Publisher
	enricher  Enqueuer
	hashCost  int

	now          func() time.Time
	newUserID    func() string
	newRequestID func(at time.Time) string
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

func WithEnricher(e Enqueuer) Option {
	return func(s *Service) {
		s.enricher = e
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithHashCost sets the bcrypt cost for new credentials.
func WithHashCost(cost int) Option {
	return func(s *Service) {
		s.hashCost = cost
	}
}

func NewService(repo repository.Repository, tokens *auth.TokenManager, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		log:          log.Named("service"),
		repo:         repo,
		tokens:       tokens,
		validator:    validate.NewCustomValidator(),
		events:       events.Noop(),
		hashCost:     bcrypt.DefaultCost,
		now:          time.Now,
		newUserID:    uuid.NewString,
		newRequestID: newULID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newULID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}

// actor re-reads the caller so that role changes and deactivation apply to live tokens.
func (s *Service) actor(ctx context.Context, id string) (model.User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return model.User{}, errs.Forbidden("unknown account")
	}
	return u, err
}

// authorize resolves the actor and runs it through the gate.
func (s *Service) authorize(ctx context.Context, actorID string, action policy.Action, res policy.Resource) (model.User, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return model.User{}, err
	}
	if err := s.gate.Check(actor, action, res); err != nil {
		s.log.Debug("denied",
			zap.String("actor", actor.ID),
			zap.String("role", string(actor.Role)),
			zap.String("action", string(action)),
			zap.String("owner", res.OwnerID))
		return model.User{}, err
	}
	return actor, nil
}

func (s *Service) validate(v any) error {
	if err := s.validator.Validate(v); err != nil {
		return errs.Validation("%s", validate.Message(err))
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
