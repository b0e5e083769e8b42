package movies

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"moviesvc/internal/external"
	"moviesvc/internal/quota"
	"moviesvc/internal/types"
)

// AccountStore is the persistence contract the service needs. Save is an
// upsert of the whole account.
type AccountStore interface {
	FindByIdentity(ctx context.Context, identity string) (*types.Account, error)
	Save(ctx context.Context, account *types.Account) error
}

// Catalog looks a movie up by title.
type Catalog interface {
	Lookup(ctx context.Context, title string) external.LookupResult
}

// LookupRecorder receives one observation per catalog call.
type LookupRecorder interface {
	RecordLookup(outcome external.Outcome, duration time.Duration)
}

// RequestValidator validates decoded request structs.
type RequestValidator interface {
	ValidateStruct(s any) error
}

// AddRequest is the decoded body of an add call. Title is empty when the
// field was absent or not a JSON string.
type AddRequest struct {
	Title string `validate:"required,notblank"`
	// DecodeErr is set when the body could not be decoded. It is reported at
	// the title check so credential, account and quota failures come first.
	DecodeErr error `validate:"-"`
}

// AddResult is returned by a successful add.
type AddResult struct {
	Movie   types.Movie
	Account *types.Account
}

// ServiceConfig holds the dependencies for Service.
type ServiceConfig struct {
	Store     AccountStore
	Catalog   Catalog
	Ledger    *quota.Ledger
	Validator RequestValidator
	Recorder  LookupRecorder
	Clock     types.Clock
	Logger    *slog.Logger

	// AutoProvision creates a missing account from the verified claims
	// instead of failing with not_found_account.
	AutoProvision bool
}

// Service implements the list and add use cases.
type Service struct {
	store         AccountStore
	catalog       Catalog
	ledger        *quota.Ledger
	validator     RequestValidator
	recorder      LookupRecorder
	clock         types.Clock
	logger        *slog.Logger
	autoProvision bool
}

// NewService creates a Service. Recorder and Validator are optional.
func NewService(cfg ServiceConfig) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:         cfg.Store,
		catalog:       cfg.Catalog,
		ledger:        cfg.Ledger,
		validator:     cfg.Validator,
		recorder:      cfg.Recorder,
		clock:         clock,
		logger:        logger,
		autoProvision: cfg.AutoProvision,
	}
}

// List returns the caller's collection in insertion order. It never
// returns nil on success.
func (s *Service) List(ctx context.Context, claims types.Claims) ([]types.Movie, error) {
	account, err := s.resolveAccount(ctx, claims)
	if err != nil {
		return nil, err
	}
	if account.Collection == nil {
		return []types.Movie{}, nil
	}
	return account.Collection, nil
}

// Add looks up req.Title in the catalog and appends the sanitized record to
// the caller's collection. Checks run in a fixed order and the first failure
// wins: account, quota, title, lookup. The account is saved only when every
// step succeeded; a quota window reset applied before a later failure is
// not persisted.
func (s *Service) Add(ctx context.Context, claims types.Claims, req AddRequest) (*AddResult, error) {
	account, err := s.resolveAccount(ctx, claims)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := s.ledger.CheckAndReserve(account, now); err != nil {
		return nil, err
	}

	title, err := s.validateTitle(req)
	if err != nil {
		return nil, err
	}

	record, err := s.lookup(ctx, title)
	if err != nil {
		return nil, err
	}

	movie := Sanitize(record)
	account.Collection = append(account.Collection, movie)
	s.ledger.Commit(account)
	account.UpdatedAt = now

	// A cancelled request must not persist anything.
	if err := ctx.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, err.Error(), err)
	}

	if err := s.store.Save(ctx, account); err != nil {
		s.logger.ErrorContext(ctx, "failed to save account",
			"identity", account.Identity,
			"error", err,
		)
		return nil, err
	}

	return &AddResult{Movie: movie, Account: account}, nil
}

func (s *Service) resolveAccount(ctx context.Context, claims types.Claims) (*types.Account, error) {
	account, err := s.store.FindByIdentity(ctx, claims.Identity)
	if err == nil {
		return account, nil
	}

	var appErr *types.AppError
	if !s.autoProvision || !errors.As(err, &appErr) || appErr.Code != types.ErrCodeNotFoundAccount {
		return nil, err
	}

	account = quota.NewAccount(claims.Identity, claims.Tier, s.clock.Now())
	if err := s.store.Save(ctx, account); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "provisioned account",
		"identity", account.Identity,
		"tier", account.Tier,
	)
	return account, nil
}

func (s *Service) validateTitle(req AddRequest) (string, error) {
	if req.DecodeErr != nil {
		return "", req.DecodeErr
	}
	req.Title = strings.TrimSpace(req.Title)
	if s.validator != nil {
		if err := s.validator.ValidateStruct(req); err != nil {
			return "", types.NewAppError(types.ErrCodeValidationMissingTitle, types.MsgNoTitle, err)
		}
	}
	if req.Title == "" {
		return "", types.NewAppError(types.ErrCodeValidationMissingTitle, types.MsgNoTitle, nil)
	}
	return req.Title, nil
}

func (s *Service) lookup(ctx context.Context, title string) (external.RawRecord, error) {
	start := time.Now()
	res := s.catalog.Lookup(ctx, title)
	if s.recorder != nil {
		s.recorder.RecordLookup(res.Outcome, time.Since(start))
	}

	switch res.Outcome {
	case external.OutcomeFound:
		return res.Record, nil
	case external.OutcomeNotFound:
		return external.RawRecord{}, types.NewAppError(types.ErrCodeNotFoundMovie, types.MsgMovieNotFound, nil)
	case external.OutcomeUnreachable:
		return external.RawRecord{}, types.NewAppError(types.ErrCodeUpstreamCatalogUnreachable, types.MsgCatalogUnreachable, res.Err)
	default:
		err := res.Err
		if err == nil {
			err = errors.New("catalog lookup failed")
		}
		return external.RawRecord{}, types.NewAppError(types.ErrCodeUpstreamCatalog, err.Error(), err)
	}
}
