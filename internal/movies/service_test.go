package movies

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"moviesvc/internal/config"
	"moviesvc/internal/external"
	"moviesvc/internal/quota"
	"moviesvc/internal/types"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) FindByIdentity(ctx context.Context, identity string) (*types.Account, error) {
	args := m.Called(ctx, identity)
	if a := args.Get(0); a != nil {
		return a.(*types.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) Save(ctx context.Context, account *types.Account) error {
	return m.Called(ctx, account).Error(0)
}

type fakeCatalog struct {
	result external.LookupResult
	calls  []string
}

func (f *fakeCatalog) Lookup(_ context.Context, title string) external.LookupResult {
	f.calls = append(f.calls, title)
	return f.result
}

type fakeRecorder struct {
	outcomes []external.Outcome
}

func (f *fakeRecorder) RecordLookup(o external.Outcome, _ time.Duration) {
	f.outcomes = append(f.outcomes, o)
}

func found(title string) external.LookupResult {
	b, _ := json.Marshal(title)
	return external.LookupResult{
		Outcome: external.OutcomeFound,
		Record:  external.RawRecord{Title: b, Released: json.RawMessage(`"25 May 1977"`)},
	}
}

func notFoundErr() error {
	return types.NewAppError(types.ErrCodeNotFoundAccount, "Not Found", nil)
}

func basicAccount(count int) *types.Account {
	return &types.Account{
		Identity:       "123",
		Tier:           types.TierBasic,
		Collection:     []types.Movie{},
		UsageWindowEnd: quota.NextMonthStart(testNow),
		UsageCount:     count,
	}
}

func newTestService(store AccountStore, catalog Catalog, opts ...func(*ServiceConfig)) *Service {
	cfg := ServiceConfig{
		Store:   store,
		Catalog: catalog,
		Ledger:  quota.NewLedger(quota.NewRegistry(config.QuotaConfig{BasicMonthlyLimit: 5}), nil),
		Clock:   fixedClock{now: testNow},
	}
	for _, o := range opts {
		o(&cfg)
	}
	return NewService(cfg)
}

var basicClaims = types.Claims{Identity: "123", Tier: types.TierBasic}

func requireCode(t *testing.T, err error, code types.ErrorCode) *types.AppError {
	t.Helper()
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func TestList_ReturnsCollectionInOrder(t *testing.T) {
	store := new(mockStore)
	a, b := "A", "B"
	acct := basicAccount(0)
	acct.Collection = []types.Movie{{Title: &a}, {Title: &b}}
	store.On("FindByIdentity", mock.Anything, "123").Return(acct, nil)

	got, err := newTestService(store, &fakeCatalog{}).List(context.Background(), basicClaims)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", *got[0].Title)
	assert.Equal(t, "B", *got[1].Title)
}

func TestList_NilCollectionIsEmpty(t *testing.T) {
	store := new(mockStore)
	acct := basicAccount(0)
	acct.Collection = nil
	store.On("FindByIdentity", mock.Anything, "123").Return(acct, nil)

	got, err := newTestService(store, &fakeCatalog{}).List(context.Background(), basicClaims)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestList_UnknownAccount(t *testing.T) {
	store := new(mockStore)
	store.On("FindByIdentity", mock.Anything, "123").Return(nil, notFoundErr())

	_, err := newTestService(store, &fakeCatalog{}).List(context.Background(), basicClaims)
	requireCode(t, err, types.ErrCodeNotFoundAccount)
}

func TestAdd_Success(t *testing.T) {
	store := new(mockStore)
	acct := basicAccount(2)
	store.On("FindByIdentity", mock.Anything, "123").Return(acct, nil)
	store.On("Save", mock.Anything, mock.MatchedBy(func(a *types.Account) bool {
		return a.UsageCount == 3 && len(a.Collection) == 1
	})).Return(nil)

	catalog := &fakeCatalog{result: found("Star Wars")}
	recorder := &fakeRecorder{}
	svc := newTestService(store, catalog, func(c *ServiceConfig) { c.Recorder = recorder })

	res, err := svc.Add(context.Background(), basicClaims, AddRequest{Title: "  Star Wars  "})
	require.NoError(t, err)

	require.NotNil(t, res.Movie.Title)
	assert.Equal(t, "Star Wars", *res.Movie.Title)
	assert.Equal(t, []string{"Star Wars"}, catalog.calls, "title is trimmed before lookup")
	assert.Equal(t, []external.Outcome{external.OutcomeFound}, recorder.outcomes)
	store.AssertExpectations(t)
}

func TestAdd_QuotaCheckedBeforeTitle(t *testing.T) {
	store := new(mockStore)
	store.On("FindByIdentity", mock.Anything, "123").Return(basicAccount(5), nil)
	catalog := &fakeCatalog{}

	_, err := newTestService(store, catalog).Add(context.Background(), basicClaims, AddRequest{Title: ""})
	appErr := requireCode(t, err, types.ErrCodeLimitMonthlyQuota)
	assert.Equal(t, "Monthly limit reached for basic user", appErr.Message)
	assert.Empty(t, catalog.calls)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAdd_AccountCheckedBeforeQuota(t *testing.T) {
	store := new(mockStore)
	store.On("FindByIdentity", mock.Anything, "123").Return(nil, notFoundErr())

	_, err := newTestService(store, &fakeCatalog{}).Add(context.Background(), basicClaims, AddRequest{})
	requireCode(t, err, types.ErrCodeNotFoundAccount)
}

func TestAdd_MissingOrBlankTitle(t *testing.T) {
	for _, title := range []string{"", "   ", "\t\n"} {
		store := new(mockStore)
		store.On("FindByIdentity", mock.Anything, "123").Return(basicAccount(0), nil)
		catalog := &fakeCatalog{}

		_, err := newTestService(store, catalog).Add(context.Background(), basicClaims, AddRequest{Title: title})
		appErr := requireCode(t, err, types.ErrCodeValidationMissingTitle)
		assert.Equal(t, types.MsgNoTitle, appErr.Message)
		assert.Empty(t, catalog.calls)
		store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	}
}

func TestAdd_DecodeErrorReportedAtTitleStep(t *testing.T) {
	decodeErr := types.NewAppError(types.ErrCodeValidationInvalidJSON, "Request body contains malformed JSON", nil)

	store := new(mockStore)
	store.On("FindByIdentity", mock.Anything, "123").Return(basicAccount(5), nil)
	_, err := newTestService(store, &fakeCatalog{}).Add(context.Background(), basicClaims, AddRequest{DecodeErr: decodeErr})
	requireCode(t, err, types.ErrCodeLimitMonthlyQuota)

	store = new(mockStore)
	store.On("FindByIdentity", mock.Anything, "123").Return(basicAccount(0), nil)
	_, err = newTestService(store, &fakeCatalog{}).Add(context.Background(), basicClaims, AddRequest{DecodeErr: decodeErr})
	requireCode(t, err, types.ErrCodeValidationInvalidJSON)
}

func TestAdd_LookupFailuresLeaveStoreUntouched(t *testing.T) {
	tests := []struct {
		name    string
		result  external.LookupResult
		code    types.ErrorCode
		message string
	}{
		{
			name:    "not found",
			result:  external.LookupResult{Outcome: external.OutcomeNotFound},
			code:    types.ErrCodeNotFoundMovie,
			message: types.MsgMovieNotFound,
		},
		{
			name:    "unreachable",
			result:  external.LookupResult{Outcome: external.OutcomeUnreachable, Err: errors.New("dns")},
			code:    types.ErrCodeUpstreamCatalogUnreachable,
			message: types.MsgCatalogUnreachable,
		},
		{
			name:    "failed",
			result:  external.LookupResult{Outcome: external.OutcomeFailed, Err: errors.New("catalog returned status 502")},
			code:    types.ErrCodeUpstreamCatalog,
			message: "catalog returned status 502",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mockStore)
			acct := basicAccount(1)
			store.On("FindByIdentity", mock.Anything, "123").Return(acct, nil)

			_, err := newTestService(store, &fakeCatalog{result: tt.result}).
				Add(context.Background(), basicClaims, AddRequest{Title: "Alien"})

			appErr := requireCode(t, err, tt.code)
			assert.Equal(t, tt.message, appErr.Message)
			assert.Equal(t, 1, acct.UsageCount)
			assert.Empty(t, acct.Collection)
			store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestAdd_ExpiredWindowResetsThenAdmits(t *testing.T) {
	store := new(mockStore)
	acct := basicAccount(5)
	acct.UsageWindowEnd = testNow.Add(-time.Minute)
	store.On("FindByIdentity", mock.Anything, "123").Return(acct, nil)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	res, err := newTestService(store, &fakeCatalog{result: found("Alien")}).
		Add(context.Background(), basicClaims, AddRequest{Title: "Alien"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Account.UsageCount)
	assert.Equal(t, quota.NextMonthStart(testNow), res.Account.UsageWindowEnd)
}

func TestAdd_PremiumUnlimited(t *testing.T) {
	store := new(mockStore)
	acct := basicAccount(500)
	acct.Tier = types.TierPremium
	store.On("FindByIdentity", mock.Anything, "434").Return(acct, nil)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	claims := types.Claims{Identity: "434", Tier: types.TierPremium}
	res, err := newTestService(store, &fakeCatalog{result: found("Alien")}).
		Add(context.Background(), claims, AddRequest{Title: "Alien"})
	require.NoError(t, err)
	assert.Equal(t, 501, res.Account.UsageCount)
}

func TestAdd_StoredTierWinsOverClaim(t *testing.T) {
	store := new(mockStore)
	store.On("FindByIdentity", mock.Anything, "123").Return(basicAccount(5), nil)

	claims := types.Claims{Identity: "123", Tier: types.TierPremium}
	_, err := newTestService(store, &fakeCatalog{}).Add(context.Background(), claims, AddRequest{Title: "Alien"})
	requireCode(t, err, types.ErrCodeLimitMonthlyQuota)
}

func TestAdd_CancelledBeforeSave(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	store := new(mockStore)
	store.On("FindByIdentity", mock.Anything, "123").Return(basicAccount(0), nil)
	catalog := &cancellingCatalog{cancel: cancel, result: found("Alien")}

	_, err := newTestService(store, catalog).Add(ctx, basicClaims, AddRequest{Title: "Alien"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

type cancellingCatalog struct {
	cancel context.CancelFunc
	result external.LookupResult
}

func (c *cancellingCatalog) Lookup(context.Context, string) external.LookupResult {
	c.cancel()
	return c.result
}

func TestAdd_SaveErrorPropagates(t *testing.T) {
	store := new(mockStore)
	store.On("FindByIdentity", mock.Anything, "123").Return(basicAccount(0), nil)
	saveErr := types.NewAppError(types.ErrCodeInternalDB, "failed to save account", errors.New("conn reset"))
	store.On("Save", mock.Anything, mock.Anything).Return(saveErr)

	_, err := newTestService(store, &fakeCatalog{result: found("Alien")}).
		Add(context.Background(), basicClaims, AddRequest{Title: "Alien"})
	requireCode(t, err, types.ErrCodeInternalDB)
}

func TestAutoProvision(t *testing.T) {
	store := new(mockStore)
	store.On("FindByIdentity", mock.Anything, "999").Return(nil, notFoundErr())
	store.On("Save", mock.Anything, mock.MatchedBy(func(a *types.Account) bool {
		return a.Identity == "999" && a.Tier == types.TierPremium
	})).Return(nil)

	svc := newTestService(store, &fakeCatalog{}, func(c *ServiceConfig) { c.AutoProvision = true })
	got, err := svc.List(context.Background(), types.Claims{Identity: "999", Tier: types.TierPremium})
	require.NoError(t, err)
	assert.Empty(t, got)
	store.AssertExpectations(t)
}

func TestAutoProvision_DoesNotMaskOtherErrors(t *testing.T) {
	store := new(mockStore)
	dbErr := types.NewAppError(types.ErrCodeInternalDB, "failed to load account", errors.New("timeout"))
	store.On("FindByIdentity", mock.Anything, "999").Return(nil, dbErr)

	svc := newTestService(store, &fakeCatalog{}, func(c *ServiceConfig) { c.AutoProvision = true })
	_, err := svc.List(context.Background(), types.Claims{Identity: "999"})
	requireCode(t, err, types.ErrCodeInternalDB)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
