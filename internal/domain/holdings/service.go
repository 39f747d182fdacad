package holdings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"brokerlink/internal/infrastructure/aggregator"
)

var (
	syncMeter       = otel.Meter("brokerlink/holdings")
	syncRows, _     = syncMeter.Int64Counter("holdings.sync.rows", metric.WithDescription("Asset rows written by sync, by status"))
	syncDuration, _ = syncMeter.Float64Histogram("holdings.sync.duration", metric.WithDescription("Write-path sync duration in seconds"), metric.WithUnit("s"))
)

const (
	defaultConcurrency = 4
	defaultCategoryTTL = 10 * time.Minute
)

// SecretSource resolves the stored aggregator secret for a user.
type SecretSource interface {
	Get(ctx context.Context, userID string) (string, error)
}

// Options tune the sync service.
type Options struct {
	// Concurrency bounds the per-account fetches in flight for one user.
	Concurrency int
	// CategoryTTL is how long the investments category id is cached.
	CategoryTTL time.Duration
}

// SyncService pulls positions and balances from the aggregator and, on the
// write path, appends them as asset rows.
type SyncService struct {
	client      aggregator.ClientInterface
	secrets     SecretSource
	assets      AssetRepository
	categories  CategoryRepository
	categoryIDs *ttlcache.Cache[string, string]
	concurrency int
	now         func() time.Time
}

// NewSyncService creates a new holdings sync service
func NewSyncService(
	client aggregator.ClientInterface,
	secrets SecretSource,
	assets AssetRepository,
	categories CategoryRepository,
	opts Options,
) *SyncService {
	if opts.Concurrency < 1 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.CategoryTTL <= 0 {
		opts.CategoryTTL = defaultCategoryTTL
	}

	return &SyncService{
		client:     client,
		secrets:    secrets,
		assets:     assets,
		categories: categories,
		categoryIDs: ttlcache.New[string, string](
			ttlcache.WithTTL[string, string](opts.CategoryTTL),
			ttlcache.WithDisableTouchOnHit[string, string](),
		),
		concurrency: opts.Concurrency,
		now:         time.Now,
	}
}

// Accounts lists the user's brokerage accounts.
func (s *SyncService) Accounts(ctx context.Context, userID string) ([]aggregator.Account, error) {
	secret, err := s.secrets.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	accounts, err := s.client.ListAccounts(ctx, userID, secret)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// Holdings is the read path. With accountID set only that account is read.
// Holdings whose numbers cannot be parsed are logged and left out.
func (s *SyncService) Holdings(ctx context.Context, userID, accountID string) ([]Holding, error) {
	secret, err := s.secrets.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	accounts, err := s.targetAccounts(ctx, userID, secret, accountID)
	if err != nil {
		return nil, err
	}

	holdings, problems, err := s.collect(ctx, userID, secret, accounts)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx)
	for _, p := range problems {
		logger.Warn().Str("user_id", userID).Msg(p)
	}
	return holdings, nil
}

// SyncAssets is the write path. It appends one asset row per holding under a
// fresh sync run id. Per-row failures are recorded in the result and do not
// fail the call.
func (s *SyncService) SyncAssets(ctx context.Context, userID string) (*SyncResult, error) {
	start := s.now()
	result := &SyncResult{
		UserID: userID,
		RunID:  uuid.NewString(),
		Errors: []string{},
	}
	logger := zerolog.Ctx(ctx).With().Str("user_id", userID).Str("sync_run_id", result.RunID).Logger()

	categoryID, err := s.categoryID(ctx)
	if err != nil {
		return result, err
	}

	secret, err := s.secrets.Get(ctx, userID)
	if err != nil {
		return result, err
	}

	accounts, err := s.targetAccounts(ctx, userID, secret, "")
	if err != nil {
		return result, err
	}
	result.AccountsFound = len(accounts)

	holdings, problems, err := s.collect(ctx, userID, secret, accounts)
	if err != nil {
		return result, err
	}
	result.HoldingsFound = len(holdings)
	for _, p := range problems {
		result.Errors = append(result.Errors, p)
		logger.Warn().Msg(p)
	}

	acquiredAt := s.now().UTC()
	for _, h := range holdings {
		asset := &Asset{
			UserID:           userID,
			Name:             h.Symbol,
			Value:            h.TotalValue,
			Description:      describe(h),
			Account:          accountLabel(h),
			AcquisitionDate:  acquiredAt,
			AcquisitionValue: h.BookValue,
			CategoryID:       categoryID,
			IsLiability:      false,
			SyncRunID:        result.RunID,
			Metadata:         assetMetadata(h),
		}

		if err := s.assets.Insert(ctx, asset); err != nil {
			result.Failed++
			errMsg := fmt.Sprintf("failed to insert %s for account %s: %v", h.Symbol, h.AccountID, err)
			result.Errors = append(result.Errors, errMsg)
			logger.Error().Err(err).Str("symbol", h.Symbol).Str("account_id", h.AccountID).Msg("Failed to insert asset")
			syncRows.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "error")))
			continue
		}

		result.Inserted++
		syncRows.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "success")))
	}

	syncDuration.Record(ctx, s.now().Sub(start).Seconds())
	logger.Info().
		Int("accounts", result.AccountsFound).
		Int("holdings", result.HoldingsFound).
		Int("inserted", result.Inserted).
		Int("failed", result.Failed).
		Msg("Holdings sync complete")

	return result, nil
}

// categoryID resolves the investments category, caching hits only.
func (s *SyncService) categoryID(ctx context.Context) (string, error) {
	if item := s.categoryIDs.Get(InvestmentsCategory); item != nil {
		return item.Value(), nil
	}

	id, err := s.categories.GetIDByName(ctx, InvestmentsCategory)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return "", ErrCategoryNotFound
		}
		return "", fmt.Errorf("failed to resolve investments category: %w", err)
	}

	s.categoryIDs.Set(InvestmentsCategory, id, ttlcache.DefaultTTL)
	return id, nil
}

func (s *SyncService) targetAccounts(ctx context.Context, userID, secret, accountID string) ([]aggregator.Account, error) {
	accounts, err := s.client.ListAccounts(ctx, userID, secret)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	if accountID == "" {
		return accounts, nil
	}

	for _, acct := range accounts {
		if acct.ID == accountID {
			return []aggregator.Account{acct}, nil
		}
	}
	return nil, ErrAccountNotFound
}

type accountHoldings struct {
	holdings []Holding
	problems []string
}

// collect fetches every account in parallel and flattens the results in the
// vendor's account order. A failed fetch aborts the whole collection.
func (s *SyncService) collect(ctx context.Context, userID, secret string, accounts []aggregator.Account) ([]Holding, []string, error) {
	perAccount := make([]accountHoldings, len(accounts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, acct := range accounts {
		g.Go(func() error {
			res, err := s.fetchAccount(gctx, userID, secret, acct)
			if err != nil {
				return err
			}
			perAccount[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var holdings []Holding
	var problems []string
	for _, res := range perAccount {
		holdings = append(holdings, res.holdings...)
		problems = append(problems, res.problems...)
	}
	return holdings, problems, nil
}

func (s *SyncService) fetchAccount(ctx context.Context, userID, secret string, acct aggregator.Account) (accountHoldings, error) {
	var res accountHoldings

	positions, err := s.client.GetAccountPositions(ctx, userID, secret, acct.ID)
	if err != nil {
		return res, fmt.Errorf("failed to fetch positions for account %s: %w", acct.ID, err)
	}
	balances, err := s.client.GetAccountBalances(ctx, userID, secret, acct.ID)
	if err != nil {
		return res, fmt.Errorf("failed to fetch balances for account %s: %w", acct.ID, err)
	}

	for _, p := range positions {
		h, err := FromPosition(acct, p)
		if err != nil {
			res.problems = append(res.problems, fmt.Sprintf("account %s: %v", acct.ID, err))
			continue
		}
		res.holdings = append(res.holdings, h)
	}

	for _, b := range balances {
		h, ok, err := FromBalance(acct, b)
		if err != nil {
			res.problems = append(res.problems, fmt.Sprintf("account %s: %v", acct.ID, err))
			continue
		}
		if ok {
			res.holdings = append(res.holdings, h)
		}
	}

	return res, nil
}
