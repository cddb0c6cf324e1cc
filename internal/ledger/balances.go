package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// DirectGroupID identifies the pseudo-group that collects contact
// transactions, which belong to no group.
const DirectGroupID = "direct"

// GroupBalance is a user's position within one group.
type GroupBalance struct {
	GroupID   string
	GroupName string
	Archived  bool

	calculator.GroupTotals

	// Suggested is a short list of transfers that would settle the whole
	// group, not only the user.
	Suggested []calculator.DebtEdge
}

// TotalBalances is a user's position across every group plus direct
// contact transactions.
type TotalBalances struct {
	UserID    string
	Groups    []*GroupBalance
	YouOwe    decimal.Decimal
	YoureOwed decimal.Decimal

	// Failed lists groups whose balance could not be loaded. They are not
	// part of the totals.
	Failed []errs.GroupFailure
}

// Activity counts pending settlements recorded since a point in time.
type Activity struct {
	// Incoming settlements are owed to the user.
	Incoming int
	// Outgoing settlements are owed by the user.
	Outgoing int
}

// Total returns Incoming + Outgoing.
func (a Activity) Total() int {
	return a.Incoming + a.Outgoing
}

// BalanceService answers balance queries. Every call recomputes from the
// stored settlements; nothing is cached.
type BalanceService struct {
	store       storage.Store
	metrics     *metrics.Metrics
	concurrency int
	timeout     time.Duration
}

// BalanceOption configures a BalanceService.
type BalanceOption func(*BalanceService)

// WithConcurrency bounds how many groups GetTotalBalances loads at once.
func WithConcurrency(n int) BalanceOption {
	return func(s *BalanceService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithGroupTimeout bounds the load of a single group in GetTotalBalances.
func WithGroupTimeout(d time.Duration) BalanceOption {
	return func(s *BalanceService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithBalanceMetrics records aggregation metrics on m.
func WithBalanceMetrics(m *metrics.Metrics) BalanceOption {
	return func(s *BalanceService) { s.metrics = m }
}

// NewBalanceService creates a BalanceService reading from store.
func NewBalanceService(store storage.Store, opts ...BalanceOption) *BalanceService {
	s := &BalanceService{
		store:       store,
		concurrency: 8,
		timeout:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetGroupBalance nets userID against every member of the group. Archived
// groups are computed like active ones.
func (s *BalanceService) GetGroupBalance(ctx context.Context, groupID, userID string) (*GroupBalance, error) {
	if groupID == "" {
		return nil, errs.Validationf("group_id", "is required")
	}
	if userID == "" {
		return nil, errs.Validationf("user_id", "is required")
	}
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.groupBalance(ctx, group, userID)
}

func (s *BalanceService) groupBalance(ctx context.Context, group *models.Group, userID string) (*GroupBalance, error) {
	settlements, err := s.store.ListSettlementsByGroup(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	obligations := toObligations(settlements)
	return &GroupBalance{
		GroupID:     group.ID,
		GroupName:   group.Name,
		Archived:    group.Archived,
		GroupTotals: calculator.NetGroup(userID, group.MemberIDs(), obligations),
		Suggested:   calculator.SimplifyDebts(obligations),
	}, nil
}

func (s *BalanceService) directBalance(ctx context.Context, userID string) (*GroupBalance, error) {
	settlements, err := s.store.ListSettlementsForParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	var direct []*models.Settlement
	for _, st := range settlements {
		if st.GroupID == "" {
			direct = append(direct, st)
		}
	}
	if len(direct) == 0 {
		return nil, nil
	}
	obligations := toObligations(direct)
	return &GroupBalance{
		GroupID:     DirectGroupID,
		GroupName:   "Direct",
		GroupTotals: calculator.NetGroup(userID, nil, obligations),
		Suggested:   calculator.SimplifyDebts(obligations),
	}, nil
}

// GetTotalBalances sums the user's position over every group they belong
// to, archived ones included, plus direct contact transactions.
//
// Groups are loaded concurrently. A group that fails is reported in
// TotalBalances.Failed and left out of the totals; the others are still
// returned. In that case the error is a *errs.PartialFailure and the result
// is non-nil. Only a failure to list the user's groups aborts the call.
func (s *BalanceService) GetTotalBalances(ctx context.Context, userID string) (*TotalBalances, error) {
	if userID == "" {
		return nil, errs.Validationf("user_id", "is required")
	}
	start := time.Now()

	groups, err := s.store.ListGroupsForMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	// Slot len(groups) holds the direct pseudo-group.
	results := make([]*GroupBalance, len(groups)+1)
	var (
		mu       sync.Mutex
		failures []errs.GroupFailure
	)
	fail := func(groupID string, err error) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, errs.GroupFailure{GroupID: groupID, Err: err})
	}

	// Goroutines never return an error so that one failed group does not
	// cancel the others.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, group := range groups {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, s.timeout)
			defer cancel()
			balance, err := s.groupBalance(cctx, group, userID)
			if err != nil {
				fail(group.ID, err)
				return nil
			}
			results[i] = balance
			return nil
		})
	}
	g.Go(func() error {
		cctx, cancel := context.WithTimeout(gctx, s.timeout)
		defer cancel()
		balance, err := s.directBalance(cctx, userID)
		if err != nil {
			fail(DirectGroupID, err)
			return nil
		}
		results[len(groups)] = balance
		return nil
	})
	_ = g.Wait()

	total := &TotalBalances{
		UserID:    userID,
		YouOwe:    decimal.Zero,
		YoureOwed: decimal.Zero,
	}
	for _, b := range results {
		if b == nil {
			continue
		}
		total.Groups = append(total.Groups, b)
		total.YouOwe = total.YouOwe.Add(b.YouOwe)
		total.YoureOwed = total.YoureOwed.Add(b.YoureOwed)
	}

	s.metrics.BalanceAggregation(time.Since(start), len(failures))
	if len(failures) == 0 {
		return total, nil
	}

	// Failures arrive in completion order; report them in group order.
	total.Failed = orderFailures(failures, groups)
	for _, f := range total.Failed {
		slog.Warn("Group balance unavailable", "user_id", userID, "group_id", f.GroupID, "error", f.Err)
	}
	return total, &errs.PartialFailure{Failures: total.Failed}
}

func orderFailures(failures []errs.GroupFailure, groups []*models.Group) []errs.GroupFailure {
	byID := make(map[string]errs.GroupFailure, len(failures))
	for _, f := range failures {
		byID[f.GroupID] = f
	}
	ordered := make([]errs.GroupFailure, 0, len(failures))
	for _, g := range groups {
		if f, ok := byID[g.ID]; ok {
			ordered = append(ordered, f)
		}
	}
	if f, ok := byID[DirectGroupID]; ok {
		ordered = append(ordered, f)
	}
	return ordered
}

// CountNewActivity counts the user's pending settlements created after
// since by someone else, split by direction.
func (s *BalanceService) CountNewActivity(ctx context.Context, userID string, since int64) (Activity, error) {
	if userID == "" {
		return Activity{}, errs.Validationf("user_id", "is required")
	}
	settlements, err := s.store.ListSettlementsForParticipant(ctx, userID)
	if err != nil {
		return Activity{}, err
	}

	// Settlements do not record their author, so the owning transaction
	// is consulted once per transaction.
	createdBy := make(map[string]string)
	var activity Activity
	for _, st := range settlements {
		if !st.Pending() || st.CreatedAt <= since {
			continue
		}
		author, ok := createdBy[st.TransactionID]
		if !ok {
			txn, err := s.store.GetTransaction(ctx, st.TransactionID)
			if err != nil {
				return Activity{}, err
			}
			author = txn.CreatedBy
			createdBy[st.TransactionID] = author
		}
		if author == userID {
			continue
		}
		switch st.DirectionFor(userID) {
		case models.DirectionOwedToUser:
			activity.Incoming++
		case models.DirectionOwedByUser:
			activity.Outgoing++
		}
	}
	return activity, nil
}

func toObligations(settlements []*models.Settlement) []calculator.Obligation {
	out := make([]calculator.Obligation, len(settlements))
	for i, st := range settlements {
		out[i] = calculator.Obligation{
			DebtorID:   st.DebtorID,
			CreditorID: st.CreditorID,
			Amount:     st.Amount,
			Settled:    !st.Pending(),
		}
	}
	return out
}
