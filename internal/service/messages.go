package service

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
)

// Wire messages. Monetary values travel as decimal strings with two digits
// of precision, timestamps as Unix seconds.

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	CreatedAt   int64  `json:"created_at,omitempty"`
}

type Member struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	UserID      string `json:"user_id,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

type Group struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Members    []*Member `json:"members"`
	CreatedAt  int64     `json:"created_at"`
	Archived   bool      `json:"archived,omitempty"`
	ArchivedAt int64     `json:"archived_at,omitempty"`
}

// Strategy is the wire form of a split strategy. Amounts is read for
// "custom" and Shares for "share"; an empty Kind means an even split.
type Strategy struct {
	Kind    string            `json:"kind"`
	Amounts map[string]string `json:"amounts,omitempty"`
	Shares  map[string]int64  `json:"shares,omitempty"`
}

type Share struct {
	ParticipantID string `json:"participant_id"`
	Amount        string `json:"amount"`
}

type Settlement struct {
	ID                    string `json:"id"`
	TransactionID         string `json:"transaction_id"`
	GroupID               string `json:"group_id,omitempty"`
	DebtorID              string `json:"debtor_id"`
	CreditorID            string `json:"creditor_id"`
	Amount                string `json:"amount"`
	Status                string `json:"status"`
	CreatedAt             int64  `json:"created_at"`
	SettledAt             int64  `json:"settled_at,omitempty"`
	SettledBy             string `json:"settled_by,omitempty"`
	PersonalTransactionID string `json:"personal_transaction_id,omitempty"`

	// Direction is relative to the caller: owed_to_user, owed_by_user or none.
	Direction string `json:"direction"`
}

type Transaction struct {
	ID           string        `json:"id"`
	GroupID      string        `json:"group_id,omitempty"`
	Title        string        `json:"title"`
	Amount       string        `json:"amount"`
	Category     string        `json:"category"`
	PayerID      string        `json:"payer_id"`
	CreatedBy    string        `json:"created_by"`
	Kind         string        `json:"kind"`
	Direction    string        `json:"direction"`
	Strategy     *Strategy     `json:"strategy,omitempty"`
	SplitBetween []string      `json:"split_between,omitempty"`
	PayerShare   string        `json:"payer_share"`
	CreatedAt    int64         `json:"created_at"`
	Settlements  []*Settlement `json:"settlements"`
}

type PairBalance struct {
	CounterpartyID string `json:"counterparty_id"`
	Net            string `json:"net"`
	YouOwe         string `json:"you_owe"`
	OwedToYou      string `json:"owed_to_you"`
}

type DebtEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type GroupBalance struct {
	GroupID        string         `json:"group_id"`
	GroupName      string         `json:"group_name"`
	Archived       bool           `json:"archived,omitempty"`
	Counterparties []*PairBalance `json:"counterparties"`
	YouOwe         string         `json:"you_owe"`
	YoureOwed      string         `json:"youre_owed"`
	Suggested      []*DebtEdge    `json:"suggested"`
}

type FailedGroup struct {
	GroupID string `json:"group_id"`
	Error   string `json:"error"`
}

// TransactionService messages.

type PreviewSplitRequest struct {
	Amount       string    `json:"amount"`
	Participants []string  `json:"participants"`
	Strategy     *Strategy `json:"strategy,omitempty"`
}

type PreviewSplitResponse struct {
	Shares []*Share `json:"shares"`
	Total  string   `json:"total"`
}

type CreateTransactionRequest struct {
	ID           string    `json:"id,omitempty"`
	Kind         string    `json:"kind"`
	Direction    string    `json:"direction,omitempty"`
	GroupID      string    `json:"group_id,omitempty"`
	Title        string    `json:"title,omitempty"`
	Category     string    `json:"category,omitempty"`
	Amount       string    `json:"amount"`
	PayerID      string    `json:"payer_id,omitempty"`
	Participants []string  `json:"participants,omitempty"`
	Strategy     *Strategy `json:"strategy,omitempty"`
}

type CreateTransactionResponse struct {
	Transaction *Transaction `json:"transaction"`
}

type GetTransactionRequest struct {
	TransactionID string `json:"transaction_id"`
}

type GetTransactionResponse struct {
	Transaction *Transaction `json:"transaction"`
}

type ListTransactionsRequest struct {
	GroupID string `json:"group_id"`
}

type ListTransactionsResponse struct {
	Transactions []*Transaction `json:"transactions"`
}

type DeleteTransactionRequest struct {
	TransactionID string `json:"transaction_id"`
}

type DeleteTransactionResponse struct{}

type RecordRepaymentRequest struct {
	SettlementID          string `json:"settlement_id"`
	PersonalTransactionID string `json:"personal_transaction_id,omitempty"`
}

type RecordRepaymentResponse struct {
	Settlement *Settlement `json:"settlement"`
}

type GetTotalBalancesRequest struct{}

type GetTotalBalancesResponse struct {
	Groups    []*GroupBalance `json:"groups"`
	YouOwe    string          `json:"you_owe"`
	YoureOwed string          `json:"youre_owed"`

	// FailedGroups lists groups left out of the totals because they could
	// not be loaded.
	FailedGroups []*FailedGroup `json:"failed_groups,omitempty"`
}

type CountNewActivityRequest struct {
	Since int64 `json:"since"`
}

type CountNewActivityResponse struct {
	Incoming int `json:"incoming"`
	Outgoing int `json:"outgoing"`
	Total    int `json:"total"`
}

// GroupService messages.

type CreateGroupRequest struct {
	Name    string    `json:"name"`
	Members []*Member `json:"members"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupResponse struct {
	Group *Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

type AddMembersRequest struct {
	GroupID string    `json:"group_id"`
	Members []*Member `json:"members"`
}

type AddMembersResponse struct {
	Group *Group `json:"group"`
}

type ArchiveGroupRequest struct {
	GroupID string `json:"group_id"`
}

type ArchiveGroupResponse struct {
	Group *Group `json:"group"`
}

type RestoreGroupRequest struct {
	GroupID string `json:"group_id"`
}

type RestoreGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupBalancesResponse struct {
	Balance *GroupBalance `json:"balance"`
}

// AuthService messages.

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type RegisterResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

// Conversions.

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Decimal{}, errs.Validationf(field, "is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errs.Validationf(field, "invalid amount %q", s)
	}
	return d, nil
}

func strategyFromMessage(m *Strategy) (models.SplitStrategy, error) {
	if m == nil {
		return nil, nil
	}
	switch models.StrategyKind(m.Kind) {
	case "", models.StrategyEven:
		return models.EvenSplit{}, nil
	case models.StrategyCustom:
		amounts := make(map[string]decimal.Decimal, len(m.Amounts))
		for id, s := range m.Amounts {
			d, err := parseAmount("strategy.amounts."+id, s)
			if err != nil {
				return nil, err
			}
			amounts[id] = d
		}
		custom, err := models.NewCustomSplit(amounts)
		if err != nil {
			return nil, errs.Validationf("strategy", "%v", err)
		}
		return custom, nil
	case models.StrategyShare:
		shares, err := models.NewShareSplit(m.Shares)
		if err != nil {
			return nil, errs.Validationf("strategy", "%v", err)
		}
		return shares, nil
	}
	return nil, errs.Validationf("strategy.kind", "unknown strategy %q", m.Kind)
}

func toStrategyMessage(s models.SplitStrategy) *Strategy {
	switch v := s.(type) {
	case models.CustomSplit:
		amounts := make(map[string]string, len(v.Amounts))
		for id, d := range v.Amounts {
			amounts[id] = money(d)
		}
		return &Strategy{Kind: string(v.Kind()), Amounts: amounts}
	case models.ShareSplit:
		return &Strategy{Kind: string(v.Kind()), Shares: v.Shares}
	case models.EvenSplit:
		return &Strategy{Kind: string(v.Kind())}
	}
	return nil
}

func toUserMessage(u *models.User) *User {
	return &User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

func toGroupMessage(g *models.Group) *Group {
	members := make([]*Member, len(g.Members))
	for i, m := range g.Members {
		members[i] = &Member{
			ID:          m.ID,
			DisplayName: m.DisplayName,
			UserID:      m.UserID,
			Phone:       m.Phone,
		}
	}
	return &Group{
		ID:         g.ID,
		Name:       g.Name,
		Members:    members,
		CreatedAt:  g.CreatedAt,
		Archived:   g.Archived,
		ArchivedAt: g.ArchivedAt,
	}
}

func membersFromMessage(in []*Member) []models.Member {
	out := make([]models.Member, 0, len(in))
	for _, m := range in {
		if m == nil {
			continue
		}
		out = append(out, models.Member{
			ID:          m.ID,
			DisplayName: m.DisplayName,
			UserID:      m.UserID,
			Phone:       m.Phone,
		})
	}
	return out
}

func toSettlementMessage(s *models.Settlement, callerID string) *Settlement {
	return &Settlement{
		ID:                    s.ID,
		TransactionID:         s.TransactionID,
		GroupID:               s.GroupID,
		DebtorID:              s.DebtorID,
		CreditorID:            s.CreditorID,
		Amount:                money(s.Amount),
		Status:                string(s.Status),
		CreatedAt:             s.CreatedAt,
		SettledAt:             s.SettledAt,
		SettledBy:             s.SettledBy,
		PersonalTransactionID: s.PersonalTransactionID,
		Direction:             string(s.DirectionFor(callerID)),
	}
}

func toTransactionMessage(t *models.Transaction, callerID string) *Transaction {
	settlements := make([]*Settlement, len(t.Settlements))
	for i, s := range t.Settlements {
		settlements[i] = toSettlementMessage(s, callerID)
	}
	return &Transaction{
		ID:           t.ID,
		GroupID:      t.GroupID,
		Title:        t.Title,
		Amount:       money(t.Amount),
		Category:     t.Category,
		PayerID:      t.PayerID,
		CreatedBy:    t.CreatedBy,
		Kind:         string(t.Kind),
		Direction:    string(t.Direction),
		Strategy:     toStrategyMessage(t.Strategy),
		SplitBetween: t.SplitBetween,
		PayerShare:   money(t.PayerShare),
		CreatedAt:    t.CreatedAt,
		Settlements:  settlements,
	}
}

func toSharesMessage(alloc calculator.Allocation) []*Share {
	out := make([]*Share, len(alloc))
	for i, s := range alloc {
		out[i] = &Share{ParticipantID: s.ParticipantID, Amount: money(s.Amount)}
	}
	return out
}

func toGroupBalanceMessage(b *ledger.GroupBalance) *GroupBalance {
	pairs := make([]*PairBalance, len(b.Counterparties))
	for i, p := range b.Counterparties {
		pairs[i] = &PairBalance{
			CounterpartyID: p.CounterpartyID,
			Net:            money(p.Net),
			YouOwe:         money(p.YouOwe),
			OwedToYou:      money(p.OwedToYou),
		}
	}
	edges := make([]*DebtEdge, len(b.Suggested))
	for i, e := range b.Suggested {
		edges[i] = &DebtEdge{From: e.From, To: e.To, Amount: money(e.Amount)}
	}
	return &GroupBalance{
		GroupID:        b.GroupID,
		GroupName:      b.GroupName,
		Archived:       b.Archived,
		Counterparties: pairs,
		YouOwe:         money(b.YouOwe),
		YoureOwed:      money(b.YoureOwed),
		Suggested:      edges,
	}
}

func toFailedGroups(failures []errs.GroupFailure) []*FailedGroup {
	out := make([]*FailedGroup, len(failures))
	for i, f := range failures {
		out[i] = &FailedGroup{GroupID: f.GroupID, Error: f.Err.Error()}
	}
	return out
}
