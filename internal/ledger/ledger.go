package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"apipanel/internal/domain"
	"apipanel/internal/events"
	"apipanel/internal/models"
	"apipanel/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrUnknownBalanceKind  = errors.New("unknown balance kind")
)

// Ledger keeps per-user wallet and plan balances with an append-only
// audit log. Every public operation runs under a per-user mutex, so a
// logical operation's reads and writes cannot interleave with another
// caller's for the same user.
type Ledger struct {
	store storage.Store
	bus   events.Bus

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(store storage.Store, bus events.Bus) *Ledger {
	return &Ledger{store: store, bus: bus, locks: make(map[string]*sync.Mutex)}
}

func (l *Ledger) userLock(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk, ok := l.locks[userID]
	if !ok {
		lk = &sync.Mutex{}
		l.locks[userID] = lk
	}
	return lk
}

func balanceKey(userID, kind string) (string, error) {
	switch kind {
	case domain.BalanceWallet:
		return storage.WalletBalanceKey(userID), nil
	case domain.BalancePlan:
		return storage.PlanBalanceKey(userID), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBalanceKind, kind)
	}
}

// readBalance returns the stored balance, defaulting to zero when the
// key is absent. New accounts come into existence on first read.
func (l *Ledger) readBalance(userID, kind string) (decimal.Decimal, error) {
	key, err := balanceKey(userID, kind)
	if err != nil {
		return decimal.Zero, err
	}
	var amount decimal.Decimal
	ok, err := storage.GetJSON(l.store, key, &amount)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, nil
	}
	return amount, nil
}

func (l *Ledger) writeBalance(userID, kind string, amount decimal.Decimal) error {
	key, err := balanceKey(userID, kind)
	if err != nil {
		return err
	}
	return storage.SetJSON(l.store, key, amount)
}

// appendTransaction prepends to the user's audit log (newest-first, like
// the central cash journal).
func (l *Ledger) appendTransaction(tx models.Transaction) error {
	key := storage.TransactionsKey(tx.UserID)
	var log []models.Transaction
	if _, err := storage.GetJSON(l.store, key, &log); err != nil {
		return err
	}
	log = append([]models.Transaction{tx}, log...)
	return storage.SetJSON(l.store, key, log)
}

// apply performs one credit or debit. Caller must hold the user lock.
func (l *Ledger) apply(userID, kind string, amount decimal.Decimal, txType, description, consultationID string) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	current, err := l.readBalance(userID, kind)
	if err != nil {
		return decimal.Zero, err
	}
	var next decimal.Decimal
	switch txType {
	case domain.TxCredit:
		next = current.Add(amount)
	case domain.TxDebit:
		if current.LessThan(amount) {
			return decimal.Zero, ErrInsufficientBalance
		}
		next = current.Sub(amount)
	default:
		return decimal.Zero, fmt.Errorf("unknown transaction type %q", txType)
	}
	if err := l.writeBalance(userID, kind, next); err != nil {
		return decimal.Zero, err
	}
	if err := l.appendTransaction(models.Transaction{
		ID:              uuid.NewString(),
		UserID:          userID,
		Amount:          amount,
		Type:            txType,
		Description:     description,
		Date:            time.Now(),
		BalanceType:     kind,
		PreviousBalance: current,
		NewBalance:      next,
		ConsultationID:  consultationID,
	}); err != nil {
		return decimal.Zero, err
	}
	return next, nil
}

func (l *Ledger) publish(name string, data map[string]any) {
	if l.bus == nil {
		return
	}
	l.bus.Publish(context.Background(), events.Event{Name: name, Data: data})
}

// Balance returns the current balance of the given kind, zero for
// accounts that have never been touched.
func (l *Ledger) Balance(userID, kind string) (decimal.Decimal, error) {
	lk := l.userLock(userID)
	lk.Lock()
	defer lk.Unlock()
	return l.readBalance(userID, kind)
}

func (l *Ledger) Credit(userID, kind string, amount decimal.Decimal, description, consultationID string) error {
	lk := l.userLock(userID)
	lk.Lock()
	defer lk.Unlock()
	if _, err := l.apply(userID, kind, amount, domain.TxCredit, description, consultationID); err != nil {
		return err
	}
	l.publish(domain.EventBalanceUpdated, map[string]any{
		"user_id":        userID,
		"should_animate": true,
		"amount":         amount.String(),
	})
	return nil
}

func (l *Ledger) Debit(userID, kind string, amount decimal.Decimal, description, consultationID string) error {
	lk := l.userLock(userID)
	lk.Lock()
	defer lk.Unlock()
	if _, err := l.apply(userID, kind, amount, domain.TxDebit, description, consultationID); err != nil {
		return err
	}
	l.publish(domain.EventBalanceUpdated, map[string]any{
		"user_id":        userID,
		"should_animate": false,
		"amount":         amount.String(),
	})
	return nil
}

// DeductFromAvailable debits amount across both balances, wallet first,
// spilling the remainder into the plan balance. Fails without mutating
// anything when the combined funds are short.
func (l *Ledger) DeductFromAvailable(userID string, amount decimal.Decimal, description, consultationID string) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	lk := l.userLock(userID)
	lk.Lock()
	defer lk.Unlock()

	wallet, err := l.readBalance(userID, domain.BalanceWallet)
	if err != nil {
		return err
	}
	plan, err := l.readBalance(userID, domain.BalancePlan)
	if err != nil {
		return err
	}
	if wallet.Add(plan).LessThan(amount) {
		return ErrInsufficientBalance
	}
	fromWallet := decimal.Min(wallet, amount)
	fromPlan := amount.Sub(fromWallet)
	if fromWallet.Sign() > 0 {
		if _, err := l.apply(userID, domain.BalanceWallet, fromWallet, domain.TxDebit, description, consultationID); err != nil {
			return err
		}
	}
	if fromPlan.Sign() > 0 {
		if _, err := l.apply(userID, domain.BalancePlan, fromPlan, domain.TxDebit, description, consultationID); err != nil {
			return err
		}
	}
	l.publish(domain.EventBalanceUpdated, map[string]any{
		"user_id":        userID,
		"should_animate": false,
		"amount":         amount.String(),
	})
	return nil
}

// BuyPlanWithWallet moves price from the wallet into the plan balance
// and records the purchased plan as the user's active plan.
func (l *Ledger) BuyPlanWithWallet(userID, planName string, price decimal.Decimal) error {
	if price.Sign() <= 0 {
		return ErrInvalidAmount
	}
	lk := l.userLock(userID)
	lk.Lock()
	defer lk.Unlock()

	wallet, err := l.readBalance(userID, domain.BalanceWallet)
	if err != nil {
		return err
	}
	if wallet.LessThan(price) {
		return ErrInsufficientBalance
	}
	if _, err := l.apply(userID, domain.BalanceWallet, price, domain.TxDebit, "Compra do plano "+planName, ""); err != nil {
		return err
	}
	if _, err := l.apply(userID, domain.BalancePlan, price, domain.TxCredit, "Crédito do plano "+planName, ""); err != nil {
		return err
	}
	if err := storage.SetJSON(l.store, storage.ActivePlanKey(userID), planName); err != nil {
		return err
	}
	l.publish(domain.EventPlanBalanceUpdated, map[string]any{
		"amount":    price.String(),
		"plan_name": planName,
	})
	return nil
}

// Transactions returns the user's audit log, newest first.
func (l *Ledger) Transactions(userID string) ([]models.Transaction, error) {
	var log []models.Transaction
	if _, err := storage.GetJSON(l.store, storage.TransactionsKey(userID), &log); err != nil {
		return nil, err
	}
	return log, nil
}

// ActivePlan returns the user's current plan name, empty if none.
func (l *Ledger) ActivePlan(userID string) (string, error) {
	var name string
	if _, err := storage.GetJSON(l.store, storage.ActivePlanKey(userID), &name); err != nil {
		return "", err
	}
	return name, nil
}
