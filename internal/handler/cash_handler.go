package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"apipanel/internal/centralcash"
	"apipanel/internal/domain"
	"apipanel/internal/ledger"
	"apipanel/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CashHandler struct {
	cash   *centralcash.Ledger
	ledger *ledger.Ledger
}

func NewCashHandler(cash *centralcash.Ledger, bal *ledger.Ledger) *CashHandler {
	return &CashHandler{cash: cash, ledger: bal}
}

// Stats returns the aggregate central cash view. Pass ?recompute=true
// to rebuild the running totals from the journal first.
// GET /admin/cash/stats
func (h *CashHandler) Stats(c *gin.Context) {
	var (
		stats models.CashStats
		err   error
	)
	if c.Query("recompute") == "true" {
		stats, err = h.cash.RecomputeStats()
	} else {
		stats, err = h.cash.Stats()
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Transactions returns the journal, optionally filtered by type and by
// an RFC 3339 [from, to) window.
// GET /admin/cash/transactions?type=&from=&to=
func (h *CashHandler) Transactions(c *gin.Context) {
	var (
		entries []models.CashEntry
		err     error
	)
	if from, to := c.Query("from"), c.Query("to"); from != "" || to != "" {
		start, end, perr := parsePeriod(from, to)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": perr.Error()})
			return
		}
		entries, err = h.cash.TransactionsByPeriod(start, end)
	} else {
		entries, err = h.cash.Transactions()
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load transactions"})
		return
	}
	if t := c.Query("type"); t != "" {
		filtered := make([]models.CashEntry, 0, len(entries))
		for _, e := range entries {
			if e.Type == t {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	if entries == nil {
		entries = []models.CashEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"transactions": entries, "total": len(entries)})
}

func parsePeriod(from, to string) (time.Time, time.Time, error) {
	start := time.Time{}
	end := time.Now().AddDate(100, 0, 0)
	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid from date")
		}
		start = t
	}
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid to date")
		}
		end = t
	}
	return start, end, nil
}

// Revenue returns daily revenue buckets for the last N days.
// GET /admin/cash/revenue?days=7
func (h *CashHandler) Revenue(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
		return
	}
	buckets, err := h.cash.RevenueByPeriod(days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not compute revenue"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"revenue": buckets})
}

// Adjust journals a signed manual correction to the central cash.
// POST /admin/cash/adjust
func (h *CashHandler) Adjust(c *gin.Context) {
	var req struct {
		Amount decimal.Decimal `json:"amount" binding:"required"`
		Reason string          `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry, err := h.cash.Add(models.CashEntry{
		Type:        domain.CashAdjustment,
		UserID:      c.GetString("service"),
		Amount:      req.Amount,
		Description: req.Reason,
		Detail:      models.CashDetail{Adjustment: &models.AdjustmentDetail{Reason: req.Reason}},
	})
	if err != nil {
		if errors.Is(err, centralcash.ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be non-zero"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record adjustment"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// Withdraw debits a user's wallet and journals the payout.
// POST /admin/cash/withdrawals
func (h *CashHandler) Withdraw(c *gin.Context) {
	var req struct {
		UserID string          `json:"user_id" binding:"required"`
		Amount decimal.Decimal `json:"amount" binding:"required"`
		PixKey string          `json:"pix_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	orderID := uuid.NewString()
	if err := h.ledger.Debit(req.UserID, domain.BalanceWallet, req.Amount, "Saque via PIX", orderID); err != nil {
		writeLedgerError(c, err)
		return
	}
	entry, err := h.cash.Add(models.CashEntry{
		Type:        domain.CashWithdrawal,
		UserID:      req.UserID,
		Amount:      req.Amount,
		Description: "Saque via PIX",
		Detail:      models.CashDetail{Withdrawal: &models.WithdrawalDetail{PixKey: req.PixKey}},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record withdrawal"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry, "order_id": orderID})
}

// Activity returns the recent user-activity journal.
// GET /admin/activity
func (h *CashHandler) Activity(c *gin.Context) {
	entries, err := h.cash.Activity()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load activity"})
		return
	}
	if entries == nil {
		entries = []models.UserActivity{}
	}
	c.JSON(http.StatusOK, gin.H{"activity": entries, "total": len(entries)})
}
