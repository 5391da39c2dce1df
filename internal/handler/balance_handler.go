package handler

import (
	"errors"
	"log"
	"net/http"

	"apipanel/internal/centralcash"
	"apipanel/internal/domain"
	"apipanel/internal/events"
	"apipanel/internal/ledger"
	"apipanel/internal/models"
	"apipanel/internal/referral"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type BalanceHandler struct {
	ledger *ledger.Ledger
	cash   *centralcash.Ledger
	engine *referral.Engine
	bus    events.Bus
}

func NewBalanceHandler(bal *ledger.Ledger, cash *centralcash.Ledger, engine *referral.Engine, bus events.Bus) *BalanceHandler {
	return &BalanceHandler{ledger: bal, cash: cash, engine: engine, bus: bus}
}

// GetBalance returns the user's wallet and plan balances plus the
// active plan name.
// GET /users/:id/balance
func (h *BalanceHandler) GetBalance(c *gin.Context) {
	userID := c.Param("id")
	wallet, err := h.ledger.Balance(userID, domain.BalanceWallet)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "balance error"})
		return
	}
	plan, err := h.ledger.Balance(userID, domain.BalancePlan)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "balance error"})
		return
	}
	planName, err := h.ledger.ActivePlan(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "balance error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":        userID,
		"wallet_balance": wallet,
		"plan_balance":   plan,
		"total":          wallet.Add(plan),
		"active_plan":    planName,
	})
}

// GetTransactions returns the user's audit log, newest first.
// GET /users/:id/transactions
func (h *BalanceHandler) GetTransactions(c *gin.Context) {
	userID := c.Param("id")
	txs, err := h.ledger.Transactions(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load transactions"})
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs, "total": len(txs)})
}

// Recharge credits the wallet, journals the recharge to central cash
// and pays the referrer's commission when one applies.
// POST /users/:id/recharge
func (h *BalanceHandler) Recharge(c *gin.Context) {
	userID := c.Param("id")
	var req struct {
		Amount        decimal.Decimal `json:"amount" binding:"required"`
		Method        string          `json:"method"`
		PixKey        string          `json:"pix_key"`
		TransactionID string          `json:"transaction_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.ledger.Credit(userID, domain.BalanceWallet, req.Amount, "Recarga de saldo", ""); err != nil {
		writeLedgerError(c, err)
		return
	}
	if _, err := h.cash.Add(models.CashEntry{
		Type:        domain.CashRecharge,
		UserID:      userID,
		Amount:      req.Amount,
		Description: "Recarga de saldo",
		Detail: models.CashDetail{Recharge: &models.RechargeDetail{
			Method:        req.Method,
			PixKey:        req.PixKey,
			TransactionID: req.TransactionID,
		}},
	}); err != nil {
		log.Printf("[balance] failed to journal recharge for %s: %v", userID, err)
	}
	if err := h.cash.RegisterUserActivity(userID, domain.CashRecharge); err != nil {
		log.Printf("[balance] failed to register activity for %s: %v", userID, err)
	}

	commission, err := h.engine.ProcessRechargeCommission(userID, req.Amount)
	if err != nil {
		log.Printf("[balance] recharge commission for %s: %v", userID, err)
	}

	if h.bus != nil {
		h.bus.Publish(c.Request.Context(), events.Event{
			Name: domain.EventBalanceRechargeUpdated,
			Data: map[string]any{
				"user_id":        userID,
				"should_animate": true,
				"amount":         req.Amount.String(),
				"method":         req.Method,
			},
		})
	}

	wallet, _ := h.ledger.Balance(userID, domain.BalanceWallet)
	resp := gin.H{"wallet_balance": wallet}
	if commission != nil {
		resp["commission"] = commission
	}
	c.JSON(http.StatusOK, resp)
}

// Deduct debits the combined available balance, wallet first.
// POST /users/:id/deduct
func (h *BalanceHandler) Deduct(c *gin.Context) {
	userID := c.Param("id")
	var req struct {
		Amount         decimal.Decimal `json:"amount" binding:"required"`
		Description    string          `json:"description"`
		ConsultationID string          `json:"consultation_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Description == "" {
		req.Description = "Consulta"
	}
	if err := h.ledger.DeductFromAvailable(userID, req.Amount, req.Description, req.ConsultationID); err != nil {
		writeLedgerError(c, err)
		return
	}
	wallet, _ := h.ledger.Balance(userID, domain.BalanceWallet)
	plan, _ := h.ledger.Balance(userID, domain.BalancePlan)
	c.JSON(http.StatusOK, gin.H{"wallet_balance": wallet, "plan_balance": plan})
}

// BuyPlan purchases a plan with wallet funds and journals the sale.
// POST /users/:id/plan
func (h *BalanceHandler) BuyPlan(c *gin.Context) {
	userID := c.Param("id")
	var req struct {
		PlanName string          `json:"plan_name" binding:"required"`
		Price    decimal.Decimal `json:"price" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.ledger.BuyPlanWithWallet(userID, req.PlanName, req.Price); err != nil {
		writeLedgerError(c, err)
		return
	}
	if _, err := h.cash.Add(models.CashEntry{
		Type:        domain.CashPlanSale,
		UserID:      userID,
		Amount:      req.Price,
		Description: "Compra do plano " + req.PlanName,
		Detail:      models.CashDetail{PlanSale: &models.PlanSaleDetail{PlanName: req.PlanName}},
	}); err != nil {
		log.Printf("[balance] failed to journal plan sale for %s: %v", userID, err)
	}
	if err := h.cash.RegisterUserActivity(userID, domain.CashPlanSale); err != nil {
		log.Printf("[balance] failed to register activity for %s: %v", userID, err)
	}
	plan, _ := h.ledger.Balance(userID, domain.BalancePlan)
	c.JSON(http.StatusOK, gin.H{"plan_balance": plan, "active_plan": req.PlanName})
}

func writeLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "insufficient balance"})
	case errors.Is(err, ledger.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ledger error"})
	}
}
