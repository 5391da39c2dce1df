package handler

import (
	"errors"
	"log"
	"net/http"

	"apipanel/internal/centralcash"
	"apipanel/internal/referral"

	"github.com/gin-gonic/gin"
)

type ReferralHandler struct {
	engine *referral.Engine
	cash   *centralcash.Ledger
}

func NewReferralHandler(engine *referral.Engine, cash *centralcash.Ledger) *ReferralHandler {
	return &ReferralHandler{engine: engine, cash: cash}
}

// Validate resolves a referral code to its owner.
// POST /referrals/validate
func (h *ReferralHandler) Validate(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	info, err := h.engine.ValidateCode(req.Code)
	if errors.Is(err, referral.ErrInvalidCode) {
		c.JSON(http.StatusOK, gin.H{"is_valid": false})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not validate code"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_valid": true, "referrer": info})
}

// Register adds a user to the directory and, when a referral code was
// submitted, creates the pending referral.
// POST /users
func (h *ReferralHandler) Register(c *gin.Context) {
	var req struct {
		ID                string `json:"id" binding:"required"`
		Login             string `json:"login"`
		Name              string `json:"name"`
		ReferralCode      string `json:"referral_code"`
		DeviceFingerprint string `json:"device_fingerprint"`
		IPAddress         string `json:"ip_address"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.RegisterUser(req.ID, req.Login, req.Name); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not register user"})
		return
	}
	if err := h.cash.RegisterUserActivity(req.ID, "cadastro"); err != nil {
		log.Printf("[referral] failed to register activity for %s: %v", req.ID, err)
	}
	referred := false
	if req.ReferralCode != "" {
		err := h.engine.CreatePendingReferral(req.ReferralCode, req.ID, referral.DeviceInfo{
			Fingerprint: req.DeviceFingerprint,
			IPAddress:   req.IPAddress,
		})
		switch {
		case err == nil:
			referred = true
		case errors.Is(err, referral.ErrInvalidCode),
			errors.Is(err, referral.ErrSelfReferral),
			errors.Is(err, referral.ErrAlreadyReferred),
			errors.Is(err, referral.ErrDuplicateDevice):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "registered": true})
			return
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create referral"})
			return
		}
	}
	c.JSON(http.StatusCreated, gin.H{"registered": true, "referred": referred})
}

// ProcessBonus distributes the signup bonus for the user's pending
// referral. Triggered when the account is activated (first PIX key).
// POST /users/:id/referral-bonus
func (h *ReferralHandler) ProcessBonus(c *gin.Context) {
	userID := c.Param("id")
	result, err := h.engine.ProcessBonus(userID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
	case errors.Is(err, referral.ErrNoPendingReferral):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "no pending referral"})
	case errors.Is(err, referral.ErrReferralExpired):
		c.JSON(http.StatusGone, gin.H{"success": false, "message": "referral expired"})
	default:
		log.Printf("[referral] bonus processing for %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "bonus processing failed"})
	}
}

// ListRecords returns all referral records (admin view).
// GET /admin/referrals
func (h *ReferralHandler) ListRecords(c *gin.Context) {
	records, err := h.engine.Records()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list referrals"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"referrals": records, "total": len(records)})
}
