package handler

import (
	"net/http"

	"apipanel/config"
	"apipanel/internal/auth"
	"apipanel/internal/domain"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	cfg *config.JWTConfig
}

func NewAuthHandler(cfg *config.JWTConfig) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

// Token exchanges the shared API key for a service JWT.
// POST /auth/token
func (h *AuthHandler) Token(c *gin.Context) {
	var req struct {
		APIKey  string `json:"api_key" binding:"required"`
		Service string `json:"service" binding:"required"`
		Role    string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.APIKey != h.cfg.APIKey {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
		return
	}
	role := req.Role
	if role != domain.RoleAdmin {
		role = domain.RoleService
	}
	token, err := auth.GenerateToken(h.cfg, req.Service, role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "role": role})
}
