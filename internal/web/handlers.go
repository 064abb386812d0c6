package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sheikh-saqib/transaction-webhook-service/internal/ingest"
	"github.com/sheikh-saqib/transaction-webhook-service/internal/interfaces"
	"github.com/sheikh-saqib/transaction-webhook-service/internal/models"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "HEALTHY",
		"current_time": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleWebhook(c *gin.Context) {
	var payload models.TransactionIn
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	result, err := s.coordinator.Submit(c.Request.Context(), payload)
	if err != nil {
		if errors.Is(err, ingest.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		s.logger.Error("submit failed", "transaction_id", payload.TransactionID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "failed to accept transaction"})
		return
	}

	if result == ingest.ResultDuplicate {
		c.JSON(http.StatusOK, gin.H{"message": "Duplicate transaction ignored"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Transaction accepted for processing"})
}

func (s *Server) handleGetTransaction(c *gin.Context) {
	transactionID := c.Param("transaction_id")

	record, err := s.coordinator.Get(c.Request.Context(), transactionID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Transaction not found"})
			return
		}
		s.logger.Error("lookup failed", "transaction_id", transactionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to load transaction"})
		return
	}

	c.JSON(http.StatusOK, record)
}
