package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/solatis/fraudkeeper/internal/types"
)

// evaluateTransaction ingests one transaction and returns the fraud events
// the active rule set produced for it.
func (s *Service) evaluateTransaction(c *gin.Context) {
	var record types.TransactionRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := s.pipeline.Evaluate(c.Request.Context(), &record)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactionId": record.TransactionID,
		"fraudEvents":   events,
	})
}

// listFraudEvents returns one page of the fraud event log. Page numbers are
// zero-based; size is clamped to the configured maximum.
func (s *Service) listFraudEvents(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a non-negative integer"})
		return
	}

	size, err := strconv.Atoi(c.DefaultQuery("size", "20"))
	if err != nil || size <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "size must be a positive integer"})
		return
	}
	if size > s.cfg.MaxPageSize {
		size = s.cfg.MaxPageSize
	}

	result, err := s.events.FindPage(c.Request.Context(), page, size)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Service) findFraudEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
		return
	}

	event, err := s.events.FindByID(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	if event == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "fraud event not found"})
		return
	}

	c.JSON(http.StatusOK, event)
}
