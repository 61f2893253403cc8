package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/solatis/fraudkeeper/internal/lifecycle"
)

// createRule stores the posted payload as the new active rule.
func (s *Service) createRule(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
		return
	}

	ruleID, err := s.rules.Create(c.Request.Context(), payload)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ruleId": ruleID})
}

// updateRule applies a partial update to the rule named in the path.
func (s *Service) updateRule(c *gin.Context) {
	var patch lifecycle.RulePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.rules.Update(c.Request.Context(), c.Param("id"), patch); err != nil {
		renderError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// deleteRule removes the rule when inactive; active rules are left in place.
func (s *Service) deleteRule(c *gin.Context) {
	if err := s.rules.Delete(c.Request.Context(), c.Param("id")); err != nil {
		renderError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Service) findRule(c *gin.Context) {
	rule, err := s.rules.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

func (s *Service) listRules(c *gin.Context) {
	all, err := s.rules.FindAll(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, all)
}

func (s *Service) activeRule(c *gin.Context) {
	rule, err := s.rules.FindActive(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}
