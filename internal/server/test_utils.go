package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type testCleanupRequest struct {
	Prefix string `json:"prefix"`
}

// TestCleanup removes every agency whose slug starts with the given prefix,
// together with its billing and ledger data. E2E suites call it between
// runs; it does not exist in production.
func (s *Server) TestCleanup(c *gin.Context) {
	if s.cfg.IsProduction() {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req testCleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	prefix := strings.TrimSpace(req.Prefix)
	if prefix == "" {
		AbortWithError(c, newValidationError("prefix", "missing_prefix", "prefix is required"))
		return
	}

	ctx := c.Request.Context()
	agencyIDs, err := s.loadAgencyIDsByPrefix(ctx, prefix)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.deleteAgencyData(ctx, agencyIDs); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "agencies_removed": len(agencyIDs)})
}

func (s *Server) loadAgencyIDsByPrefix(ctx context.Context, prefix string) ([]int64, error) {
	like := strings.TrimSpace(prefix) + "%"
	var agencyIDs []int64
	if err := s.db.WithContext(ctx).
		Table("agencies").
		Select("id").
		Where("slug LIKE ?", like).
		Scan(&agencyIDs).Error; err != nil {
		return nil, err
	}
	return agencyIDs, nil
}

// deleteAgencyData removes agency-scoped rows children first. Batch files
// are channel-wide, not agency-scoped, so they stay; their items lose
// nothing because attempt references are plain columns, not constraints.
func (s *Server) deleteAgencyData(ctx context.Context, agencyIDs []int64) error {
	if len(agencyIDs) == 0 {
		return nil
	}
	queries := []string{
		`DELETE FROM collection_attempts WHERE charge_id IN (SELECT id FROM charges WHERE agency_id IN ?)`,
		`DELETE FROM ledger_entry_lines WHERE ledger_entry_id IN (SELECT id FROM ledger_entries WHERE agency_id IN ?)`,
		`DELETE FROM ledger_entries WHERE agency_id IN ?`,
		`DELETE FROM ledger_accounts WHERE agency_id IN ?`,
		`DELETE FROM billing_events WHERE agency_id IN ?`,
		`DELETE FROM audit_logs WHERE agency_id IN ?`,
		`DELETE FROM charges WHERE agency_id IN ?`,
		`DELETE FROM billing_cycles WHERE agency_id IN ?`,
		`DELETE FROM debit_mandates WHERE agency_id IN ?`,
		`DELETE FROM agencies WHERE id IN ?`,
	}
	for _, query := range queries {
		if err := s.db.WithContext(ctx).Exec(query, agencyIDs).Error; err != nil {
			return err
		}
	}
	return nil
}
