package server

import (
	"crypto/hmac"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"expo-registration/internal/models"
	"expo-registration/internal/sheets"
	"expo-registration/internal/store"
	"expo-registration/internal/util"
)

// handleStats serves registration counters, cached for StatsCacheTTL so the
// dashboard can poll without hammering the database.
func (s *Server) handleStats(c *gin.Context) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	if time.Since(s.statsAt) > s.cfg.StatsCacheTTL {
		st, err := s.store.Stats(c.Request.Context())
		if err != nil {
			s.log.Error().Err(err).Msg("stats query failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		s.stats = st
		s.statsAt = time.Now()
	}
	c.JSON(http.StatusOK, s.stats)
}

func (s *Server) handleSearch(c *gin.Context) {
	var (
		reg models.Registration
		err error
	)
	switch {
	case c.Query("registration_id") != "":
		reg, err = s.store.FindByRegistrationID(c.Request.Context(), c.Query("registration_id"))
	case c.Query("phone") != "":
		phone := c.Query("phone")
		if p, perr := util.NormalizePhone(phone); perr == nil {
			phone = p
		}
		reg, err = s.store.FindByPhone(c.Request.Context(), phone)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone or registration_id is required"})
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "registration not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// Admin surface returns the full record, not just the public subset.
	c.JSON(http.StatusOK, gin.H{"registration": reg})
}

type checkInRequest struct {
	RegistrationID string `json:"registration_id" binding:"required"`
}

func (s *Server) handleCheckIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "registration_id is required"})
		return
	}
	reg, err := s.store.CheckIn(c.Request.Context(), req.RegistrationID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "registration not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.log.Info().Str("registration_id", req.RegistrationID).Msg("checked in")
	c.JSON(http.StatusOK, gin.H{"registration": reg})
}

type undoCheckInRequest struct {
	RegistrationID string `json:"registration_id" binding:"required"`
	Secret         string `json:"secret" binding:"required"`
}

// handleUndoCheckIn requires the admin secret re-entered in the body as a
// second factor; undo is destructive enough to warrant the extra step.
func (s *Server) handleUndoCheckIn(c *gin.Context) {
	var req undoCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "registration_id and secret are required"})
		return
	}
	if !hmac.Equal([]byte(req.Secret), []byte(s.cfg.AdminSecret)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "secret confirmation mismatch"})
		return
	}
	reg, err := s.store.UndoCheckIn(c.Request.Context(), req.RegistrationID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "registration not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.log.Info().Str("registration_id", req.RegistrationID).Msg("check-in undone")
	c.JSON(http.StatusOK, gin.H{"registration": reg})
}

// handleExport streams all registrations as CSV, schema order.
func (s *Server) handleExport(c *gin.Context) {
	regs, err := s.store.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="registrations_%s.csv"`,
		time.Now().Format("2006-01-02")))

	// Headers are already sent, so a mid-stream failure can only be logged:
	// the client sees a truncated file, the log says why.
	if err := writeCSV(c.Writer, regs); err != nil {
		s.log.Error().Err(err).Int("rows", len(regs)).Msg("csv export truncated")
	}
}

func writeCSV(w io.Writer, regs []models.Registration) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rowToStrings(sheets.HeaderRow())); err != nil {
		return err
	}
	for _, reg := range regs {
		if err := cw.Write(rowToStrings(sheets.FormatRow(reg))); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// handleSync triggers a reconciler pass on demand; ?full=1 forces the
// clear-and-rewrite rebuild instead of the incremental run.
func (s *Server) handleSync(c *gin.Context) {
	if c.Query("full") == "1" {
		n, err := s.rec.Rebuild(c.Request.Context())
		if err != nil {
			s.log.Error().Err(err).Msg("manual rebuild failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"full": true, "rows": n})
		return
	}
	res, err := s.rec.Run(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("manual sync failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"full": false, "appended": res.Appended, "updated": res.Updated})
}

func rowToStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = fmt.Sprint(v)
	}
	return out
}
