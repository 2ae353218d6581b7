// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"docket-scan/internal/docket"
	"docket-scan/internal/engine"
	"docket-scan/internal/formatters"
	"docket-scan/internal/paths"
	"docket-scan/internal/store"
	"docket-scan/internal/version"

	"github.com/gin-gonic/gin"
)

// Upload cap, prevents memory exhaustion from oversized batches
const maxUploadBytes = 100 << 20

// Read endpoints return the resource directly so API bodies match the
// CLI json format. Failures use the error envelope below.
func apiError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func (s *Server) handleDashboard(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", dashboardHTML)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.Version,
	})
}

// currentRun resolves the run the read endpoints serve: the in-memory
// run when one exists, otherwise the latest archived run.
func (s *Server) currentRun(c *gin.Context) (*docket.Run, error) {
	s.mu.RLock()
	run := s.current
	s.mu.RUnlock()
	if run != nil {
		return run, nil
	}
	if s.archive == nil {
		return nil, nil
	}

	ctx := c.Request.Context()
	id, err := s.archive.LatestRunID(ctx)
	if err != nil || id == "" {
		return nil, err
	}
	return s.archive.LoadRun(ctx, id)
}

// handleRuns lists the run history, most recent first. Without an
// archive the history is just the in-memory run.
func (s *Server) handleRuns(c *gin.Context) {
	if s.archive != nil {
		summaries, err := s.archive.ListRuns(c.Request.Context())
		if err != nil {
			apiError(c, http.StatusInternalServerError, "ARCHIVE_FAILED", err.Error())
			return
		}
		if summaries == nil {
			summaries = []store.RunSummary{}
		}
		c.JSON(http.StatusOK, summaries)
		return
	}

	s.mu.RLock()
	run := s.current
	s.mu.RUnlock()

	summaries := []store.RunSummary{}
	if run != nil {
		summaries = append(summaries, store.RunSummary{
			ID:           run.ID,
			RulesVersion: run.RulesVersion,
			StartedAt:    run.StartedAt,
			DurationMS:   run.DurationMS,
			Stats:        run.Stats,
		})
	}
	c.JSON(http.StatusOK, summaries)
}

func (s *Server) handleLatestRun(c *gin.Context) {
	run, err := s.currentRun(c)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "ARCHIVE_FAILED", err.Error())
		return
	}
	if run == nil {
		apiError(c, http.StatusNotFound, "NO_RUN", "no reconciliation run available")
		return
	}
	c.JSON(http.StatusOK, run)
}

// handleChains lists chains of the current run, narrowed by the
// confidence, favorable and status query parameters.
func (s *Server) handleChains(c *gin.Context) {
	f := store.ChainFilter{
		Confidence: strings.ToUpper(strings.TrimSpace(c.Query("confidence"))),
		Favorable:  strings.ToUpper(strings.TrimSpace(c.Query("favorable"))),
		Status:     strings.TrimSpace(c.Query("status")),
	}

	s.mu.RLock()
	run := s.current
	s.mu.RUnlock()

	if run != nil {
		c.JSON(http.StatusOK, filterChains(run.Cases, f))
		return
	}
	if s.archive == nil {
		apiError(c, http.StatusNotFound, "NO_RUN", "no reconciliation run available")
		return
	}

	ctx := c.Request.Context()
	id, err := s.archive.LatestRunID(ctx)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "ARCHIVE_FAILED", err.Error())
		return
	}
	if id == "" {
		apiError(c, http.StatusNotFound, "NO_RUN", "no reconciliation run available")
		return
	}
	chains, err := s.archive.Chains(ctx, id, f)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "ARCHIVE_FAILED", err.Error())
		return
	}
	if chains == nil {
		chains = []docket.ReconciledCase{}
	}
	c.JSON(http.StatusOK, chains)
}

func (s *Server) handleChain(c *gin.Context) {
	chainID := c.Param("id")

	s.mu.RLock()
	run := s.current
	s.mu.RUnlock()

	if run != nil {
		for i := range run.Cases {
			if run.Cases[i].Chain.ID == chainID {
				c.JSON(http.StatusOK, run.Cases[i])
				return
			}
		}
		apiError(c, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("chain %s not found", chainID))
		return
	}
	if s.archive == nil {
		apiError(c, http.StatusNotFound, "NO_RUN", "no reconciliation run available")
		return
	}

	ctx := c.Request.Context()
	id, err := s.archive.LatestRunID(ctx)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "ARCHIVE_FAILED", err.Error())
		return
	}
	if id == "" {
		apiError(c, http.StatusNotFound, "NO_RUN", "no reconciliation run available")
		return
	}
	chain, err := s.archive.Chain(ctx, id, chainID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "ARCHIVE_FAILED", err.Error())
		return
	}
	if chain == nil {
		apiError(c, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("chain %s not found", chainID))
		return
	}
	c.JSON(http.StatusOK, chain)
}

func (s *Server) handleResiduals(c *gin.Context) {
	run, err := s.currentRun(c)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "ARCHIVE_FAILED", err.Error())
		return
	}
	if run == nil {
		apiError(c, http.StatusNotFound, "NO_RUN", "no reconciliation run available")
		return
	}
	residuals := run.Residuals
	if residuals == nil {
		residuals = []docket.Residual{}
	}
	c.JSON(http.StatusOK, residuals)
}

// handleExport renders the current run in any registered output format
// and serves it as a download.
func (s *Server) handleExport(c *gin.Context) {
	format := strings.TrimSpace(c.Query("format"))
	if format == "" {
		format = "json"
	}

	run, err := s.currentRun(c)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "ARCHIVE_FAILED", err.Error())
		return
	}
	if run == nil {
		apiError(c, http.StatusNotFound, "NO_RUN", "no reconciliation run available")
		return
	}

	options := formatters.FormatterOptions{
		Verbose: c.Query("verbose") == "true",
		NoColor: true,
	}
	content, mimeType, filename, err := formatters.ExportForWeb(format, run, options)
	if err != nil {
		apiError(c, http.StatusBadRequest, "INVALID_FORMAT", err.Error())
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, mimeType, []byte(content))
}

// handleReconcile accepts a JSON batch upload, runs the engine over
// it, and returns the resulting run. The upload becomes the in-memory
// run and is archived when a store is configured.
func (s *Server) handleReconcile(c *gin.Context) {
	data, err := readBatchUpload(c)
	if err != nil {
		apiError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if len(data) == 0 {
		apiError(c, http.StatusBadRequest, "INVALID_REQUEST", "empty batch upload")
		return
	}

	// Stage to a temp file so the upload goes through the same reader
	// routing as CLI inputs
	tmp, err := os.CreateTemp(paths.GetTempDir(), "docket_upload_*.json")
	if err != nil {
		apiError(c, http.StatusInternalServerError, "STAGING_FAILED", err.Error())
		return
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		apiError(c, http.StatusInternalServerError, "STAGING_FAILED", err.Error())
		return
	}
	if err := tmp.Close(); err != nil {
		apiError(c, http.StatusInternalServerError, "STAGING_FAILED", err.Error())
		return
	}

	records, err := s.readers.ReadFile(tmpName)
	if err != nil {
		apiError(c, http.StatusBadRequest, "INGEST_FAILED", err.Error())
		return
	}
	if len(records) == 0 {
		apiError(c, http.StatusBadRequest, "INGEST_FAILED", "no case records recognized in upload")
		return
	}

	run, err := engine.Reconcile(engine.ReconcileConfig{
		Records:   records,
		Workers:   s.workers,
		Config:    s.cfg,
		Overrides: s.ov,
		Debug:     s.debug,
	})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "RECONCILE_FAILED", err.Error())
		return
	}

	s.SetRun(run)

	if s.archive != nil {
		if err := s.archive.SaveRun(c.Request.Context(), run); err != nil {
			log.Printf("archive save for run %s failed: %v", run.ID, err)
		}
	}

	c.JSON(http.StatusOK, run)
}

// readBatchUpload accepts either a multipart form with a "file" field
// or a raw JSON body.
func readBatchUpload(c *gin.Context) ([]byte, error) {
	if header, err := c.FormFile("file"); err == nil {
		file, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %s: %w", header.Filename, err)
		}
		defer file.Close()
		return io.ReadAll(io.LimitReader(file, maxUploadBytes))
	}
	if c.Request.Body == nil {
		return nil, nil
	}
	return io.ReadAll(io.LimitReader(c.Request.Body, maxUploadBytes))
}

// filterChains applies a chain filter in memory, mirroring the archive
// query the store runs.
func filterChains(cases []docket.ReconciledCase, f store.ChainFilter) []docket.ReconciledCase {
	out := []docket.ReconciledCase{}
	for i := range cases {
		rc := &cases[i]
		if f.Confidence != "" && rc.Outcome.Confidence.String() != f.Confidence {
			continue
		}
		if f.Favorable != "" && rc.Outcome.FinalFavorable.String() != f.Favorable {
			continue
		}
		if f.Status != "" && rc.Outcome.Status != f.Status {
			continue
		}
		out = append(out, *rc)
	}
	return out
}
