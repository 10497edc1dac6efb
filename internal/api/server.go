// Package api serves experiment run metadata, training curves and result
// summaries over HTTP so finished and in-flight sweeps can be inspected
// without touching the log directory by hand.
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/driftlab/gradapt/internal/runlog"
)

// Server exposes the contents of a run-log root and a result directory.
type Server struct {
	logs      *runlog.Root
	resultDir string
}

// NewServer creates a Server over the given run-log root. resultDir may be
// empty if result summaries are not wanted.
func NewServer(logs *runlog.Root, resultDir string) *Server {
	return &Server{logs: logs, resultDir: resultDir}
}

// Register mounts the API routes.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/v1/runs", s.handleListRuns)
	e.GET("/v1/runs/:id/metrics", s.handleRunMetrics)
	e.GET("/v1/results", s.handleListResults)
}

func (s *Server) handleListRuns(c *echo.Context) error {
	metas, err := s.logs.ListRuns()
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
	if metas == nil {
		metas = []runlog.Meta{}
	}
	return c.JSON(http.StatusOK, metas)
}

func (s *Server) handleRunMetrics(c *echo.Context) error {
	id := c.Param("id")
	records, err := s.logs.ReadRecords(id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return writeError(c, http.StatusNotFound, "not_found_error", err.Error())
		}
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
	if records == nil {
		records = []runlog.Record{}
	}
	return c.JSON(http.StatusOK, records)
}

func (s *Server) handleListResults(c *echo.Context) error {
	if s.resultDir == "" {
		return c.JSON(http.StatusOK, []any{})
	}
	var results []json.RawMessage
	err := filepath.WalkDir(s.resultDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if json.Valid(raw) {
			results = append(results, raw)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
	if results == nil {
		results = []json.RawMessage{}
	}
	return c.JSON(http.StatusOK, results)
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{
		"error": apiError{Message: msg, Type: errType},
	})
}
