// Package server exposes the dashboard and JSON API over HTTP.
package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"credlens/internal/dq"
	"credlens/internal/engine"
	"credlens/internal/logging"
	"credlens/internal/nlu"
	"credlens/internal/respond"
)

// Server wires the query engine and classifier into HTTP routes.
type Server struct {
	router     *gin.Engine
	engine     *engine.Engine
	classifier *nlu.Classifier
}

// New builds the server and registers all routes.
func New(eng *engine.Engine, classifier *nlu.Classifier) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		router:     gin.New(),
		engine:     eng,
		classifier: classifier,
	}
	s.router.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.serveDashboard)
	s.router.GET("/healthz", s.health)

	api := s.router.Group("/api")
	{
		api.GET("/summary", s.getSummary)
		api.GET("/providers", s.getProviders)
		api.GET("/issues/by-state", s.getIssuesByState)
		api.GET("/issues/by-specialty", s.getIssuesBySpecialty)
		api.GET("/reports/expiring", s.getExpiringReport)
		api.GET("/reports/compliance", s.getComplianceReport)
		api.GET("/reports/updates", s.getUpdatesReport)
		api.GET("/insights", s.getInsights)
		api.GET("/history", s.getHistory)
		api.POST("/query", s.postQuery)
	}

	logging.Server("Routes configured")
}

// Handler returns the underlying handler, for tests and custom servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	logging.Server("Listening on %s", addr)
	return s.router.Run(addr)
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) health(c *gin.Context) {
	status := gin.H{"status": "ok", "loaded": s.engine.Loaded()}
	c.JSON(http.StatusOK, status)
}

func (s *Server) requireLoaded(c *gin.Context) bool {
	if !s.engine.Loaded() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no dataset loaded"})
		return false
	}
	return true
}

func (s *Server) getSummary(c *gin.Context) {
	if !s.requireLoaded(c) {
		return
	}
	c.JSON(http.StatusOK, s.engine.Stats())
}

// providerFilters narrows the flagged table for /api/providers.
type providerFilters struct {
	State     string `form:"state"`
	Specialty string `form:"specialty"`
	Issue     string `form:"issue"`
	Page      int    `form:"page,default=1"`
	PageSize  int    `form:"page_size,default=50"`
}

func matchesIssue(r *dq.Row, issue string) (bool, error) {
	switch issue {
	case "":
		return true, nil
	case "any":
		return r.HasIssue(), nil
	case "expired":
		return r.License.Expired, nil
	case "missing_npi":
		return r.NPI.Missing, nil
	case "phone":
		return r.PhoneIssue, nil
	case "duplicate":
		return r.DuplicateSuspect, nil
	case "mismatch":
		return r.License.StateMismatch, nil
	case "multi_state":
		return r.MultiStateSingleLicense, nil
	default:
		return false, fmt.Errorf("unknown issue filter: %s", issue)
	}
}

func (s *Server) getProviders(c *gin.Context) {
	if !s.requireLoaded(c) {
		return
	}

	var f providerFilters
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 500 {
		f.PageSize = 50
	}

	var filtered []dq.Row
	for _, r := range s.engine.Rows() {
		if f.State != "" && !strings.EqualFold(r.State, f.State) {
			continue
		}
		if f.Specialty != "" && !strings.EqualFold(r.Specialty, f.Specialty) {
			continue
		}
		ok, err := matchesIssue(&r, f.Issue)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !ok {
			continue
		}
		filtered = append(filtered, r)
	}

	total := len(filtered)
	start := (f.Page - 1) * f.PageSize
	if start > total {
		start = total
	}
	end := start + f.PageSize
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, gin.H{
		"total":     total,
		"page":      f.Page,
		"page_size": f.PageSize,
		"providers": filtered[start:end],
	})
}

func (s *Server) getIssuesByState(c *gin.Context) {
	if !s.requireLoaded(c) {
		return
	}
	states := s.engine.StateIssueSummary()
	if c.Query("format") == "csv" {
		s.writeCSV(c, "state_summary.csv", &engine.Result{Kind: engine.KindStates, States: states})
		return
	}
	c.JSON(http.StatusOK, states)
}

func (s *Server) getIssuesBySpecialty(c *gin.Context) {
	if !s.requireLoaded(c) {
		return
	}
	specs := s.engine.SpecialtiesWithMostIssues()
	if c.Query("format") == "csv" {
		s.writeCSV(c, "specialty_summary.csv", &engine.Result{Kind: engine.KindSpecialties, Specialties: specs})
		return
	}
	c.JSON(http.StatusOK, specs)
}

func (s *Server) getExpiringReport(c *gin.Context) {
	if !s.requireLoaded(c) {
		return
	}
	days, err := strconv.Atoi(c.DefaultQuery("days", "90"))
	if err != nil || days < 1 || days > 3650 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
		return
	}
	rows := s.engine.FilterByExpirationWindow(days)
	if c.Query("format") == "csv" {
		s.writeCSV(c, fmt.Sprintf("expiring_in_%d_days.csv", days),
			&engine.Result{Kind: engine.KindProviders, Providers: rows})
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days, "providers": rows})
}

func (s *Server) getComplianceReport(c *gin.Context) {
	if !s.requireLoaded(c) {
		return
	}
	rows := s.engine.ComplianceReportExpired()
	if c.Query("format") == "csv" {
		s.writeCSV(c, "compliance_report.csv", &engine.Result{Kind: engine.KindProviders, Providers: rows})
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": rows})
}

func (s *Server) getUpdatesReport(c *gin.Context) {
	if !s.requireLoaded(c) {
		return
	}
	rows := s.engine.ExportUpdateList()
	if c.Query("format") == "csv" {
		s.writeCSV(c, "update_list.csv", &engine.Result{Kind: engine.KindProviders, Providers: rows})
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": rows})
}

func (s *Server) getInsights(c *gin.Context) {
	if !s.requireLoaded(c) {
		return
	}
	c.JSON(http.StatusOK, s.engine.Insights())
}

func (s *Server) getHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	snaps, err := s.engine.History(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snaps)
}

// queryRequest is the POST /api/query body.
type queryRequest struct {
	Question string `json:"question" binding:"required"`
}

func (s *Server) postQuery(c *gin.Context) {
	if !s.requireLoaded(c) {
		return
	}

	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	resolution := s.classifier.Classify(c.Request.Context(), req.Question)
	result, err := s.engine.RunQuery(resolution.Intent, resolution.Params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	answer := respond.Render(result)
	logging.Server("Query %q -> %s via %s", req.Question, resolution.Intent, resolution.Method)

	c.JSON(http.StatusOK, gin.H{
		"resolution": resolution,
		"result":     result,
		"answer":     answer,
	})
}

func (s *Server) writeCSV(c *gin.Context, filename string, res *engine.Result) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := engine.WriteResultCSV(c.Writer, res); err != nil {
		logging.Get(logging.CategoryServer).Error("CSV export failed: %v", err)
	}
}
