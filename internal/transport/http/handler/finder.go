package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scoutlabs/mailscout/internal/domain"
	"github.com/scoutlabs/mailscout/internal/usecase"
)

// finderUsecaser is the subset of FinderUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type finderUsecaser interface {
	FindEmail(ctx context.Context, person domain.Person, rawDomain string) (*usecase.FindEmailResult, error)
	VerifyDomain(ctx context.Context, rawDomain string) (*usecase.DomainReport, error)
	ListPatterns(ctx context.Context, rawDomain string) (*usecase.PatternsResult, error)
	BulkFind(ctx context.Context, rawDomain string, people []domain.Person) (*usecase.BulkResult, error)
}

type FinderHandler struct {
	finder finderUsecaser
	logger *slog.Logger
}

func NewFinderHandler(finder finderUsecaser, logger *slog.Logger) *FinderHandler {
	return &FinderHandler{finder: finder, logger: logger.With("component", "finder_handler")}
}

type personPayload struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"  binding:"required"`
}

type findEmailRequest struct {
	Domain    string `json:"domain"     binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"  binding:"required"`
}

// POST /api/find-email
func (h *FinderHandler) FindEmail(c *gin.Context) {
	var req findEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.finder.FindEmail(c.Request.Context(),
		domain.Person{FirstName: req.FirstName, LastName: req.LastName}, req.Domain)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":              true,
		"domain":               res.Domain,
		"person":               gin.H{"first_name": res.Person.FirstName, "last_name": res.Person.LastName},
		"domain_accepts_email": res.AcceptsEmail,
		"emails":               res.Candidates,
		"total_results":        len(res.Candidates),
	})
}

type verifyDomainRequest struct {
	Domain string `json:"domain" binding:"required"`
}

// POST /api/verify-domain
func (h *FinderHandler) VerifyDomain(c *gin.Context) {
	var req verifyDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	report, err := h.finder.VerifyDomain(c.Request.Context(), req.Domain)
	if err != nil {
		h.fail(c, err)
		return
	}

	v := report.Verification
	records := v.Records
	if records == nil {
		records = []domain.MXRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"domain":        v.Domain,
		"has_mx":        v.HasMX,
		"accepts_email": v.HasMX,
		"mx_records":    records,
		"record_count":  len(records),
		"provider":      report.Provider,
		"checked_at":    v.CheckedAt,
	})
}

type bulkFindRequest struct {
	Domain string          `json:"domain" binding:"required"`
	Names  []personPayload `json:"names"  binding:"required"`
}

// POST /api/bulk-find
func (h *FinderHandler) BulkFind(c *gin.Context) {
	var req bulkFindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	people := make([]domain.Person, 0, len(req.Names))
	for _, n := range req.Names {
		people = append(people, domain.Person{FirstName: n.FirstName, LastName: n.LastName})
	}

	res, err := h.finder.BulkFind(c.Request.Context(), req.Domain, people)
	if err != nil {
		h.fail(c, err)
		return
	}

	results := make([]gin.H, 0, len(res.Results))
	for _, pr := range res.Results {
		candidates := pr.Candidates
		if candidates == nil {
			candidates = []domain.EmailCandidate{}
		}
		results = append(results, gin.H{
			"person":        gin.H{"first_name": pr.Person.FirstName, "last_name": pr.Person.LastName},
			"emails":        candidates,
			"total_results": len(candidates),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":              true,
		"domain":               res.Domain,
		"domain_accepts_email": res.AcceptsEmail,
		"results":              results,
		"total_people":         len(results),
	})
}

// GET /api/patterns/:domain
func (h *FinderHandler) ListPatterns(c *gin.Context) {
	res, err := h.finder.ListPatterns(c.Request.Context(), c.Param("domain"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":              true,
		"domain":               res.Domain,
		"domain_accepts_email": res.AcceptsEmail,
		"patterns":             res.Patterns,
		"total_patterns":       len(res.Patterns),
	})
}

// fail maps domain errors to HTTP statuses: bad input 400, DNS trouble 503,
// anything else 500. NXDOMAIN never reaches here — it is a valid result.
func (h *FinderHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidDomain):
		badRequest(c, err.Error())
	case errors.Is(err, domain.ErrDNSTimeout), errors.Is(err, domain.ErrDNSResolutionFailure):
		h.logger.WarnContext(c.Request.Context(), "dns failure", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": errDNSUnavailable})
	default:
		h.logger.ErrorContext(c.Request.Context(), "finder request", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": errInternalServer})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": message})
}

var _ finderUsecaser = (*usecase.FinderUsecase)(nil)
