package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fairdiet/fairdiet/internal/catalog"
	"github.com/fairdiet/fairdiet/internal/logging"
	"github.com/fairdiet/fairdiet/internal/pipeline"
)

// statusClientClosedRequest is returned when a recompute was canceled because
// the client went away.
const statusClientClosedRequest = 499

// CatalogResponse describes the selectable data for a front end.
type CatalogResponse struct {
	Years        catalog.YearRange `json:"years"`
	Regions      []catalog.Region  `json:"regions"`
	Bases        []string          `json:"bases"`
	Groups       []GroupInfo       `json:"groups"`
	ClimateModel string            `json:"climate_model"`
}

// GroupInfo is one food group and its items.
type GroupInfo struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Items []ItemInfo `json:"items"`
}

// ItemInfo is one food item.
type ItemInfo struct {
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	Role           string  `json:"role"`
	EmissionFactor float64 `json:"emission_factor"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Outcome string `json:"outcome,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"climate_model": s.backend.ModelName(),
		"sessions":      s.SessionCount(),
	})
}

func (s *Server) handleCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, buildCatalogResponse(s.backend))
}

// handleRegions lists only regions with loaded data, which may be fewer than
// the catalog declares.
func (s *Server) handleRegions(c *gin.Context) {
	cat := s.backend.Catalog()
	names := s.backend.Regions()
	regions := make([]catalog.Region, 0, len(names))
	for _, name := range names {
		if r, ok := cat.Region(name); ok {
			regions = append(regions, r)
		}
	}
	c.JSON(http.StatusOK, regions)
}

func (s *Server) handleRecompute(c *gin.Context) {
	var req pipeline.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   err.Error(),
			Outcome: pipeline.OutcomeInvalidSelection.String(),
		})
		return
	}

	ctx := c.Request.Context()
	bundle, err := s.backend.Recompute(ctx, req.Region, req.State)
	outcome := pipeline.Classify(bundle, err)
	if err != nil {
		logging.FromContext(ctx).Debug().
			Ctx(ctx).
			Str("component", "server").
			Str("operation", "recompute").
			Str("outcome", outcome.String()).
			Err(err).
			Msg("recompute failed")
		c.JSON(statusForOutcome(outcome), ErrorResponse{Error: err.Error(), Outcome: outcome.String()})
		return
	}
	c.JSON(http.StatusOK, bundle)
}

// statusForOutcome maps a failed recompute to an HTTP status.
func statusForOutcome(o pipeline.Outcome) int {
	switch o {
	case pipeline.OutcomeInvalidSelection:
		return http.StatusBadRequest
	case pipeline.OutcomeDegenerate:
		return http.StatusUnprocessableEntity
	case pipeline.OutcomeCanceled:
		return statusClientClosedRequest
	case pipeline.OutcomeOK, pipeline.OutcomeClimateUnavailable, pipeline.OutcomeFatal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func buildCatalogResponse(b Backend) CatalogResponse {
	cat := b.Catalog()
	resp := CatalogResponse{
		Years:        cat.Years(),
		Regions:      cat.Regions(),
		ClimateModel: b.ModelName(),
	}
	for _, basis := range catalog.AllBases {
		resp.Bases = append(resp.Bases, basis.String())
	}
	for _, g := range cat.Groups() {
		info := GroupInfo{ID: g.ID, Name: g.Name, Items: make([]ItemInfo, 0, len(g.Items))}
		for _, item := range g.Items {
			info.Items = append(info.Items, ItemInfo{
				Code:           item.Code,
				Name:           item.Name,
				Role:           item.Role.String(),
				EmissionFactor: item.EmissionFactor,
			})
		}
		resp.Groups = append(resp.Groups, info)
	}
	return resp
}
