package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spetersoncode/llmgate/catalog"
	"github.com/spetersoncode/llmgate/discovery"
)

func (s *Server) listModels(c *gin.Context) {
	models, err := s.deps.Catalog.List(c.Request.Context())
	if err != nil {
		detail(c, http.StatusInternalServerError, "Failed to load models: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": models})
}

func (s *Server) adminListModels(c *gin.Context) {
	s.listModels(c)
}

// catalogError maps store errors onto HTTP statuses.
func catalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		detail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrExists):
		detail(c, http.StatusConflict, err.Error())
	case errors.Is(err, catalog.ErrInvalidEntry):
		detail(c, http.StatusBadRequest, err.Error())
	default:
		detail(c, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) adminAddModel(c *gin.Context) {
	var e catalog.Entry
	if err := c.ShouldBindJSON(&e); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	added, err := s.deps.Catalog.Add(c.Request.Context(), e)
	if err != nil {
		catalogError(c, err)
		return
	}
	s.log(c).Info("model added", "model", added.Key().String())
	c.JSON(http.StatusCreated, added)
}

// modelParam returns the catch-all model id, which may itself contain slashes.
func modelParam(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("model"), "/")
}

func (s *Server) adminUpdateModel(c *gin.Context) {
	var e catalog.Entry
	if err := c.ShouldBindJSON(&e); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	updated, err := s.deps.Catalog.Update(c.Request.Context(), c.Param("provider"), modelParam(c), e)
	if err != nil {
		catalogError(c, err)
		return
	}
	s.log(c).Info("model updated", "model", updated.Key().String())
	c.JSON(http.StatusOK, updated)
}

func (s *Server) adminDeleteModel(c *gin.Context) {
	provider, id := c.Param("provider"), modelParam(c)
	if err := s.deps.Catalog.Delete(c.Request.Context(), provider, id); err != nil {
		catalogError(c, err)
		return
	}
	s.log(c).Info("model deleted", "provider", provider, "model", id)
	c.Status(http.StatusNoContent)
}

func (s *Server) adminProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": s.deps.Discovery.SupportedProviders()})
}

// discover runs discovery for the :provider param, writing the error response itself.
func (s *Server) discover(c *gin.Context) ([]discovery.ModelInfo, bool) {
	provider := c.Param("provider")
	models, err := s.deps.Discovery.Discover(c.Request.Context(), provider)
	if err != nil {
		var unsupported *discovery.ErrUnsupportedProvider
		if errors.As(err, &unsupported) {
			detail(c, http.StatusBadRequest, err.Error())
			return nil, false
		}
		s.log(c).Warn("discovery failed", "provider", provider, "error", err)
		detail(c, http.StatusBadGateway, err.Error())
		return nil, false
	}
	return models, true
}

func (s *Server) adminDiscover(c *gin.Context) {
	models, ok := s.discover(c)
	if !ok {
		return
	}
	if models == nil {
		models = []discovery.ModelInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"models": models})
}

func (s *Server) adminImport(c *gin.Context) {
	models, ok := s.discover(c)
	if !ok {
		return
	}
	added, err := s.deps.Catalog.Import(c.Request.Context(), discovery.Entries(models))
	if err != nil {
		catalogError(c, err)
		return
	}
	s.log(c).Info("models imported", "provider", c.Param("provider"), "discovered", len(models), "added", added)
	c.JSON(http.StatusOK, gin.H{"added": added})
}
