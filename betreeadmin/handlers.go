package betreeadmin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/go-betree/betree"
)

// healthz godoc
// @Summary Liveness probe
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]any
// @Router /healthz [get]
func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// stats godoc
// @Summary Tree debug counters
// @Tags Admin
// @Produce json
// @Security Bearer
// @Success 200 {object} betree.Debug
// @Router /stats [get]
func (s *Server) stats(c *gin.Context) {
	s.mu.Lock()
	debug := s.tree.Debug()
	var root string
	if c.Query("verbose") == "true" {
		root = s.tree.DumpRoot(c.Request.Context())
	}
	s.mu.Unlock()

	body := gin.H{
		"root_id":      debug.RootID,
		"height":       debug.Height,
		"global_ts":    debug.GlobalTS,
		"resident":     debug.Resident,
		"capacity":     debug.Capacity,
		"num_reads":    debug.NumReads,
		"num_writes":   debug.NumWrites,
		"cache_hits":   debug.CacheHits,
		"cache_misses": debug.CacheMisses,
	}
	if root != "" {
		body["root"] = root
	}
	c.JSON(http.StatusOK, body)
}

// query godoc
// @Summary Point query
// @Tags Query
// @Produce json
// @Param key path int true "key to look up"
// @Security Bearer
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /tree/query/{key} [get]
func (s *Server) query(c *gin.Context) {
	key, err := strconv.ParseUint(c.Param("key"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key must be a uint32"})
		return
	}

	s.mu.Lock()
	value := s.tree.Query(c.Request.Context(), uint32(key))
	s.mu.Unlock()

	if value == betree.KeyNotFound {
		c.JSON(http.StatusNotFound, gin.H{"key": key})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}
