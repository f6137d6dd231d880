// Package betreeadmin exposes a running tree over HTTP: a liveness probe,
// debug counters, and a read-only point query endpoint, guarded by bearer
// auth and documented via swagger.
package betreeadmin

import (
	"sync"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/go-betree/betree"
	"github.com/go-betree/betree/betreeadmin/docs"
)

// Server wraps a tree with the single-goroutine access discipline its
// operations require (spec §5) behind a mutex, since an HTTP server
// dispatches concurrent request goroutines.
type Server struct {
	mu   sync.Mutex
	tree *betree.Tree
}

// New builds a Server around an already-open tree.
func New(tree *betree.Tree) *Server {
	return &Server{tree: tree}
}

// Router assembles the gin engine: middleware, the unauthenticated health
// check, the authenticated admin routes, and the swagger UI.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()
	router.Use(correlationID())

	docs.SwaggerInfo.BasePath = "/api/v1"

	router.GET("/healthz", s.healthz)

	v1 := router.Group("/api/v1", bearerAuth())
	{
		v1.GET("/stats", s.stats)
		v1.GET("/tree/query/:key", s.query)
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
	return router
}
