// Package introspect exposes a read-only HTTP view over a running
// streaming session's snapshot getters, for operators and dashboards that
// don't want to embed the module directly. Grounded on
// _examples/koshedutech-binance-trading-app/internal/api/server.go's
// NewServer (gin.New + gin.Logger/gin.Recovery + cors.New wiring,
// errorResponse/successResponse envelope helpers, a /health endpoint) cut
// down to a read-only surface: no auth, no mutation routes.
package introspect

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"krakenws/internal/kraken"
)

// Facade is the subset of kraken.API the introspection server reads from.
type Facade interface {
	AllBooks() map[string]kraken.Book
	OpenOrders() map[string]kraken.OpenOrder
	SystemStatus() kraken.SystemStatus
	StreamClosed() bool
}

// Server is a read-only HTTP wrapper around a Facade.
type Server struct {
	router *gin.Engine
	api    Facade
}

// New builds a Server in release mode with logging, panic recovery, and a
// permissive CORS policy suited to a local dashboard.
func New(api Facade) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	s := &Server{router: router, api: api}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/status", s.handleStatus)
	s.router.GET("/books", s.handleBooks)
	s.router.GET("/book", s.handleBook)
	s.router.GET("/orders", s.handleOrders)
}

// Handler returns the underlying http.Handler, for use with http.Server or
// httptest.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleStatus(c *gin.Context) {
	successResponse(c, gin.H{
		"system_status": s.api.SystemStatus(),
		"stream_closed": s.api.StreamClosed(),
		"checked_at":    time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleBooks(c *gin.Context) {
	successResponse(c, s.api.AllBooks())
}

// handleBook looks up a single pair's book by query parameter rather than a
// path segment: Kraken pair names contain a "/" (e.g. "XBT/USD"), which
// does not survive as a single gin path segment.
func (s *Server) handleBook(c *gin.Context) {
	pair := c.Query("pair")
	books := s.api.AllBooks()
	book, ok := books[pair]
	if !ok {
		errorResponse(c, http.StatusNotFound, "no book tracked for pair "+pair)
		return
	}
	successResponse(c, book)
}

func (s *Server) handleOrders(c *gin.Context) {
	successResponse(c, s.api.OpenOrders())
}

func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": true, "message": message})
}

func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}
