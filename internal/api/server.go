// Package api exposes the HTTP request boundary: a single-recipient send
// endpoint, a bulk upload endpoint, and health probes for the browser UI.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/CauaCamp0s/Discord-Messaging-Service/internal/bulk"
	"github.com/CauaCamp0s/Discord-Messaging-Service/internal/messaging"
	"github.com/CauaCamp0s/Discord-Messaging-Service/pkg/logx"
)

// Sender is the single-message dispatch operation the API fronts.
type Sender interface {
	Dispatch(ctx context.Context, req messaging.Request) (messaging.Result, error)
}

// BulkRunner drives one dispatch per parsed recipient.
type BulkRunner interface {
	Run(ctx context.Context, refs []string, text string) bulk.Report
}

type Config struct {
	Addr        string
	CORSOrigins []string
}

type Server struct {
	cfg    Config
	log    logx.Logger
	sender Sender
	bulk   BulkRunner
	state  func() messaging.ConnState

	http *http.Server
}

func New(cfg Config, sender Sender, bulkRunner BulkRunner, state func() messaging.ConnState, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Server{cfg: cfg, log: log, sender: sender, bulk: bulkRunner, state: state}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	s.routes(r)

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/", s.handleRoot)
	r.GET("/healthz", s.handleHealth)
	r.POST("/send-message", s.handleSendMessage)
	r.POST("/send-bulk", s.handleSendBulk)
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("http server listening", logx.String("addr", s.cfg.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
