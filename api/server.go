package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"sacco/models"
	"sacco/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Services are the operations exposed over HTTP
type Services struct {
	Loans         service.LoanService
	Contributions service.ContributionService
	Reconciler    service.CallbackReconciler
	Expiry        service.GuarantorExpiryService
	Redispatch    service.RedispatchService
	Interest      service.InterestService
}

// Server is the SACCO HTTP server
type Server struct {
	services Services
	router   *gin.Engine
}

// NewServer creates the server and registers every route
func NewServer(services Services) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{
		services: services,
		router:   router,
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/loans", s.handleCreateLoan)
		v1.GET("/loans/:id", s.handleGetLoan)
		v1.POST("/loans/:id/decision", s.handleDecideLoan)
		v1.POST("/loans/:id/disburse", s.handleDisburseLoan)
		v1.POST("/loans/:id/repayments", s.handleRepayLoan)
		v1.POST("/loans/:id/guarantors/:guarantor_id/replace", s.handleReplaceGuarantor)

		v1.POST("/guarantors/:id/respond", s.handleRespondGuarantor)
		v1.POST("/guarantors/expire", s.handleExpireGuarantors)

		v1.POST("/savings/contributions", s.handleContribute)
		v1.POST("/savings/interest", s.handleApplyInterest)

		v1.POST("/transactions/redispatch", s.handleRedispatch)
	}

	callbacks := router.Group("/callbacks")
	{
		callbacks.POST("/c2b", s.handleC2BCallback)
		callbacks.POST("/b2c", s.resultCallback(models.TransactionTypeB2C, false))
		callbacks.POST("/b2b", s.resultCallback(models.TransactionTypeB2B, false))
		callbacks.POST("/b2c/timeout", s.resultCallback(models.TransactionTypeB2C, true))
		callbacks.POST("/b2b/timeout", s.resultCallback(models.TransactionTypeB2B, true))
	}

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve HTTP: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("Request failed")
			return
		}
		entry.Debug("Request handled")
	}
}
