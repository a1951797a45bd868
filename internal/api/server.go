// Package api serves the read-only status endpoint: the current store
// contents plus Prometheus metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/danmarzab/vega-maker/internal/domain"
	"github.com/danmarzab/vega-maker/internal/metrics"
	"github.com/danmarzab/vega-maker/internal/store"
)

// appState is the combined snapshot returned by GET /state.
type appState struct {
	Markets         []domain.Market         `json:"markets"`
	Orders          []domain.Order          `json:"orders"`
	Positions       []domain.Position       `json:"positions"`
	Assets          []domain.Asset          `json:"assets"`
	Accounts        []domain.Account        `json:"accounts"`
	ReferencePrices []domain.ReferencePrice `json:"referencePrices"`
}

type Server struct {
	srv *http.Server
	log *zap.Logger
}

func NewServer(port int, st *store.Store, refs *store.ReferenceStore, m *metrics.Metrics, log *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, appState{
			Markets:         st.Markets(),
			Orders:          st.Orders(),
			Positions:       st.Positions(),
			Assets:          st.Assets(),
			Accounts:        st.Accounts(),
			ReferencePrices: refs.All(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))

	return &Server{
		srv: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		},
		log: log.Named("api"),
	}
}

// Start serves until the listener fails. Run it in its own goroutine.
func (s *Server) Start() {
	s.log.Info("status server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("status server failed", zap.Error(err))
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
