package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/resortbooking/config"
	"github.com/gin-gonic/gin"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

const swaggerDoc = "/swagger/booking.swagger.json"

type Servers struct {
	grpcServer *grpc.Server
	health     *health.Server
	gwConn     *grpc.ClientConn
	httpServer *http.Server
}

// Run starts the gRPC health server and the HTTP server (API, gateway
// healthz, metrics, swagger) and blocks until ctx is canceled or a server fails.
func Run(ctx context.Context, cfg *config.Config, log *slog.Logger, router *gin.Engine, reg *prometheus.Registry) error {
	s, err := newServers(cfg, router, reg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		_ = s.gwConn.Close()
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	go func() { errCh <- s.grpcServer.Serve(lis) }()
	log.Info("grpc server listening", "address", cfg.GRPC.Address)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Info("http server listening", "address", cfg.HTTP.Address)

	select {
	case err := <-errCh:
		_ = s.stop(context.Background())
		return err
	case <-ctx.Done():
		log.Info("shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.stop(shutdownCtx)
	}
}

func newServers(cfg *config.Config, router *gin.Engine, reg *prometheus.Registry) (*Servers, error) {
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcSrv, healthSrv)
	healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	conn, err := grpc.NewClient(cfg.GRPC.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial gRPC gateway: %w", err)
	}
	gw := runtime.NewServeMux(runtime.WithHealthzEndpoint(grpc_health_v1.NewHealthClient(conn)))

	router.GET("/healthz", gin.WrapH(gw))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	if cfg.HTTP.SwaggerDir != "" {
		router.Static("/swagger", cfg.HTTP.SwaggerDir)
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL(swaggerDoc))))
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Servers{
		grpcServer: grpcSrv,
		health:     healthSrv,
		gwConn:     conn,
		httpServer: httpSrv,
	}, nil
}

func (s *Servers) stop(ctx context.Context) error {
	s.health.Shutdown()
	err := s.httpServer.Shutdown(ctx)
	s.grpcServer.GracefulStop()
	_ = s.gwConn.Close()
	if err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
