// Command judged starts an HTTP server that accepts job submissions,
// runs them through the sandboxed job engine, and returns adjudicated
// verdicts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/judgecore/judge/cmd/judged/restapi"
	"github.com/judgecore/judge/cmd/judged/version"
	"github.com/judgecore/judge/internal/config"
	"github.com/judgecore/judge/internal/facade"
	"github.com/judgecore/judge/internal/identity"
	"github.com/judgecore/judge/internal/runtime"
	"github.com/judgecore/judge/internal/sandbox"
)

var logger *zap.Logger

func main() {
	conf := loadConf()
	if conf.Version {
		fmt.Println(version.Version)
		return
	}
	initLogger(conf)
	defer logger.Sync()
	if ce := logger.Check(zap.InfoLevel, "config loaded"); ce != nil {
		ce.Write(zap.String("config", fmt.Sprintf("%+v", conf)))
	}

	ctx := context.Background()
	registry, err := runtime.NewFileRegistry(ctx, conf.DataDirectory)
	if err != nil {
		logger.Fatal("runtime registry init failed", zap.Error(err))
	}

	pool := identity.New(
		identity.Range{Min: conf.RunnerUIDMin, Max: conf.RunnerUIDMax},
		identity.Range{Min: conf.RunnerGIDMin, Max: conf.RunnerGIDMax},
	)
	invoker := sandbox.New(sandbox.Limits{
		ProcLimit:         conf.MaxProcessCount,
		NoFileLimit:       conf.MaxOpenFiles,
		OutputMaxSize:     conf.OutputMaxSize,
		DisableNetworking: conf.DisableNetworking,
	})
	f := facade.New(conf.DataDirectory, pool, invoker, logger)

	servers := []initFunc{
		initHTTPServer(conf, f, registry),
		initMonitorHTTPServer(conf),
	}

	sig := make(chan os.Signal, 1+len(servers))
	var stops []stopFunc
	for _, s := range servers {
		start, stop := s()
		if start != nil {
			go func() {
				start()
				sig <- os.Interrupt
			}()
		}
		if stop != nil {
			stops = append(stops, stop)
		}
	}

	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
loop:
	for s := range sig {
		switch s {
		case syscall.SIGINT:
			break loop
		case syscall.SIGTERM:
			if isManagedByPM2() {
				logger.Info("running with PM2, received SIGTERM (from systemd), ignoring")
			} else {
				break loop
			}
		}
	}
	signal.Reset(syscall.SIGINT, syscall.SIGTERM)

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var eg errgroup.Group
	for _, s := range stops {
		s := s
		eg.Go(func() error { return s(shutdownCtx) })
	}
	go func() {
		logger.Info("shutdown finished", zap.Error(eg.Wait()))
		cancel()
	}()
	<-shutdownCtx.Done()
}

func loadConf() *config.Config {
	var conf config.Config
	if err := conf.Load(); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalln("load config failed ", err)
	}
	return &conf
}

type (
	stopFunc func(ctx context.Context) error
	initFunc func() (start func(), cleanUp stopFunc)
)

func initHTTPServer(conf *config.Config, f *facade.Facade, registry runtime.Registry) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		r := newRouter(conf, f, registry)
		srv := http.Server{Addr: conf.BindAddress, Handler: r}

		return func() {
				lis, err := net.Listen("tcp", conf.BindAddress)
				if err != nil {
					logger.Error("http server listen failed", zap.Error(err))
					return
				}
				logger.Info("starting http server", zap.String("addr", conf.BindAddress))
				if err := srv.Serve(lis); errors.Is(err, http.ErrServerClosed) {
					logger.Info("http server stopped", zap.Error(err))
				} else {
					logger.Error("http server stopped", zap.Error(err))
				}
			}, func(ctx context.Context) error {
				logger.Info("http server shutting down")
				return srv.Shutdown(ctx)
			}
	}
}

func initMonitorHTTPServer(conf *config.Config) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		mux := newMonitorMux(conf)
		if mux == nil {
			return nil, nil
		}
		srv := http.Server{Addr: conf.MonitorAddr, Handler: mux}
		return func() {
				lis, err := net.Listen("tcp", conf.MonitorAddr)
				if err != nil {
					logger.Error("monitor http listen failed", zap.Error(err))
					return
				}
				logger.Info("starting monitor http server", zap.String("addr", conf.MonitorAddr))
				logger.Info("monitor http server stopped", zap.Error(srv.Serve(lis)))
			}, func(ctx context.Context) error {
				logger.Info("monitor http server shutting down")
				return srv.Shutdown(ctx)
			}
	}
}

func newRouter(conf *config.Config, f *facade.Facade, registry runtime.Registry) *gin.Engine {
	var r *gin.Engine
	if conf.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	r = gin.New()
	r.Use(ginzap.Ginzap(logger, "", false))
	r.Use(ginzap.RecoveryWithZap(logger, true))

	if conf.EnableMetrics {
		initGinMetrics(r)
	}

	r.GET("/version", handleVersion(conf))
	r.GET("/healthz", handleHealthz)

	if conf.AuthToken != "" {
		r.Use(tokenAuth(conf.AuthToken))
		logger.Info("attached token auth")
	}

	restapi.NewJobHandle(f, registry, logger).Register(r)
	restapi.NewRuntimeHandle(registry).Register(r)

	return r
}

func newMonitorMux(conf *config.Config) http.Handler {
	if !conf.EnableMetrics {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func initGinMetrics(r *gin.Engine) {
	p := ginprometheus.NewWithConfig(ginprometheus.Config{
		Subsystem:          "judged",
		DisableBodyReading: true,
	})
	p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
		return c.FullPath()
	}
	r.Use(p.HandlerFunc())
}

func handleVersion(conf *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"buildVersion": version.Version,
			"parallelism":  conf.Parallelism,
		})
	}
}

func handleHealthz(c *gin.Context) {
	c.Status(http.StatusOK)
}

func tokenAuth(token string) gin.HandlerFunc {
	const bearer = "Bearer "
	return func(c *gin.Context) {
		reqToken := c.GetHeader("Authorization")
		if strings.HasPrefix(reqToken, bearer) && reqToken[len(bearer):] == token {
			c.Next()
			return
		}
		c.AbortWithStatus(http.StatusUnauthorized)
	}
}

func initLogger(conf *config.Config) {
	if conf.Silent {
		logger = zap.NewNop()
		return
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(conf.LogLevel)); err != nil {
		log.Fatalln("invalid log level ", err)
	}
	var cfg zap.Config
	if conf.Release {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	var err error
	logger, err = cfg.Build()
	if err != nil {
		log.Fatalln("init logger failed ", err)
	}
}

func isManagedByPM2() bool {
	for _, v := range []string{"PM2_HOME", "PM2_JSON_PROCESSING", "NODE_APP_INSTANCE"} {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}
