package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/winspan/boomfilter/internal/lists"
	admin "github.com/winspan/boomfilter/internal/web"
	"github.com/winspan/boomfilter/pkg/logger"
)

// LoadConfig 加载配置文件
func LoadConfig(path string) (*lists.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg lists.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
		Prefix: cfg.Logging.Prefix,
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Close()

	// 列表存储与守护进程通知器
	store := lists.NewStore(cfg.ListFiles())
	notifier := lists.NewDaemonNotifier(cfg, lg)

	// 变更审计（可选）
	var audit *lists.AuditLog
	if cfg.Audit.Enabled {
		audit, err = lists.OpenAuditLog(cfg.GetAuditFile(), cfg.GetMaxAuditEntries(), lg)
		if err != nil {
			log.Fatalf("open audit log: %v", err)
		}
		defer audit.Close()
	}

	mgr := lists.NewManager(store, notifier, audit, lg, cfg.CompareOptions())

	// Admin HTTP
	r := chi.NewRouter()
	admin.BindRoutes(r, mgr, audit, cfg, lg)
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         cfg.GetListenHTTP(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		lg.Info("管理接口监听于 %s", cfg.GetListenHTTP())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http serve: %v", err)
		}
	}()

	// 等待退出信号
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	lg.Info("收到退出信号，正在关闭")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Error("关闭 HTTP 服务失败: %v", err)
	}
}
