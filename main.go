package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BerniceZTT/followup_ledger/config"
	"github.com/BerniceZTT/followup_ledger/messaging"
	"github.com/BerniceZTT/followup_ledger/middleware"
	"github.com/BerniceZTT/followup_ledger/repository"
	"github.com/BerniceZTT/followup_ledger/routes"
	"github.com/BerniceZTT/followup_ledger/service"
	"github.com/BerniceZTT/followup_ledger/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.LoadConfig()

	// 初始化日志
	utils.InitLogger(cfg.Debug)

	// 设置Gin模式
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// 初始化存储
	var store repository.Store
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		utils.Logger.Warn().Msg("使用内存存储，重启后数据会丢失")
		store = repository.NewMemoryStore()
	default:
		mongoStore, err := repository.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			utils.Logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer mongoStore.Close(context.Background())

		utils.Logger.Info().Msg("开始系统初始化...")
		if err := mongoStore.InitializeCollections(ctx); err != nil {
			utils.Logger.Error().Err(err).Msg("初始化数据库集合失败")
		}
		utils.Logger.Info().Msg("系统初始化完成")
		store = mongoStore
	}

	// 事件发布，未配置 AMQP_URL 时不发布
	var publisher service.EventPublisher = service.NopPublisher{}
	if cfg.AMQPURL != "" {
		rabbit, err := messaging.NewRabbitMQPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			utils.Logger.Error().Err(err).Msg("连接RabbitMQ失败，事件将不会发布")
		} else {
			defer rabbit.Close()
			publisher = rabbit
		}
	}

	clock := service.SystemClock{}
	ledger := service.NewLedgerService(store, clock, publisher)

	// 逾期跟进检查
	sweeper := service.NewOverdueSweeper(store, publisher, clock, cfg.OverdueSweepSpec)
	if err := sweeper.Start(); err != nil {
		utils.Logger.Fatal().Err(err).Str("spec", cfg.OverdueSweepSpec).Msg("启动逾期跟进检查失败")
	}

	// 创建Gin实例
	router := gin.New()

	// 应用中间件，操作日志在各路由组中随认证一起注册
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(cfg.CORSOrigins))
	router.Use(middleware.ErrorHandler())

	// 注册路由
	routes.RegisterRoutes(router, routes.Dependencies{
		Ledger: ledger,
		Store:  store,
		JWTKey: []byte(cfg.JWTKey),
	})

	// 设置HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 启动服务器
	go func() {
		utils.Logger.Info().Msgf("服务器启动，监听端口: %d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Logger.Fatal().Err(err).Msg("启动服务器失败")
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.Logger.Info().Msg("正在关闭服务器...")

	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Logger.Error().Err(err).Msg("服务器关闭异常")
	}

	utils.Logger.Info().Msg("服务器已优雅关闭")
}
