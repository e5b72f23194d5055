// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"math-tutor-go/internal/config"
	"math-tutor-go/internal/handler"
	"math-tutor-go/internal/middleware"
	"math-tutor-go/internal/model"
	"math-tutor-go/internal/repository"
	"math-tutor-go/internal/service"
	"math-tutor-go/pkg/database"
	"math-tutor-go/pkg/es"
	"math-tutor-go/pkg/kafka"
	"math-tutor-go/pkg/llm"
	"math-tutor-go/pkg/log"
	"math-tutor-go/pkg/token"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库和 Redis
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err := database.DB.AutoMigrate(&model.User{}, &model.ChatSession{}, &model.Chat{}); err != nil {
		log.Fatal("数据库迁移失败", err)
	}

	// 4. 初始化可选组件：Elasticsearch 与 Kafka
	if cfg.Elasticsearch.Enabled {
		if err := es.InitES(cfg.Elasticsearch); err != nil {
			log.Errorf("es 初始化失败 %s", err)
			return
		}
	}
	if cfg.Kafka.Enabled {
		kafka.InitProducer(cfg.Kafka)
		defer kafka.Close()
	}

	// 5. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	sessionRepo := repository.NewSessionRepository(database.DB)
	chatRepo := repository.NewChatRepository(database.DB)

	// 6. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	llmClient := llm.NewClient(cfg.LLM)
	userService := service.NewUserService(userRepo, sessionRepo, jwtManager, database.RDB)
	sessionService := service.NewSessionService(sessionRepo, chatRepo)
	chatService := service.NewChatService(sessionService, chatRepo, llmClient, cfg.Chat, cfg.Kafka, cfg.Elasticsearch)
	searchService := service.NewSearchService(cfg.Elasticsearch)

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())
	if cfg.CORS.AllowedOrigin != "" {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = []string{cfg.CORS.AllowedOrigin}
		corsCfg.AllowCredentials = true
		corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
		r.Use(cors.New(corsCfg))
	}

	// 8. 注册路由
	userHandler := handler.NewUserHandler(userService)
	authHandler := handler.NewAuthHandler(userService)
	sessionHandler := handler.NewSessionHandler(sessionService, searchService, cfg.Chat)
	chatHandler := handler.NewChatHandler(chatService, userService, jwtManager)
	authed := middleware.AuthMiddleware(jwtManager, userService)

	auth := r.Group("/auth")
	{
		auth.POST("/refreshToken", authHandler.RefreshToken)
	}

	users := r.Group("/users")
	{
		// 无需认证的路由 (公开访问)
		users.POST("/signup", userHandler.Signup)
		users.POST("/login", userHandler.Login)

		// 需要认证的路由 (仅限登录用户访问)
		me := users.Group("/")
		me.Use(authed)
		{
			me.GET("/me", userHandler.GetProfile)
			me.PUT("/me", userHandler.UpdateProfile)
			me.POST("/logout", userHandler.Logout)
		}
	}

	sessions := r.Group("/sessions")
	sessions.Use(authed)
	{
		sessions.POST("/", sessionHandler.CreateSession)
		sessions.GET("/", sessionHandler.ListSessions)
		sessions.GET("/search", sessionHandler.SearchChats)
		sessions.GET("/:id/history", sessionHandler.GetHistory)
		sessions.PUT("/:id", sessionHandler.RenameSession)
		sessions.DELETE("/:id", sessionHandler.DeleteSession)
		sessions.POST("/:id/messages", chatHandler.PostMessage)
	}

	// Chat 路由 (WebSocket)
	r.GET("/chat/:token", chatHandler.Handle)

	// 9. 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
