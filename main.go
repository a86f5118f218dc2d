package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cv-avatar-server/src/configs"
	"cv-avatar-server/src/core/avatar"
	"cv-avatar-server/src/core/mailer"
	"cv-avatar-server/src/core/middleware"
	"cv-avatar-server/src/core/providers/llm"
	_ "cv-avatar-server/src/core/providers/llm/openai"
	"cv-avatar-server/src/core/resume"
	"cv-avatar-server/src/core/utils"
	httpavatar "cv-avatar-server/src/httpsvr/avatar"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	config, configPath, err := configs.LoadConfig("config.yaml")
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 密钥优先取配置文件，未配置时回退到环境变量
	llmName := config.SelectedModule["LLM"]
	llmCfg, ok := config.LLM[llmName]
	if !ok {
		fmt.Printf("未找到LLM配置: %s\n", llmName)
		os.Exit(1)
	}
	if llmCfg.APIKey == "" {
		llmCfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if config.Email.APIKey == "" {
		config.Email.APIKey = os.Getenv("RESEND_API_KEY")
	}

	logger, err := utils.NewLogger(config.Log.LogLevel, config.Log.LogDir, config.Log.LogFile)
	if err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()
	logger.Info("配置加载完成: %s", configPath)

	provider, err := llm.Create(llmCfg.Type, &llm.Config{
		Name:             llmName,
		Type:             llmCfg.Type,
		ModelName:        llmCfg.ModelName,
		BaseURL:          llmCfg.BaseURL,
		APIKey:           llmCfg.APIKey,
		Temperature:      llmCfg.Temperature,
		TopP:             llmCfg.TopP,
		MaxTokens:        llmCfg.MaxTokens,
		SupportsSampling: llmCfg.SupportsSampling,
		Extra:            llmCfg.Extra,
	}, logger)
	if err != nil {
		logger.Error("创建LLM提供者失败: %v", err)
		os.Exit(1)
	}
	defer provider.Cleanup()

	cvContent, err := resume.ExtractText(config.Avatar.CVPath)
	if err != nil {
		logger.Error("读取简历失败: %v", err)
		os.Exit(1)
	}
	logger.Info("简历已加载: %s (%d字符)", config.Avatar.CVPath, len(cvContent))

	notifier := mailer.NewResendNotifier(&config.Email, logger)
	engine, err := avatar.NewEngine(config, logger, provider, notifier, cvContent)
	if err != nil {
		logger.Error("创建会话引擎失败: %v", err)
		os.Exit(1)
	}
	logger.Info("会话引擎已就绪: session_id=%s", engine.SessionID())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")
	avatarService := httpavatar.NewAvatarService(config, logger, engine)
	avatarService.Start(ctx, router, apiGroup)

	addr := fmt.Sprintf("%s:%d", config.Server.IP, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP服务启动: http://%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP服务启动失败: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("收到退出信号，正在关闭HTTP服务")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("服务退出: %v", err)
		os.Exit(1)
	}
	logger.Info("服务已退出")
}
