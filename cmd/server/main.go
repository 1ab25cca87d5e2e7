package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"records-service/internal/MinIO"
	"records-service/internal/config"
	"records-service/internal/handler/authHandler"
	"records-service/internal/handler/folderHandler"
	"records-service/internal/repository/BlackListRepo"
	"records-service/internal/repository/folderRepo"
	"records-service/internal/repository/refreshToken"
	"records-service/internal/repository/resetToken"
	"records-service/internal/repository/userRepo"
	"records-service/internal/service"
	"records-service/internal/service/folderService"
	"records-service/pkg/database/postgres"
	"records-service/pkg/database/redis"
	"records-service/pkg/logger"
	"records-service/pkg/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	ctx, err := logger.New(context.Background())
	if err != nil {
		panic(err)
	}
	log := logger.GetLogger(ctx)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	pool, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	redisClient := redis.New(cfg.Redis)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("cannot connect to Redis", zap.Error(err))
	}

	minioClient, err := MinIO.New(ctx, cfg.MinIO)
	if err != nil {
		log.Fatal("cannot connect to MinIO", zap.Error(err))
	}

	authSvc := service.New(
		userRepo.New(pool),
		cfg.JWTSecret,
		refreshToken.New(redisClient),
		BlackListRepo.NewBlackListRepo(redisClient),
		resetToken.New(redisClient),
	)
	folderSvc := folderService.New(folderRepo.New(pool), minioClient)

	authH := authHandler.New(authSvc, log)
	folderH := folderHandler.New(folderSvc, log)

	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsCfg))

	api := r.Group("/api")
	{
		api.POST("/register", authH.Register)
		api.POST("/login", authH.Login)
		api.POST("/refresh", authH.Refresh)
		api.POST("/forgot-password", authH.ForgotPassword)
		api.POST("/reset-password", authH.ResetPassword)

		authorized := api.Group("/")
		authorized.Use(middleware.Auth(authSvc))
		{
			authorized.POST("/logout", authH.Logout)
			authorized.GET("/me", authH.Me)

			authorized.GET("/folders", folderH.List)
			authorized.POST("/folders", folderH.Create)
			authorized.GET("/folders/:folderId", folderH.Get)
			authorized.PATCH("/folders/:folderId", folderH.Rename)
			authorized.DELETE("/folders/:folderId", folderH.Delete)
			authorized.POST("/folders/:folderId/files", folderH.UploadFiles)
			authorized.DELETE("/folders/:folderId/files/:fileName", folderH.DeleteFile)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	go func() {
		log.Info("server started", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to serve", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	log.Info("server stopped")
}
