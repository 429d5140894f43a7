package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pollpulse-backend/cache"
	"pollpulse-backend/database"
	"pollpulse-backend/handlers"
	"pollpulse-backend/routes"
)

func main() {
	// 初始化数据库连接
	if err := database.InitDB(); err != nil {
		log.Fatalf("无法初始化数据库: %v", err)
	}

	// 初始化Redis（失败时自动降级为模拟模式）
	if err := cache.InitRedis(); err != nil {
		log.Printf("警告: Redis初始化失败: %v", err)
	}
	cache.InitDistLock()

	// 设置路由并启动服务器
	router := routes.SetupRouter()
	srv := routes.StartServer(router)
	log.Println("服务器启动成功")

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 不接受新请求并等待现有请求完成
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务器强制关闭: %v", err)
	}

	handlers.CloseAdminSessions()
	database.CloseDB()
	cache.CloseRedis()

	log.Println("服务器优雅关闭")
}
