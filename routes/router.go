package routes

import (
	"log"
	"net/http"
	"os"
	"time"

	"pollpulse-backend/handlers"
	"pollpulse-backend/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Server 是HTTP服务器的封装
type Server struct {
	*http.Server
}

// SetupRouter 设置和配置Gin路由
func SetupRouter() *gin.Engine {
	router := gin.Default()

	// 配置CORS中间件
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // 生产环境中应限制为前端域名
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", handlers.AdminTokenHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 初始化限流器和管理员会话
	handlers.InitRateLimiters()
	handlers.InitAdminSessions(session.NewStore(0))

	// 静态前端
	router.StaticFile("/", "./public/index.html")
	router.Static("/js", "./public/js")
	router.Static("/css", "./public/css")

	RegisterAPIRoutes(router)

	return router
}

// RegisterAPIRoutes 挂载 /api 下的全部端点
func RegisterAPIRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/stats/global", handlers.GetGlobalStats)
		api.GET("/leaderboard", handlers.GetLeaderboard)

		polls := api.Group("/polls")
		{
			polls.GET("", handlers.GetPolls)
			polls.POST("", handlers.CreatePoll)
			polls.GET("/:id", handlers.GetPoll)
			polls.POST("/:id/vote", handlers.VoteRateLimitMiddleware(), handlers.SubmitVote)
		}

		admin := api.Group("/admin")
		{
			admin.POST("/login", handlers.AdminLogin)

			protected := admin.Group("", handlers.RequireAdmin())
			{
				protected.POST("/logout", handlers.AdminLogout)
				protected.GET("/polls", handlers.AdminListPolls)
				protected.GET("/polls/:id/voters", handlers.ListPollVoters)
				protected.PATCH("/polls/:id/status", handlers.SetPollStatus)
				protected.DELETE("/polls/:id", handlers.DeletePoll)
			}
		}
	}
}

// StartServer 启动HTTP服务器
func StartServer(router *gin.Engine) *Server {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8090" // 默认端口
	}

	addr := ":" + port

	srv := &Server{
		&http.Server{
			Addr:    addr,
			Handler: router,
		},
	}

	go func() {
		log.Printf("服务器启动在 %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	return srv
}
