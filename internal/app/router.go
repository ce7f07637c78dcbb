package app

import (
	"time"

	"peekify_backend/docs"
	"peekify_backend/internal/config"
	"peekify_backend/internal/middleware"
	"peekify_backend/pkg/monitoring"
	"peekify_backend/pkg/security"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.GET("/auth/login", c.auth.Login)
		public.GET("/auth/callback", c.auth.Callback)
		public.GET("/notifications/vapid-key", c.notification.VAPIDKey)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		// 认证
		authGroup.GET("/auth/me", c.auth.Me)
		authGroup.POST("/auth/logout", c.auth.Logout)

		// 用户
		authGroup.GET("/users/me", c.user.GetMe)
		authGroup.PATCH("/users/me", c.user.UpdateMe)
		authGroup.POST("/users/me/avatar", c.user.UploadAvatar)
		authGroup.GET("/users/search", c.user.Search)
		authGroup.GET("/users/:id", c.user.GetProfile)
		authGroup.GET("/users/:id/online", c.realtime.IsOnline)

		// 动态流
		authGroup.GET("/feed", c.feed.GetFeed)
		authGroup.POST("/feed", c.feed.CreateFeedItem)
		authGroup.GET("/feed/user/:id", c.feed.GetUserFeed)
		authGroup.GET("/feed/:id", c.feed.GetFeedItem)

		// 评论
		authGroup.GET("/feed/:id/comments", c.comment.GetComments)
		authGroup.POST("/feed/:id/comments", c.comment.AddComment)
		authGroup.DELETE("/comments/:id", c.comment.DeleteComment)
		authGroup.POST("/comments/:id/like", c.comment.ToggleLike)
		authGroup.GET("/comments/:id/likes", c.comment.GetLikers)

		// 表态
		authGroup.GET("/feed/:id/reactions", c.reaction.GetReactions)
		authGroup.POST("/feed/:id/reactions", c.reaction.AddReaction)
		authGroup.DELETE("/feed/:id/reactions", c.reaction.RemoveReaction)

		// 好友
		authGroup.GET("/friends", c.friend.GetFriends)
		authGroup.DELETE("/friends/:id", c.friend.RemoveFriend)
		authGroup.GET("/friends/requests", c.friend.GetRequests)
		authGroup.POST("/friends/requests", c.friend.SendRequest)
		authGroup.POST("/friends/requests/:id/accept", c.friend.AcceptRequest)
		authGroup.POST("/friends/requests/:id/decline", c.friend.DeclineRequest)

		// 播放历史（同步开销大，单独更严格的限流）
		syncLimit := cfg.RateLimit.SyncMaxRequests
		if syncLimit <= 0 {
			syncLimit = 10
		}
		syncWindow := time.Duration(cfg.RateLimit.SyncWindowHours) * time.Hour
		if syncWindow <= 0 {
			syncWindow = time.Hour
		}
		authGroup.POST("/history/sync", security.RateLimiter(syncLimit, syncWindow), c.history.Sync)
		authGroup.GET("/history", c.history.GetHistory)
		authGroup.GET("/history/stats", c.history.GetStats)
		authGroup.GET("/history/today", c.history.GetTodaysReplay)

		// Spotify 代理
		authGroup.POST("/spotify/queue", c.spotify.AddToQueue)
		authGroup.POST("/spotify/play", c.spotify.Play)
		authGroup.GET("/spotify/devices", c.spotify.Devices)
		authGroup.GET("/spotify/currently-playing", c.spotify.CurrentlyPlaying)
		authGroup.GET("/spotify/search", c.spotify.Search)

		// 推送订阅
		authGroup.POST("/notifications/subscribe", c.notification.Subscribe)
		authGroup.POST("/notifications/unsubscribe", c.notification.Unsubscribe)

		// WebSocket
		authGroup.GET("/ws", c.realtime.HandleWS)
	}
}
