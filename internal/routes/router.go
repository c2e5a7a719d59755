package routes

import (
	"github.com/gin-gonic/gin"

	"todo-api/internal/controller"
	"todo-api/internal/middleware"
)

func Router(todos *controller.Todos) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(), middleware.CORS())

	// Health for load balancers and K8s probes
	router.GET("/health", todos.Health)
	router.GET("/ready", todos.Ready)

	api := router.Group("/api/todos")
	{
		api.GET("", todos.List)
		api.GET("/", todos.List)
		api.POST("", todos.Create)
		api.POST("/", todos.Create)
		api.PUT("/:id", todos.Update)
		api.DELETE("/:id", todos.Delete)
	}

	return router
}
