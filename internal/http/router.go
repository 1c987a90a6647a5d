package http

import (
	"github.com/gin-gonic/gin"
	"github.com/iyhunko/eco-consumo/internal/http/controller"
	"github.com/iyhunko/eco-consumo/internal/http/middleware"
)

func InitRouter(server *gin.Engine, con *controller.Controller, productCtr *controller.ProductController) *gin.Engine {
	// Recovery sits innermost so the logger records the 500 it writes
	server.Use(middleware.Logger(), middleware.CORS(), middleware.Recovery())

	server.GET("/ping", con.Ping)
	server.GET("/health", con.Health)

	products := server.Group("/products")
	{
		products.GET("", productCtr.GetProduct)
		products.GET("/", productCtr.GetProduct)
		products.GET("/:barcode", productCtr.GetProduct)
		products.POST("/evaluate", productCtr.Evaluate)
	}

	return server
}
