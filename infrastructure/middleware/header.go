package middlewares

import (
	"fingerprint.gateman.io/application/interfaces"
	"fingerprint.gateman.io/application/middlewares"
	"github.com/gin-gonic/gin"
)

func DeviceHeaderMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		appContext, next := middlewares.DeviceHeaderMiddleware(&interfaces.ApplicationContext[any]{
			Ctx:    ctx,
			Keys:   ctx.Keys,
			Header: ctx.Request.Header,
		})
		if next {
			ctx.Set("AppContext", appContext)
			ctx.Next()
		}
	}
}
