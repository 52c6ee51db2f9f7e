package routev1

import (
	apperrors "fingerprint.gateman.io/application/appErrors"
	"fingerprint.gateman.io/application/controller"
	"fingerprint.gateman.io/application/controller/dto"
	"fingerprint.gateman.io/application/interfaces"
	"github.com/gin-gonic/gin"
)

func bindBody[T any](ctx *gin.Context) (*interfaces.ApplicationContext[T], bool) {
	appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
	var body T
	if err := ctx.ShouldBindJSON(&body); err != nil {
		apperrors.ErrorProcessingPayload(ctx, &appContext.DeviceID)
		return nil, false
	}
	return &interfaces.ApplicationContext[T]{
		Ctx:      ctx,
		Body:     &body,
		Keys:     appContext.Keys,
		Header:   appContext.Header,
		DeviceID: appContext.DeviceID,
	}, true
}

func staffParam(ctx *gin.Context) *interfaces.ApplicationContext[dto.StaffIDParamDTO] {
	appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
	return &interfaces.ApplicationContext[dto.StaffIDParamDTO]{
		Ctx:      ctx,
		Body:     &dto.StaffIDParamDTO{StaffID: ctx.Param("staffId")},
		Keys:     appContext.Keys,
		Header:   appContext.Header,
		Param:    map[string]any{"staffId": ctx.Param("staffId")},
		DeviceID: appContext.DeviceID,
	}
}

func FingerprintRouter(router *gin.RouterGroup, fc *controller.FingerprintController) {
	fingerprintRouter := router.Group("/fingerprint")
	{
		fingerprintRouter.POST("/enroll", func(ctx *gin.Context) {
			if appCtx, ok := bindBody[dto.EnrollFingerprintDTO](ctx); ok {
				fc.Enroll(appCtx)
			}
		})

		fingerprintRouter.POST("/enroll/multi", func(ctx *gin.Context) {
			if appCtx, ok := bindBody[dto.MultiEnrollFingerprintDTO](ctx); ok {
				fc.EnrollMulti(appCtx)
			}
		})

		fingerprintRouter.POST("/match", func(ctx *gin.Context) {
			if appCtx, ok := bindBody[dto.MatchFingerprintDTO](ctx); ok {
				fc.Match(appCtx)
			}
		})

		fingerprintRouter.POST("/verify", func(ctx *gin.Context) {
			if appCtx, ok := bindBody[dto.VerifyFingerprintDTO](ctx); ok {
				fc.Verify(appCtx)
			}
		})

		fingerprintRouter.POST("/quality", func(ctx *gin.Context) {
			if appCtx, ok := bindBody[dto.FingerprintQualityDTO](ctx); ok {
				fc.Quality(appCtx)
			}
		})

		fingerprintRouter.POST("/sync", func(ctx *gin.Context) {
			appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
			fc.Sync(&interfaces.ApplicationContext[any]{
				Ctx:      ctx,
				Keys:     appContext.Keys,
				DeviceID: appContext.DeviceID,
			})
		})

		fingerprintRouter.GET("/templates/:staffId", func(ctx *gin.Context) {
			fc.Templates(staffParam(ctx))
		})

		fingerprintRouter.DELETE("/templates/:staffId", func(ctx *gin.Context) {
			fc.Delete(staffParam(ctx))
		})
	}
}
