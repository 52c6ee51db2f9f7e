package interfaces

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ApplicationContext[T any] struct {
	Ctx      *gin.Context
	Body     *T
	Keys     map[string]any
	Header   http.Header
	Param    map[string]any
	DeviceID string
}

func (ac *ApplicationContext[T]) GetHeader(key string) *string {
	if ac.Header == nil {
		return nil
	}
	value := ac.Header.Get(key)
	if value == "" {
		return nil
	}
	return &value
}

func (ac *ApplicationContext[T]) GetStringParam(key string) string {
	if v, ok := ac.Param[key].(string); ok {
		return v
	}
	return ""
}
