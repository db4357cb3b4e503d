package tool

import (
	"github.com/gin-gonic/gin"
)

func FastReturnError(msg string) gin.H {
	return gin.H{
		"error": msg,
	}
}

func FastReturnSuccess() gin.H {
	return gin.H{
		"status": "ok",
	}
}

func FastReturnSuccessWithData(data any) gin.H {
	return gin.H{
		"data": data,
	}
}

// FastReturnCameraError carries the camera's structured error code next to the message.
func FastReturnCameraError(code, msg string) gin.H {
	return gin.H{
		"error": msg,
		"code":  code,
	}
}
