package notifications

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestWSHandler_WebSocketConnection(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("WebSocket连接参数验证", func(t *testing.T) {
		params := map[string]interface{}{
			"user_id":   "user-1",
			"tenant_id": "org-1",
			"token":     "ws-token-123",
		}

		assert.NotEmpty(t, params["user_id"])
		assert.NotEmpty(t, params["token"])
	})
}

func TestWSHandler_SendNotification(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("通知消息结构验证", func(t *testing.T) {
		notification := map[string]interface{}{
			"type":    "websocket",
			"subject": "素材终审通过",
			"body":    "素材 asset-1 已终审通过",
			"data": map[string]interface{}{
				"event_type": "final_approval",
				"asset_id":   "asset-1",
			},
		}

		assert.Equal(t, "websocket", notification["type"])
		assert.NotEmpty(t, notification["subject"])
	})
}

func TestWSHandler_NotificationTypes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("通知类型验证", func(t *testing.T) {
		types := []string{"final_approval", "reviewer_decision", "review_requested"}
		assert.Len(t, types, 3)
		for _, typ := range types {
			assert.NotEmpty(t, typ)
		}
	})
}
