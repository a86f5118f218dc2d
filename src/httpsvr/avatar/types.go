package avatar

import (
	"cv-avatar-server/src/core/types"
)

// ChatRequest 聊天请求体
// 历史由客户端回传，服务端不持久化会话状态
type ChatRequest struct {
	Message     string          `json:"message" binding:"required"`
	History     []types.Message `json:"history"`
	TopP        *float64        `json:"top_p"`
	Temperature *float64        `json:"temperature"`
}

// ChatResponse 聊天响应体
type ChatResponse struct {
	Success   bool   `json:"success"`
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
}

// SessionResponse 会话信息响应体
type SessionResponse struct {
	SessionID string `json:"session_id"`
}
