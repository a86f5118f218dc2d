package avatar

import (
	"context"
	"net/http"

	"cv-avatar-server/src/configs"
	"cv-avatar-server/src/core/types"
	"cv-avatar-server/src/core/utils"

	"github.com/gin-gonic/gin"
)

// 服务错误时返回给用户的兜底回答
const fallbackAnswer = "I am sorry, something went wrong on my side. Please try again in a moment."

// Chatter 会话引擎接口
type Chatter interface {
	Chat(ctx context.Context, message string, history []types.Message, topP, temperature float64) (string, error)
	SessionID() string
}

// AvatarService 化身HTTP服务
type AvatarService struct {
	logger *utils.Logger
	config *configs.Config
	engine Chatter
}

// NewAvatarService 创建化身HTTP服务
func NewAvatarService(config *configs.Config, logger *utils.Logger, engine Chatter) *AvatarService {
	return &AvatarService{
		logger: logger,
		config: config,
		engine: engine,
	}
}

// Start 注册化身相关路由
func (s *AvatarService) Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) {
	avatarGroup := apiGroup.Group("/avatar")
	{
		avatarGroup.POST("/chat", s.handleChat)
		avatarGroup.GET("/session", s.handleSession)
		avatarGroup.GET("/cv", s.handleDownloadCV)
	}
}

// handleChat 处理一轮聊天请求
func (s *AvatarService) handleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "请求参数格式错误")
		return
	}

	// 采样参数缺省时取配置默认值，越界直接拒绝
	topP := s.config.Defaults.TopP
	if req.TopP != nil {
		if *req.TopP < 0 || *req.TopP > 1 {
			utils.Error(c, http.StatusBadRequest, "top_p取值范围为[0,1]")
			return
		}
		topP = *req.TopP
	}
	temperature := s.config.Defaults.Temperature
	if req.Temperature != nil {
		if *req.Temperature < 0 || *req.Temperature > 2 {
			utils.Error(c, http.StatusBadRequest, "temperature取值范围为[0,2]")
			return
		}
		temperature = *req.Temperature
	}

	answer, err := s.engine.Chat(c.Request.Context(), req.Message, req.History, topP, temperature)
	if err != nil {
		s.logger.Error("[%s] 对话处理失败: %v", s.engine.SessionID(), err)
		utils.Custom(c, http.StatusInternalServerError, ChatResponse{
			Success:   false,
			Answer:    fallbackAnswer,
			SessionID: s.engine.SessionID(),
		})
		return
	}

	utils.Success(c, ChatResponse{
		Success:   true,
		Answer:    answer,
		SessionID: s.engine.SessionID(),
	})
}

// handleSession 返回当前会话信息
func (s *AvatarService) handleSession(c *gin.Context) {
	utils.Success(c, SessionResponse{SessionID: s.engine.SessionID()})
}

// handleDownloadCV 下载简历原始PDF
func (s *AvatarService) handleDownloadCV(c *gin.Context) {
	c.FileAttachment(s.config.Avatar.CVPath, "cv.pdf")
}
