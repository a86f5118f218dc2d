package avatar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cv-avatar-server/src/configs"
	"cv-avatar-server/src/core/chat"
	"cv-avatar-server/src/core/function"
	"cv-avatar-server/src/core/guardrails"
	"cv-avatar-server/src/core/mailer"
	"cv-avatar-server/src/core/providers/llm"
	"cv-avatar-server/src/core/types"
	"cv-avatar-server/src/core/utils"

	openai "github.com/angrymiao/go-openai"
	"github.com/angrymiao/go-openai/jsonschema"
	"github.com/google/uuid"
)

// Engine 化身会话引擎，承载单个会话的完整对话回合
type Engine struct {
	config           *configs.Config
	logger           *utils.Logger
	provider         llm.Provider
	guardrails       *guardrails.Guardrails
	notifier         mailer.Notifier
	functionRegister *function.FunctionRegistry
	sessionID        string
	cvContent        string
}

// sendEmailArgs send_email工具的参数契约
type sendEmailArgs struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// NewEngine 创建化身会话引擎
// 注册工具并按配置向主人发送新会话通知，通知失败不影响会话启动
func NewEngine(config *configs.Config, logger *utils.Logger, provider llm.Provider, notifier mailer.Notifier, cvContent string) (*Engine, error) {
	e := &Engine{
		config:           config,
		logger:           logger,
		provider:         provider,
		guardrails:       guardrails.New(provider, logger, config.Guardrails.MaxMessageLength),
		notifier:         notifier,
		functionRegister: function.NewFunctionRegistry(),
		sessionID:        uuid.NewString(),
		cvContent:        cvContent,
	}

	if err := e.registerTools(); err != nil {
		return nil, err
	}

	if config.Email.NotifyOnNewSession {
		e.notifyNewConversation(context.Background())
	}
	return e, nil
}

// SessionID 当前会话标识
func (e *Engine) SessionID() string {
	return e.sessionID
}

func (e *Engine) registerTools() error {
	sendEmailTool := openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        string(function.ToolSendEmail),
			Description: "Send an email",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"to":      {Type: jsonschema.String, Description: "Recipient email address"},
					"subject": {Type: jsonschema.String, Description: "Email subject"},
					"message": {Type: jsonschema.String, Description: "Email body"},
				},
				Required: []string{"to", "subject", "message"},
			},
		},
	}
	return e.functionRegister.RegisterFunction(function.ToolSendEmail, sendEmailTool, e.handleSendEmail)
}

// notifyNewConversation 新会话开始时通知化身主人
func (e *Engine) notifyNewConversation(ctx context.Context) {
	subject := "New conversation of personal avatar"
	html := fmt.Sprintf("<p>New conversation of personal avatar began with session id %s</p>", e.sessionID)
	if err := e.notifier.Send(ctx, e.config.Email.Owner, subject, html); err != nil {
		e.logger.Warn("[%s] 新会话通知发送失败: %v", e.sessionID, err)
	}
}

// handleSendEmail send_email工具的处理函数
// 收件地址统一转为小写，正文包裹为HTML段落
func (e *Engine) handleSendEmail(ctx context.Context, arguments string) (string, error) {
	args := &sendEmailArgs{}
	if err := json.Unmarshal([]byte(arguments), args); err != nil {
		return "", fmt.Errorf("解析工具参数失败: %w", err)
	}

	to := strings.ToLower(args.To)
	e.logger.Info("[%s] Sending email to : %s with subject %s", e.sessionID, to, args.Subject)

	html := fmt.Sprintf("<p>%s</p>", args.Message)
	if err := e.notifier.Send(ctx, to, args.Subject, html); err != nil {
		return "", err
	}
	return "Email has been successfully sent.", nil
}

// Chat 处理一轮对话
// 回合流程: 历史截断 -> 输入校验 -> 首次请求(带工具) -> 执行工具调用 -> 追问模型得到最终回答
// 校验失败的文本直接作为回答返回，服务错误通过error返回
func (e *Engine) Chat(ctx context.Context, message string, history []types.Message, topP, temperature float64) (string, error) {
	history = e.guardrails.ReduceHistory(history, e.config.Guardrails.MaxHistorySize)

	if err := e.guardrails.Validate(ctx, message); err != nil {
		var validationErr *guardrails.ValidationError
		if errors.As(err, &validationErr) {
			e.logger.Error("[%s] Validation error: %s", e.sessionID, validationErr.Error())
			return validationErr.Error(), nil
		}
		return "", err
	}

	e.logger.Info("[%s] New message: %s", e.sessionID, message)

	dialogue := chat.NewDialogueManager(e.logger)
	dialogue.SetSystemMessage(buildSystemPrompt(&e.config.Avatar, e.cvContent))
	dialogue.PutHistory(history)
	dialogue.Put(types.Message{Role: types.RoleUser, Content: message})

	opts := &llm.ChatOptions{Temperature: temperature, TopP: topP}
	response, err := e.provider.ResponseWithFunctions(ctx, e.sessionID, dialogue.GetLLMDialogue(), e.functionRegister.GetAllFunctions(), opts)
	if err != nil {
		return "", err
	}

	answer := response.Content
	if len(response.ToolCalls) > 0 {
		dialogue.Put(*response)

		for _, toolCall := range response.ToolCalls {
			result, err := e.functionRegister.Dispatch(ctx, toolCall.Function.Name, toolCall.Function.Arguments)
			if err != nil {
				// 工具失败如实告知模型，让模型在回答中向用户解释
				e.logger.Error("[%s] 工具 %s 执行失败: %v", e.sessionID, toolCall.Function.Name, err)
				result = fmt.Sprintf("The %s tool failed and the action was not completed.", toolCall.Function.Name)
			}
			dialogue.Put(types.Message{
				Role:       types.RoleTool,
				Content:    result,
				ToolCallID: toolCall.ID,
				Name:       toolCall.Function.Name,
			})
		}

		followUp, err := e.provider.Response(ctx, e.sessionID, dialogue.GetLLMDialogue(), opts)
		if err != nil {
			return "", err
		}
		answer = followUp.Content
	}

	e.logger.Info("[%s] Answer: %s", e.sessionID, answer)
	return answer, nil
}
