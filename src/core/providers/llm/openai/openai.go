package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"cv-avatar-server/src/core/providers/llm"
	"cv-avatar-server/src/core/types"
	"cv-avatar-server/src/core/utils"

	openai "github.com/angrymiao/go-openai"
	"github.com/angrymiao/go-openai/jsonschema"
)

func init() {
	llm.Register("openai", NewProvider)
}

// Provider 基于OpenAI兼容接口的LLM提供者
type Provider struct {
	config *llm.Config
	logger *utils.Logger
	client *openai.Client
}

// NewProvider 创建OpenAI提供者实例
func NewProvider(config *llm.Config, logger *utils.Logger) (llm.Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API密钥未配置")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &Provider{
		config: config,
		logger: logger,
		client: openai.NewClientWithConfig(clientConfig),
	}, nil
}

// buildMessages 将内部消息转换为OpenAI消息格式
func buildMessages(messages []types.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		m := openai.ChatCompletionMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
			Name:       msg.Name,
		}
		for _, tc := range msg.ToolCalls {
			m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolType(tc.Type),
				Function: openai.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		result = append(result, m)
	}
	return result
}

// parseMessage 将OpenAI返回的消息转换回内部格式
func parseMessage(msg openai.ChatCompletionMessage) *types.Message {
	result := &types.Message{
		Role:    msg.Role,
		Content: msg.Content,
	}
	for _, tc := range msg.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, types.ToolCall{
			ID:   tc.ID,
			Type: string(tc.Type),
			Function: types.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return result
}

// applySampling 按模型能力附加采样参数
func (p *Provider) applySampling(req *openai.ChatCompletionRequest, opts *llm.ChatOptions) {
	if !p.config.SupportsSampling {
		// 部分模型只接受默认采样参数，不能额外设置
		return
	}
	temperature := p.config.Temperature
	topP := p.config.TopP
	if opts != nil {
		temperature = opts.Temperature
		topP = opts.TopP
	}
	req.Temperature = float32(temperature)
	req.TopP = float32(topP)
}

func (p *Provider) createCompletion(ctx context.Context, sessionID string, req openai.ChatCompletionRequest) (*types.Message, error) {
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		p.logger.Error("[%s] LLM请求失败: %v", sessionID, err)
		return nil, fmt.Errorf("LLM请求失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM返回空choices")
	}
	return parseMessage(resp.Choices[0].Message), nil
}

// Response 普通对话请求
func (p *Provider) Response(ctx context.Context, sessionID string, messages []types.Message, opts *llm.ChatOptions) (*types.Message, error) {
	req := openai.ChatCompletionRequest{
		Model:    p.config.ModelName,
		Messages: buildMessages(messages),
	}
	if p.config.MaxTokens > 0 {
		req.MaxTokens = p.config.MaxTokens
	}
	p.applySampling(&req, opts)
	return p.createCompletion(ctx, sessionID, req)
}

// ResponseWithFunctions 携带工具定义的对话请求，tool_choice固定为auto
func (p *Provider) ResponseWithFunctions(ctx context.Context, sessionID string, messages []types.Message, tools []openai.Tool, opts *llm.ChatOptions) (*types.Message, error) {
	req := openai.ChatCompletionRequest{
		Model:      p.config.ModelName,
		Messages:   buildMessages(messages),
		Tools:      tools,
		ToolChoice: "auto",
	}
	if p.config.MaxTokens > 0 {
		req.MaxTokens = p.config.MaxTokens
	}
	p.applySampling(&req, opts)
	return p.createCompletion(ctx, sessionID, req)
}

// ResponseWithStructure 结构化输出请求，强制模型按out的JSON模式返回
func (p *Provider) ResponseWithStructure(ctx context.Context, sessionID string, messages []types.Message, schemaName string, out interface{}) error {
	schema, err := jsonschema.GenerateSchemaForType(out)
	if err != nil {
		return fmt.Errorf("生成JSON模式失败: %w", err)
	}

	req := openai.ChatCompletionRequest{
		Model:    p.config.ModelName,
		Messages: buildMessages(messages),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: schema,
				Strict: true,
			},
		},
	}

	resp, err := p.createCompletion(ctx, sessionID, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(resp.Content), out); err != nil {
		return fmt.Errorf("解析结构化输出失败: %w", err)
	}
	return nil
}

// Cleanup 释放资源
func (p *Provider) Cleanup() error {
	return nil
}
