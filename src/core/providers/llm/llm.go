package llm

import (
	"context"
	"fmt"

	"cv-avatar-server/src/core/types"
	"cv-avatar-server/src/core/utils"

	openai "github.com/angrymiao/go-openai"
)

// Config LLM提供者配置
type Config struct {
	Name             string                 // 配置名称
	Type             string                 // 提供者类型
	ModelName        string                 // 模型名称
	BaseURL          string                 // API地址
	APIKey           string                 // API密钥
	Temperature      float64                // 默认温度参数
	TopP             float64                // 默认TopP参数
	MaxTokens        int                    // 最大令牌数
	SupportsSampling bool                   // 模型是否接受自定义采样参数
	Extra            map[string]interface{} // 额外配置
}

// ChatOptions 单次请求的采样参数，SupportsSampling为false时被忽略
type ChatOptions struct {
	Temperature float64
	TopP        float64
}

// Provider LLM提供者统一接口
type Provider interface {
	// Response 普通对话请求，返回单条assistant消息
	Response(ctx context.Context, sessionID string, messages []types.Message, opts *ChatOptions) (*types.Message, error)

	// ResponseWithFunctions 携带工具定义的对话请求，返回的消息可能包含工具调用
	ResponseWithFunctions(ctx context.Context, sessionID string, messages []types.Message, tools []openai.Tool, opts *ChatOptions) (*types.Message, error)

	// ResponseWithStructure 结构化输出请求，结果解析到out指向的结构体
	ResponseWithStructure(ctx context.Context, sessionID string, messages []types.Message, schemaName string, out interface{}) error

	// Cleanup 释放资源
	Cleanup() error
}

// Factory 提供者工厂函数
type Factory func(config *Config, logger *utils.Logger) (Provider, error)

var factories = make(map[string]Factory)

// Register 注册提供者工厂，由各实现包的init调用
func Register(providerType string, factory Factory) {
	factories[providerType] = factory
}

// Create 根据类型创建LLM提供者实例
func Create(providerType string, config *Config, logger *utils.Logger) (Provider, error) {
	factory, ok := factories[providerType]
	if !ok {
		return nil, fmt.Errorf("不支持的LLM类型: %s", providerType)
	}
	return factory(config, logger)
}
