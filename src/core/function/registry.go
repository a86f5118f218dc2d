package function

import (
	"context"
	"fmt"

	openai "github.com/angrymiao/go-openai"
)

// ToolName 工具名称，封闭枚举，不接受未注册的名称
type ToolName string

const (
	// ToolSendEmail 发送邮件工具
	ToolSendEmail ToolName = "send_email"
)

// Handler 工具处理函数，arguments为JSON编码的参数对象，返回写回模型的工具结果文本
type Handler func(ctx context.Context, arguments string) (string, error)

// Function 已注册的工具，定义与处理函数绑定
type Function struct {
	Tool    openai.Tool
	Handler Handler
}

// FunctionRegistry 工具注册表，按注册顺序对外提供工具定义
type FunctionRegistry struct {
	functions map[ToolName]Function
	order     []ToolName
}

// NewFunctionRegistry 创建工具注册表实例
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[ToolName]Function),
	}
}

// RegisterFunction 注册工具定义和处理函数
func (r *FunctionRegistry) RegisterFunction(name ToolName, tool openai.Tool, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("工具 %s 缺少处理函数", name)
	}
	if _, exists := r.functions[name]; exists {
		return fmt.Errorf("工具 %s 已注册", name)
	}
	r.functions[name] = Function{Tool: tool, Handler: handler}
	r.order = append(r.order, name)
	return nil
}

// GetAllFunctions 返回全部工具定义，供请求时附加
func (r *FunctionRegistry) GetAllFunctions() []openai.Tool {
	tools := make([]openai.Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.functions[name].Tool)
	}
	return tools
}

// Dispatch 按名称分发工具调用，未注册的名称返回错误
func (r *FunctionRegistry) Dispatch(ctx context.Context, name string, arguments string) (string, error) {
	fn, ok := r.functions[ToolName(name)]
	if !ok {
		return "", fmt.Errorf("未注册的工具: %s", name)
	}
	return fn.Handler(ctx, arguments)
}
