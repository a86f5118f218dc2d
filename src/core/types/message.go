package types

// 对话角色常量
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// FunctionCall 模型返回的函数调用内容
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON编码的参数对象
}

// ToolCall 模型返回的工具调用
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// Message 对话消息结构
// system消息必须有且只有一条，且位于消息序列首位；
// tool消息的ToolCallID必须引用前一条assistant消息中的工具调用
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}
