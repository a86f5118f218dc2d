package guardrails

import (
	"context"
	"fmt"

	"cv-avatar-server/src/core/providers/llm"
	"cv-avatar-server/src/core/types"
	"cv-avatar-server/src/core/utils"
)

// 内容审核指令，固定不随配置变化
const contentControllerInstruction = `# Role
System Content Controller

# Objective
Check that the input message does not contain obscene, expressive,
offensive or otherwise inappropriate language.`

// ValidationError 输入校验错误，错误文本直接作为聊天回答展示给用户
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Verdict 内容审核的结构化输出契约
type Verdict struct {
	IsMessageAppropriate bool   `json:"is_message_appropriate"`
	AnswerExplanation    string `json:"answer_explanation"`
}

// Guardrails 输入护栏：长度限制 + LLM内容审核 + 历史截断
type Guardrails struct {
	provider         llm.Provider
	logger           *utils.Logger
	maxMessageLength int
}

// New 创建护栏实例
func New(provider llm.Provider, logger *utils.Logger, maxMessageLength int) *Guardrails {
	return &Guardrails{
		provider:         provider,
		logger:           logger,
		maxMessageLength: maxMessageLength,
	}
}

// Validate 校验单条用户输入
// 先做长度检查再做内容审核，长度超限时不发起模型调用；
// 校验失败返回*ValidationError，审核请求本身失败返回普通错误
func (g *Guardrails) Validate(ctx context.Context, message string) error {
	if err := g.validateMaxLength(message); err != nil {
		return err
	}
	return g.validateExpressiveTerms(ctx, message)
}

func (g *Guardrails) validateMaxLength(message string) error {
	if len(message) > g.maxMessageLength {
		return &ValidationError{
			Reason: fmt.Sprintf("Message is bigger then %d. Please reduce user input", g.maxMessageLength),
		}
	}
	return nil
}

func (g *Guardrails) validateExpressiveTerms(ctx context.Context, message string) error {
	messages := []types.Message{
		{Role: types.RoleSystem, Content: contentControllerInstruction},
		{Role: types.RoleUser, Content: message},
	}

	verdict := &Verdict{}
	if err := g.provider.ResponseWithStructure(ctx, "guardrails", messages, "expressive_term_eval", verdict); err != nil {
		return fmt.Errorf("内容审核请求失败: %w", err)
	}
	if !verdict.IsMessageAppropriate {
		return &ValidationError{Reason: verdict.AnswerExplanation}
	}
	return nil
}

// ReduceHistory 控制历史长度以节省成本、避免上下文溢出
// 超限时丢弃最旧的maxSizeHistory条，只保留history[maxSizeHistory:]的后缀；
// 注意这不是"保留最近N条"的语义，与上游实现保持一致
func (g *Guardrails) ReduceHistory(history []types.Message, maxSizeHistory int) []types.Message {
	if len(history) > maxSizeHistory {
		return history[maxSizeHistory:]
	}
	return history
}
