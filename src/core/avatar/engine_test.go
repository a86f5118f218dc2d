package avatar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"cv-avatar-server/src/configs"
	"cv-avatar-server/src/core/providers/llm"
	"cv-avatar-server/src/core/types"
	"cv-avatar-server/src/core/utils"

	openai "github.com/angrymiao/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider 按脚本响应的假LLM提供者
type fakeProvider struct {
	appropriate      bool
	explanation      string
	firstResponse    *types.Message
	followUp         *types.Message
	functionsErr     error
	structureCalls   int
	functionsCalls   int
	responseCalls    int
	lastTools        []openai.Tool
	lastFunctionsMsg []types.Message
	lastResponseMsg  []types.Message
}

func (f *fakeProvider) Response(ctx context.Context, sessionID string, messages []types.Message, opts *llm.ChatOptions) (*types.Message, error) {
	f.responseCalls++
	f.lastResponseMsg = messages
	return f.followUp, nil
}

func (f *fakeProvider) ResponseWithFunctions(ctx context.Context, sessionID string, messages []types.Message, tools []openai.Tool, opts *llm.ChatOptions) (*types.Message, error) {
	f.functionsCalls++
	f.lastTools = tools
	f.lastFunctionsMsg = messages
	if f.functionsErr != nil {
		return nil, f.functionsErr
	}
	return f.firstResponse, nil
}

func (f *fakeProvider) ResponseWithStructure(ctx context.Context, sessionID string, messages []types.Message, schemaName string, out interface{}) error {
	f.structureCalls++
	verdict := map[string]interface{}{
		"is_message_appropriate": f.appropriate,
		"answer_explanation":     f.explanation,
	}
	data, _ := json.Marshal(verdict)
	return json.Unmarshal(data, out)
}

func (f *fakeProvider) Cleanup() error { return nil }

// fakeNotifier 记录发送请求的假邮件发送器
type fakeNotifier struct {
	err   error
	sends []sentEmail
}

type sentEmail struct {
	to      string
	subject string
	html    string
}

func (f *fakeNotifier) Send(ctx context.Context, to, subject, html string) error {
	f.sends = append(f.sends, sentEmail{to: to, subject: subject, html: html})
	return f.err
}

func testConfig() *configs.Config {
	config := &configs.Config{}
	config.Guardrails.MaxMessageLength = 500
	config.Guardrails.MaxHistorySize = 30
	config.Avatar.Name = "Juraj Kubica"
	config.Avatar.Summary = "Software engineer."
	config.Avatar.PreferredRoles = []string{"Data Architect"}
	config.Avatar.Personality = "Ambitious and detail oriented."
	config.Avatar.Contact = "owner@example.com"
	config.Email.Owner = "owner@example.com"
	config.Email.NotifyOnNewSession = false
	config.Defaults.TopP = 0.3
	config.Defaults.Temperature = 0.5
	return config
}

func newTestEngine(t *testing.T, config *configs.Config, provider *fakeProvider, notifier *fakeNotifier, logBuf *bytes.Buffer) *Engine {
	t.Helper()
	if logBuf == nil {
		logBuf = &bytes.Buffer{}
	}
	engine, err := NewEngine(config, utils.NewLoggerWithWriter("INFO", logBuf), provider, notifier, "CV TEXT")
	require.NoError(t, err)
	return engine
}

func toolCallResponse(arguments string) *types.Message {
	return &types.Message{
		Role: types.RoleAssistant,
		ToolCalls: []types.ToolCall{{
			ID:   "call_1",
			Type: "function",
			Function: types.FunctionCall{
				Name:      "send_email",
				Arguments: arguments,
			},
		}},
	}
}

func TestChatPlainAnswer(t *testing.T) {
	provider := &fakeProvider{
		appropriate:   true,
		firstResponse: &types.Message{Role: types.RoleAssistant, Content: "Hello, nice to meet you!"},
	}
	notifier := &fakeNotifier{}
	logBuf := &bytes.Buffer{}
	engine := newTestEngine(t, testConfig(), provider, notifier, logBuf)

	answer, err := engine.Chat(context.Background(), "hello", nil, 0.3, 0.5)

	require.NoError(t, err)
	assert.Equal(t, "Hello, nice to meet you!", answer)
	assert.Equal(t, 1, provider.functionsCalls)
	// 没有工具调用时不发起追问
	assert.Equal(t, 0, provider.responseCalls)
	assert.Empty(t, notifier.sends)
	assert.Contains(t, logBuf.String(), "New message: hello")
	assert.Contains(t, logBuf.String(), "Answer: Hello, nice to meet you!")
}

func TestChatSystemMessageFirst(t *testing.T) {
	provider := &fakeProvider{
		appropriate:   true,
		firstResponse: &types.Message{Role: types.RoleAssistant, Content: "ok"},
	}
	engine := newTestEngine(t, testConfig(), provider, &fakeNotifier{}, nil)

	history := []types.Message{
		{Role: types.RoleUser, Content: "earlier question"},
		{Role: types.RoleAssistant, Content: "earlier answer"},
	}
	_, err := engine.Chat(context.Background(), "next question", history, 0.3, 0.5)
	require.NoError(t, err)

	msgs := provider.lastFunctionsMsg
	require.Len(t, msgs, 4)
	assert.Equal(t, types.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Juraj Kubica")
	assert.Contains(t, msgs[0].Content, "CV TEXT")
	assert.Equal(t, "earlier question", msgs[1].Content)
	assert.Equal(t, "earlier answer", msgs[2].Content)
	assert.Equal(t, "next question", msgs[3].Content)

	require.Len(t, provider.lastTools, 1)
	assert.Equal(t, "send_email", provider.lastTools[0].Function.Name)
}

func TestChatToolCall(t *testing.T) {
	provider := &fakeProvider{
		appropriate:   true,
		firstResponse: toolCallResponse(`{"to":"Someone@Example.COM","subject":"Hi","message":"Hello there"}`),
		followUp:      &types.Message{Role: types.RoleAssistant, Content: "Your email was sent."},
	}
	notifier := &fakeNotifier{}
	engine := newTestEngine(t, testConfig(), provider, notifier, nil)

	answer, err := engine.Chat(context.Background(), "send my message please", nil, 0.3, 0.5)

	require.NoError(t, err)
	assert.Equal(t, "Your email was sent.", answer)
	assert.Equal(t, 1, provider.functionsCalls)
	assert.Equal(t, 1, provider.responseCalls)

	require.Len(t, notifier.sends, 1)
	// 收件地址转小写，正文包裹为段落
	assert.Equal(t, "someone@example.com", notifier.sends[0].to)
	assert.Equal(t, "Hi", notifier.sends[0].subject)
	assert.Equal(t, "<p>Hello there</p>", notifier.sends[0].html)

	// 追问请求携带assistant工具调用消息和工具结果消息
	msgs := provider.lastResponseMsg
	require.GreaterOrEqual(t, len(msgs), 2)
	assistantMsg := msgs[len(msgs)-2]
	toolMsg := msgs[len(msgs)-1]
	require.Len(t, assistantMsg.ToolCalls, 1)
	assert.Equal(t, types.RoleTool, toolMsg.Role)
	assert.Equal(t, "call_1", toolMsg.ToolCallID)
	assert.Equal(t, "send_email", toolMsg.Name)
	assert.Equal(t, "Email has been successfully sent.", toolMsg.Content)
}

func TestChatOversizeMessage(t *testing.T) {
	provider := &fakeProvider{appropriate: true}
	engine := newTestEngine(t, testConfig(), provider, &fakeNotifier{}, nil)

	answer, err := engine.Chat(context.Background(), strings.Repeat("a", 600), nil, 0.3, 0.5)

	require.NoError(t, err)
	assert.Equal(t, "Message is bigger then 500. Please reduce user input", answer)
	// 校验失败时完全不触达模型
	assert.Equal(t, 0, provider.structureCalls)
	assert.Equal(t, 0, provider.functionsCalls)
}

func TestChatInappropriateMessage(t *testing.T) {
	provider := &fakeProvider{
		appropriate: false,
		explanation: "The message contains offensive language.",
	}
	engine := newTestEngine(t, testConfig(), provider, &fakeNotifier{}, nil)

	answer, err := engine.Chat(context.Background(), "rude text", nil, 0.3, 0.5)

	require.NoError(t, err)
	assert.Equal(t, "The message contains offensive language.", answer)
	assert.Equal(t, 0, provider.functionsCalls)
}

func TestChatMalformedToolArguments(t *testing.T) {
	provider := &fakeProvider{
		appropriate:   true,
		firstResponse: toolCallResponse("not-json"),
		followUp:      &types.Message{Role: types.RoleAssistant, Content: "Sorry, the email could not be sent."},
	}
	notifier := &fakeNotifier{}
	engine := newTestEngine(t, testConfig(), provider, notifier, nil)

	answer, err := engine.Chat(context.Background(), "send it", nil, 0.3, 0.5)

	require.NoError(t, err)
	assert.Equal(t, "Sorry, the email could not be sent.", answer)
	assert.Empty(t, notifier.sends)

	toolMsg := provider.lastResponseMsg[len(provider.lastResponseMsg)-1]
	assert.Equal(t, "The send_email tool failed and the action was not completed.", toolMsg.Content)
}

func TestChatNotifierFailure(t *testing.T) {
	provider := &fakeProvider{
		appropriate:   true,
		firstResponse: toolCallResponse(`{"to":"a@b.c","subject":"Hi","message":"Hello"}`),
		followUp:      &types.Message{Role: types.RoleAssistant, Content: "Sending failed, sorry."},
	}
	notifier := &fakeNotifier{err: errors.New("resend unavailable")}
	engine := newTestEngine(t, testConfig(), provider, notifier, nil)

	answer, err := engine.Chat(context.Background(), "send it", nil, 0.3, 0.5)

	require.NoError(t, err)
	assert.Equal(t, "Sending failed, sorry.", answer)
	require.Len(t, notifier.sends, 1)

	toolMsg := provider.lastResponseMsg[len(provider.lastResponseMsg)-1]
	assert.Equal(t, "The send_email tool failed and the action was not completed.", toolMsg.Content)
}

func TestChatProviderError(t *testing.T) {
	provider := &fakeProvider{
		appropriate:  true,
		functionsErr: errors.New("upstream timeout"),
	}
	engine := newTestEngine(t, testConfig(), provider, &fakeNotifier{}, nil)

	_, err := engine.Chat(context.Background(), "hello", nil, 0.3, 0.5)
	require.Error(t, err)
}

func TestChatHistoryReduction(t *testing.T) {
	provider := &fakeProvider{
		appropriate:   true,
		firstResponse: &types.Message{Role: types.RoleAssistant, Content: "ok"},
	}
	engine := newTestEngine(t, testConfig(), provider, &fakeNotifier{}, nil)

	history := make([]types.Message, 0, 40)
	for i := 0; i < 40; i++ {
		role := types.RoleUser
		if i%2 == 1 {
			role = types.RoleAssistant
		}
		history = append(history, types.Message{Role: role, Content: "h"})
	}

	_, err := engine.Chat(context.Background(), "hello", history, 0.3, 0.5)
	require.NoError(t, err)

	// system + 截断后的10条历史 + 本轮消息
	assert.Len(t, provider.lastFunctionsMsg, 12)
}

func TestNewEngineNotifiesOwner(t *testing.T) {
	config := testConfig()
	config.Email.NotifyOnNewSession = true
	provider := &fakeProvider{appropriate: true}
	notifier := &fakeNotifier{}

	engine := newTestEngine(t, config, provider, notifier, nil)

	require.Len(t, notifier.sends, 1)
	assert.Equal(t, "owner@example.com", notifier.sends[0].to)
	assert.Equal(t, "New conversation of personal avatar", notifier.sends[0].subject)
	assert.Contains(t, notifier.sends[0].html, engine.SessionID())
}

func TestNewEngineNotifyFailureIsNonFatal(t *testing.T) {
	config := testConfig()
	config.Email.NotifyOnNewSession = true
	notifier := &fakeNotifier{err: errors.New("resend unavailable")}

	engine := newTestEngine(t, config, &fakeProvider{appropriate: true}, notifier, nil)
	assert.NotEmpty(t, engine.SessionID())
}
