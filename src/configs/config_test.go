package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	// 指向不存在的文件，应完整回退到默认配置
	config, _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", config.Server.IP)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "OpenAILLM", config.SelectedModule["LLM"])

	llmCfg := config.LLM["OpenAILLM"]
	assert.Equal(t, "openai", llmCfg.Type)
	assert.Equal(t, "gpt-4.1", llmCfg.ModelName)
	assert.True(t, llmCfg.SupportsSampling)

	assert.Equal(t, 500, config.Guardrails.MaxMessageLength)
	assert.Equal(t, 30, config.Guardrails.MaxHistorySize)
	assert.Equal(t, "interviewapp@resend.dev", config.Email.From)
	assert.Equal(t, "Juraj Kubica", config.Avatar.Name)
	assert.Len(t, config.Avatar.PreferredRoles, 7)
	assert.Equal(t, 0.3, config.Defaults.TopP)
	assert.Equal(t, 0.5, config.Defaults.Temperature)
}

func TestLoadConfigOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9000
guardrails:
  max_message_length: 200
avatar:
  name: Test Person
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, _, err := LoadConfig(path)
	require.NoError(t, err)

	// 文件中出现的字段覆盖默认值，其余保持默认
	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.IP)
	assert.Equal(t, 200, config.Guardrails.MaxMessageLength)
	assert.Equal(t, 30, config.Guardrails.MaxHistorySize)
	assert.Equal(t, "Test Person", config.Avatar.Name)
}

func TestLoadConfigInvalidYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0644))

	_, _, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigRoundTrip(t *testing.T) {
	config, _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	restored := &Config{}
	require.NoError(t, restored.FromString(config.ToString()))
	assert.Equal(t, config.Guardrails, restored.Guardrails)
	assert.Equal(t, config.Avatar, restored.Avatar)
}
