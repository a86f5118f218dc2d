package configs

import (
	"os"

	"gopkg.in/yaml.v3"
)

// LLMConfig LLM配置结构
type LLMConfig struct {
	Type             string                 `yaml:"type"              json:"type"`              // LLM类型
	ModelName        string                 `yaml:"model_name"        json:"model_name"`        // 模型名称
	BaseURL          string                 `yaml:"url"               json:"url"`               // API地址
	APIKey           string                 `yaml:"api_key"           json:"api_key"`           // API密钥
	Temperature      float64                `yaml:"temperature"       json:"temperature"`       // 温度参数
	TopP             float64                `yaml:"top_p"             json:"top_p"`             // TopP参数
	MaxTokens        int                    `yaml:"max_tokens"        json:"max_tokens"`        // 最大令牌数
	SupportsSampling bool                   `yaml:"supports_sampling" json:"supports_sampling"` // 模型是否接受自定义采样参数
	Extra            map[string]interface{} `yaml:",inline"           json:"extra"`             // 额外配置
}

// GuardrailsConfig 输入护栏配置
type GuardrailsConfig struct {
	MaxMessageLength int `yaml:"max_message_length" json:"max_message_length"` // 单条消息最大长度
	MaxHistorySize   int `yaml:"max_history_size"   json:"max_history_size"`   // 历史消息最大条数
}

// EmailConfig 邮件服务配置
type EmailConfig struct {
	APIKey             string `yaml:"api_key"               json:"api_key"`               // Resend API密钥
	From               string `yaml:"from"                  json:"from"`                  // 发件地址（需已验证域名）
	Owner              string `yaml:"owner"                 json:"owner"`                 // 化身主人的邮箱
	NotifyOnNewSession bool   `yaml:"notify_on_new_session" json:"notify_on_new_session"` // 新会话开始时是否通知主人
}

// AvatarConfig 化身人设配置
type AvatarConfig struct {
	Name           string   `yaml:"name"            json:"name"`            // 化身姓名
	CVPath         string   `yaml:"cv_path"         json:"cv_path"`         // 简历PDF路径
	Summary        string   `yaml:"summary"         json:"summary"`         // 职业概要
	PreferredRoles []string `yaml:"preferred_roles" json:"preferred_roles"` // 期望职位列表
	Personality    string   `yaml:"personality"     json:"personality"`     // 性格描述
	Contact        string   `yaml:"contact"         json:"contact"`         // 联系方式
}

// Config 主配置结构
type Config struct {
	Server struct {
		IP   string `yaml:"ip" json:"ip"`
		Port int    `yaml:"port" json:"port"`
	} `yaml:"server" json:"server"`

	Log struct {
		LogLevel string `yaml:"log_level" json:"log_level"`
		LogDir   string `yaml:"log_dir" json:"log_dir"`
		LogFile  string `yaml:"log_file" json:"log_file"`
	} `yaml:"log" json:"log"`

	SelectedModule map[string]string `yaml:"selected_module" json:"selected_module"`

	LLM map[string]LLMConfig `yaml:"LLM" json:"LLM"`

	Guardrails GuardrailsConfig `yaml:"guardrails" json:"guardrails"`
	Email      EmailConfig      `yaml:"email"      json:"email"`
	Avatar     AvatarConfig     `yaml:"avatar"     json:"avatar"`

	// 前端滑块默认采样参数，top_p取值[0,1]，temperature取值[0,2]
	Defaults struct {
		TopP        float64 `yaml:"top_p"       json:"top_p"`
		Temperature float64 `yaml:"temperature" json:"temperature"`
	} `yaml:"defaults" json:"defaults"`
}

var (
	Cfg *Config
)

func (cfg *Config) ToString() string {
	data, _ := yaml.Marshal(cfg)
	return string(data)
}

func (cfg *Config) FromString(data string) error {
	return yaml.Unmarshal([]byte(data), cfg)
}

func (cfg *Config) setDefaults() {
	cfg.Server.IP = "0.0.0.0"
	cfg.Server.Port = 8080

	cfg.Log.LogDir = "logs"
	cfg.Log.LogLevel = "INFO"
	cfg.Log.LogFile = "server.log"

	cfg.SelectedModule = map[string]string{"LLM": "OpenAILLM"}
	cfg.LLM = map[string]LLMConfig{
		"OpenAILLM": {
			Type:             "openai",
			ModelName:        "gpt-4.1",
			Temperature:      0.5,
			TopP:             0.3,
			SupportsSampling: true,
		},
	}

	cfg.Guardrails.MaxMessageLength = 500
	cfg.Guardrails.MaxHistorySize = 30

	cfg.Email.From = "interviewapp@resend.dev"
	cfg.Email.NotifyOnNewSession = true

	cfg.Avatar.Name = "Juraj Kubica"
	cfg.Avatar.CVPath = "resources/CV_Juraj_Kubica.pdf"
	cfg.Avatar.Summary = "My name is Juraj Kubica. I am software engineer, with a lot of experience with Data and system integration. I like to learn new things about AI."
	cfg.Avatar.PreferredRoles = []string{
		"Senior Data engineer",
		"Data Architect",
		"Enterprise Architect",
		"Technical Lead",
		"AI engineer (I am very eager to learn all new about AI and I am training and learning daily about this area)",
		"AWS cloud engineer",
		"AWS cloud Architect",
	}
	cfg.Avatar.Personality = "I'm an ambitious person, but I don't cross my moral boundaries. " +
		"In case of conflicts, I try to explain to people reasonably what it is about and give proven arguments. " +
		"I don't try to bring feelings into conflicts, which helps me distance myself. " +
		"I don't communicate on topics I don't know about. I'm trying to listen more. I'm very introverted here. " +
		"But when I communicate with someone close to me, I'm more of an extrovert. " +
		"Also I am person which is focused on detail and I am learning very fast."
	cfg.Avatar.Contact = "kubica.juro@gmail.com"

	cfg.Defaults.TopP = 0.3
	cfg.Defaults.Temperature = 0.5
}

// LoadConfig 从yaml文件加载配置，文件不存在时回退到默认配置
func LoadConfig(path string) (*Config, string, error) {
	config := &Config{}
	if path == "" {
		path = "config.yaml"
	}

	config.setDefaults()
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, path, err
		}
	}

	Cfg = config
	return config, path, nil
}
