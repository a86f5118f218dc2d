package chat

import (
	"cv-avatar-server/src/core/types"
	"cv-avatar-server/src/core/utils"
)

// DialogueManager 对话管理器，负责单轮请求内的消息组装
// system消息固定在首位，历史和新消息按时间顺序追加
type DialogueManager struct {
	logger   *utils.Logger
	dialogue []types.Message
}

// NewDialogueManager 创建对话管理器实例
func NewDialogueManager(logger *utils.Logger) *DialogueManager {
	return &DialogueManager{
		logger:   logger,
		dialogue: make([]types.Message, 0),
	}
}

// SetSystemMessage 设置system消息，已存在时替换首位
func (dm *DialogueManager) SetSystemMessage(content string) {
	systemMsg := types.Message{Role: types.RoleSystem, Content: content}
	if len(dm.dialogue) > 0 && dm.dialogue[0].Role == types.RoleSystem {
		dm.dialogue[0] = systemMsg
		return
	}
	dm.dialogue = append([]types.Message{systemMsg}, dm.dialogue...)
}

// PutHistory 追加客户端回传的历史消息
// 历史里混入的system消息一律丢弃，system内容只能由服务端生成
func (dm *DialogueManager) PutHistory(history []types.Message) {
	for _, msg := range history {
		if msg.Role == types.RoleSystem {
			dm.logger.Warn("历史中包含system消息，已丢弃")
			continue
		}
		dm.dialogue = append(dm.dialogue, msg)
	}
}

// Put 追加一条消息
func (dm *DialogueManager) Put(message types.Message) {
	dm.dialogue = append(dm.dialogue, message)
}

// GetLLMDialogue 获取完整对话序列
func (dm *DialogueManager) GetLLMDialogue() []types.Message {
	return dm.dialogue
}

// Length 当前对话消息数
func (dm *DialogueManager) Length() int {
	return len(dm.dialogue)
}
