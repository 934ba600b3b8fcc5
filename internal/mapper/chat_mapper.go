package mapper

import (
	"notechat-be/internal/entity"
	"notechat-be/internal/model"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}
	return &entity.ChatMessage{
		Id:        msg.Id,
		NoteId:    msg.NoteId,
		Role:      msg.Role,
		Chat:      msg.Chat,
		CreatedAt: msg.CreatedAt,
	}
}

func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}
	return &model.ChatMessage{
		Id:        msg.Id,
		NoteId:    msg.NoteId,
		Role:      msg.Role,
		Chat:      msg.Chat,
		CreatedAt: msg.CreatedAt,
	}
}

func (m *ChatMapper) ChatMessagesToEntities(models []*model.ChatMessage) []*entity.ChatMessage {
	entities := make([]*entity.ChatMessage, len(models))
	for i, msg := range models {
		entities[i] = m.ChatMessageToEntity(msg)
	}
	return entities
}
