package usecase

import "defi-chat/internal/domain"

const (
	completionTemperature = 0.7
	completionMaxTokens   = 400

	tutorPersona = "你是一位中英双语的 DeFi 技术助教，帮助用户把想法转换成下一步行动。"
)

func buildPromptMessages(message string) []domain.PromptMessage {
	return []domain.PromptMessage{
		{Role: domain.RoleSystem, Content: tutorPersona},
		{Role: domain.RoleUser, Content: message},
	}
}
