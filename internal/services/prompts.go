package services

import (
	"fmt"

	"github.com/talkah/talkah-backend/internal/ai"
	"github.com/talkah/talkah-backend/internal/models"
)

// ClosingMessage is sent when an SMS conversation reaches its exchange limit.
const ClosingMessage = "Thanks for chatting! This conversation has now ended. Reply STOP to opt out. - Talkah"

const callSystemPrompt = `You are Talkah, a friendly assistant placing a short phone call on behalf of a user.
Write exactly what you will say when the call is answered. Introduce yourself as an assistant calling for a Talkah user,
cover the topic clearly in under 120 words, and end politely. Plain spoken text only: no stage directions, no markdown.`

const smsSystemPrompt = `You are Talkah, an assistant texting someone on behalf of a user.
Keep every message under 300 characters, conversational and polite. Stay on the topic you were given.
Plain text only: no markdown, no emojis unless the other person uses them first.`

const emailSystemPrompt = `You are Talkah, an assistant writing an email on behalf of a user.
Write only the email body in plain text: a greeting, a concise body that fulfils the request, and a sign-off.
Do not include a subject line.`

func callScriptMessages(topic string) []ai.Message {
	return []ai.Message{
		{Role: ai.RoleSystem, Content: callSystemPrompt},
		{Role: ai.RoleUser, Content: "Topic of the call: " + topic},
	}
}

func callScriptTemplate(topic string) string {
	return fmt.Sprintf("Hello, this is an automated assistant calling on behalf of a Talkah user about %s. "+
		"They will follow up with you directly. Thank you, and goodbye.", topic)
}

func smsOpeningMessages(topic string) []ai.Message {
	return []ai.Message{
		{Role: ai.RoleSystem, Content: smsSystemPrompt},
		{Role: ai.RoleUser, Content: "Start the conversation. Topic: " + topic},
	}
}

func smsOpeningTemplate(topic string) string {
	return fmt.Sprintf("Hi! I'm an assistant texting on behalf of a Talkah user about %s. Do you have a moment to chat?", topic)
}

// smsReplyMessages turns the stored conversation into a chat history where
// our messages are the assistant's.
func smsReplyMessages(topic string, history []models.SmsMessage) []ai.Message {
	msgs := make([]ai.Message, 0, len(history)+1)
	msgs = append(msgs, ai.Message{Role: ai.RoleSystem, Content: smsSystemPrompt + "\nTopic: " + topic})
	for _, m := range history {
		role := ai.RoleUser
		if m.Direction == models.DirectionOutbound {
			role = ai.RoleAssistant
		}
		msgs = append(msgs, ai.Message{Role: role, Content: m.Body})
	}
	return msgs
}

const smsReplyTemplate = "Thanks for your reply! I'll pass this along."

func emailDraftMessages(subject, prompt string) []ai.Message {
	return []ai.Message{
		{Role: ai.RoleSystem, Content: emailSystemPrompt},
		{Role: ai.RoleUser, Content: fmt.Sprintf("Subject: %s\nRequest: %s", subject, prompt)},
	}
}
