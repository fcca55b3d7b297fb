package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
)

type Client struct {
	client *openai.Client
	model  string
}

func New(apiKey, baseURL, model string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

const systemPromptTemplate = `你是一個專門幫使用者「設定時間提醒 + 陪聊」的 LINE 機器人助理，負責讀懂中文訊息，並輸出乾淨的 JSON 結果給後端使用。

【語言規則】
- 所有內容一律使用「繁體中文」。
- 除非使用者明顯是用英文對話，否則不要主動用英文。
- 你只回傳 JSON，不要輸出解說文字或多餘句子。

【現在時間】
- Current Reference Time (UTC): %s
- 如果使用者說「明天」「下週一」「今晚」等模糊時間，請假設使用者在 "Asia/Taipei" 時區，並將時間轉換成 ISO 8601 UTC 字串。

【可用意圖】

1. CREATE_REMINDER（建立提醒）
   使用者想設定一個在「特定時間」要做某件事的提醒。
   - 範例："幫我明天早上 9 點提醒開會"、"下週一晚上八點提醒我要繳電話費"
   - reminder.datetime: ISO 8601 UTC 字串（先用 Asia/Taipei 解讀，再轉 UTC）
   - reminder.message: 一句簡短中文，說明要提醒的內容（例如 "開會"、"繳電話費"）
   - reminder.timezone: 若有需要可設為 "Asia/Taipei"，不確定可省略

2. LIST_REMINDERS（查看未來提醒）
   使用者想知道接下來有哪些提醒。
   - 範例："列出我未來的提醒"、"我現在有哪些提醒"

3. UPDATE_REMINDER（修改提醒）
   使用者想修改某一個已設定提醒的時間或內容。
   - 範例："把開會那個提醒改到下午三點"、"第一個提醒延到明天"
   - update_reminder.datetime: 使用者指稱的「原本」提醒時間（ISO 8601 UTC，可省略）
   - update_reminder.message_keyword: 指稱提醒用的關鍵字（例如 "開會"，可省略）
   - update_reminder.new_datetime: 新的提醒時間（ISO 8601 UTC，必填）
   - update_reminder.new_message: 新的提醒內容（只有使用者要改內容時才填）

4. CANCEL_REMINDER（取消提醒）
   使用者想取消某一個原本設定好的提醒。
   - 範例："取消明天早上 9 點的那個提醒"、"把開會那個提醒刪掉"
   - cancel_reminder.datetime: 使用者提到的時間（ISO 8601 UTC，可省略）
   - cancel_reminder.message_keyword: 描述關鍵字（例如 "開會"、"繳費"，可省略）
   - 若兩者都有就都填；若資訊不足就盡量從語意中推測一個較合理的 keyword。

5. GENERAL_CHAT（自由聊天 / 輕諮詢）
   使用者單純聊天、抒發心情、或詢問一般建議。
   - message: 一段要直接顯示給使用者的繁體中文回覆，友善、有同理心。

6. SMALL_TALK（簡單寒暄）
   簡單問候或感謝，例如 "你好"、"謝謝你"。
   - message: 一段簡短、溫暖的繁體中文回覆。

7. HELP（說明功能）
   使用者在問這個 bot 可以做什麼。
   - message: 用繁體中文簡要說明你會的事（設定、查看、修改、取消提醒、聊天）。

8. UNKNOWN（無法判斷）
   - message: 一句簡短繁中說明「我不太確定你的意思，可以再換個說法嗎？」。

【輸出 JSON 結構（務必嚴格遵守）】
{
  "intent": "CREATE_REMINDER" | "LIST_REMINDERS" | "UPDATE_REMINDER" | "CANCEL_REMINDER" | "GENERAL_CHAT" | "SMALL_TALK" | "HELP" | "UNKNOWN",
  "reminder": { "datetime": "...", "message": "...", "timezone": "..." },
  "update_reminder": { "datetime": "...", "message_keyword": "...", "new_datetime": "...", "new_message": "..." },
  "cancel_reminder": { "datetime": "...", "message_keyword": "..." },
  "message": "要回給使用者看的繁體中文句子"
}

- 不需要的欄位可以省略。
- 一律輸出單一 JSON 物件，不能是陣列，不能夾雜其他文字。`

func getSystemPrompt(now time.Time) string {
	return fmt.Sprintf(systemPromptTemplate, now.UTC().Format(time.RFC3339))
}

// JSON Schema for structured output
var intentSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"intent": {
			"type": "string",
			"enum": ["CREATE_REMINDER", "LIST_REMINDERS", "UPDATE_REMINDER", "CANCEL_REMINDER", "GENERAL_CHAT", "SMALL_TALK", "HELP", "UNKNOWN"],
			"description": "The classified intent of the user message"
		},
		"reminder": {
			"type": "object",
			"properties": {
				"datetime": {"type": "string", "description": "ISO 8601 UTC timestamp for the reminder"},
				"message": {"type": "string", "description": "What to remind the user about"},
				"timezone": {"type": "string", "description": "IANA timezone of the user, if known"}
			},
			"additionalProperties": false
		},
		"update_reminder": {
			"type": "object",
			"properties": {
				"datetime": {"type": "string", "description": "ISO 8601 UTC timestamp referencing the existing reminder"},
				"message_keyword": {"type": "string", "description": "Keyword referencing the existing reminder"},
				"new_datetime": {"type": "string", "description": "New ISO 8601 UTC timestamp"},
				"new_message": {"type": "string", "description": "New reminder message, only when the user changes it"}
			},
			"additionalProperties": false
		},
		"cancel_reminder": {
			"type": "object",
			"properties": {
				"datetime": {"type": "string", "description": "ISO 8601 UTC timestamp referencing the reminder to cancel"},
				"message_keyword": {"type": "string", "description": "Keyword referencing the reminder to cancel"}
			},
			"additionalProperties": false
		},
		"message": {
			"type": "string",
			"description": "Reply text shown directly to the user"
		}
	},
	"required": ["intent"],
	"additionalProperties": false
}`)

// ParseIntent classifies one user message. The returned error covers API
// failures only; malformed model output degrades to Unrecognized.
func (c *Client) ParseIntent(ctx context.Context, userMessage string) (Intent, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: getSystemPrompt(time.Now()),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("User Input: %q", userMessage),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "intent",
				Schema: intentSchema,
				Strict: true,
			},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call AI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from AI")
	}

	return decodeIntent(resp.Choices[0].Message.Content), nil
}
