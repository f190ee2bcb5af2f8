package processors

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"multimodalRAG/core"
)

// 摘要与描述提示词
const (
	textSummaryPrompt   = "Summarize for retrieval: "
	ImageSummaryPrompt  = "Summarize this image for retrieval. Provide concise summary for semantic search."
	FrameAnalysisPrompt = `Analyze this video frame in concrete detail.

Must include:
1. Any text or numbers visible on screen (read them exactly)
2. Concrete data values of any chart, graph or table
3. How many people are visible and what they are doing
4. Main objects or background
5. Overall mood or context

Format:
- One concrete fact per sentence
- Clear statements instead of vague ones
- Record numbers and text exactly

Example: "A bar chart titled 'Revenue Growth 2024' on the left, showing Q1: 25%, Q2: 32%, Q3: 28%"`
)

// OpenAISummarizer 文本/表格走聊天模型，图片和视频帧走视觉模型
type OpenAISummarizer struct {
	cli         *core.OpenAIClient
	chatModel   string
	visionModel string
}

func NewOpenAISummarizer(cli *core.OpenAIClient, chatModel, visionModel string) *OpenAISummarizer {
	if visionModel == "" {
		visionModel = chatModel
	}
	return &OpenAISummarizer{cli: cli, chatModel: chatModel, visionModel: visionModel}
}

func (s *OpenAISummarizer) SummarizeText(ctx context.Context, text string) (string, error) {
	return s.complete(ctx, "summarize text", openai.ChatCompletionRequest{
		Model:       s.chatModel,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: textSummaryPrompt + text},
		},
	})
}

func (s *OpenAISummarizer) SummarizeImage(ctx context.Context, imageBase64, prompt string) (string, error) {
	if prompt == "" {
		prompt = ImageSummaryPrompt
	}
	return s.complete(ctx, "summarize image", openai.ChatCompletionRequest{
		Model:     s.visionModel,
		MaxTokens: 1024,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    ImageDataURL(imageBase64),
					Detail: openai.ImageURLDetailAuto,
				}},
			},
		}},
	})
}

func (s *OpenAISummarizer) complete(ctx context.Context, op string, req openai.ChatCompletionRequest) (string, error) {
	var out string
	err := s.cli.Call(ctx, op, func(ctx context.Context) error {
		resp, err := s.cli.CreateChatCompletion(ctx, req)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if len(resp.Choices) == 0 {
			return core.Permanent(fmt.Errorf("%s: empty response", op))
		}
		out = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	return out, err
}
