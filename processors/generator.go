package processors

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"multimodalRAG/core"
)

// OpenAIGenerator 多模态回答生成，图片以 data URL 附在同一条用户消息里
type OpenAIGenerator struct {
	cli   *core.OpenAIClient
	model string
}

func NewOpenAIGenerator(cli *core.OpenAIClient, model string) *OpenAIGenerator {
	return &OpenAIGenerator{cli: cli, model: model}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt, contextText string, images []string) (string, error) {
	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: BuildPromptText(prompt, contextText)},
	}
	for _, img := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: ImageDataURL(img), Detail: openai.ImageURLDetailAuto},
		})
	}

	var answer string
	err := g.cli.Call(ctx, "generate answer", func(ctx context.Context) error {
		resp, err := g.cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       g.model,
			Temperature: 0,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, MultiContent: parts},
			},
		})
		if err != nil {
			return fmt.Errorf("generate answer: %w", err)
		}
		if len(resp.Choices) == 0 {
			return core.Permanent(fmt.Errorf("generate answer: empty response"))
		}
		answer = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	return answer, err
}

// BuildPromptText 检索上下文 + 问题 + 固定指令
func BuildPromptText(query, contextText string) string {
	return fmt.Sprintf(`The following are the retrieved document and video contents:

%s

Question: %s

Answer the question using the material above.
- If chart or table images are included, analyze them and give concrete figures.
- Use the exact numbers and data stated in the documents.`, contextText, query)
}

// ImageDataURL wraps raw base64 into a data URL, inferring the mime type from
// the encoded signature. Values that already are data URLs pass through.
func ImageDataURL(b64 string) string {
	if strings.HasPrefix(b64, "data:image") {
		return b64
	}
	return "data:" + imageMime(b64) + ";base64," + b64
}

func imageMime(b64 string) string {
	switch {
	case strings.HasPrefix(b64, "iVBOR"):
		return "image/png"
	case strings.HasPrefix(b64, "R0lGOD"):
		return "image/gif"
	case strings.HasPrefix(b64, "PHN2Zy"):
		return "image/svg+xml"
	default:
		return "image/jpeg"
	}
}
