package core

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// OpenAIClient 共享的 OpenAI 兼容客户端：限流 + 重试
// 转写、摘要、向量化、生成都经过它
type OpenAIClient struct {
	*openai.Client
	limiter *rate.Limiter
	retry   RetryPolicy
}

// NewOpenAIClient builds a client for apiKey/baseURL. rps <= 0 disables throttling.
func NewOpenAIClient(apiKey, baseURL string, rps float64, retry RetryPolicy) *OpenAIClient {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}
	return &OpenAIClient{
		Client:  openai.NewClientWithConfig(clientConfig),
		limiter: rate.NewLimiter(limit, burst),
		retry:   retry,
	}
}

// Call waits for a rate-limit token before every attempt and retries
// transient failures according to the retry policy.
func (c *OpenAIClient) Call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return c.retry.Do(ctx, op, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return Permanent(fmt.Errorf("%s: rate limiter: %w", op, err))
		}
		return fn(ctx)
	})
}
