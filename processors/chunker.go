package processors

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// ChunkMode 切分单位
type ChunkMode string

const (
	ChunkChars  ChunkMode = "chars"
	ChunkTokens ChunkMode = "tokens"

	DefaultChunkSize = 4000
)

// Chunker joins all text elements with a single space and re-cuts them into
// fixed-size windows. Tables never go through it.
type Chunker struct {
	Mode    ChunkMode
	Size    int
	Overlap int

	enc *tiktoken.Tiktoken
}

// NewChunker validates the window and, in token mode, loads cl100k_base.
func NewChunker(mode ChunkMode, size, overlap int) (*Chunker, error) {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d)", overlap, size)
	}
	c := &Chunker{Mode: mode, Size: size, Overlap: overlap}
	switch mode {
	case ChunkChars, "":
		c.Mode = ChunkChars
	case ChunkTokens:
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
		c.enc = enc
	default:
		return nil, fmt.Errorf("unknown chunk mode %q", mode)
	}
	return c, nil
}

// Chunk returns the windows in order; no input text yields no chunks.
func (c *Chunker) Chunk(texts []string) []string {
	joined := strings.Join(texts, " ")
	if strings.TrimSpace(joined) == "" {
		return nil
	}
	if c.Mode == ChunkTokens {
		tokens := c.enc.Encode(joined, nil, nil)
		var out []string
		for _, w := range windows(len(tokens), c.Size, c.Overlap) {
			out = append(out, c.enc.Decode(tokens[w[0]:w[1]]))
		}
		return out
	}

	runes := []rune(joined)
	var out []string
	for _, w := range windows(len(runes), c.Size, c.Overlap) {
		out = append(out, string(runes[w[0]:w[1]]))
	}
	return out
}

// windows 返回 [start, end) 区间，步长 size-overlap
func windows(n, size, overlap int) [][2]int {
	var out [][2]int
	step := size - overlap
	for start := 0; start < n; start += step {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
		if end == n {
			break
		}
	}
	return out
}
