package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// AIMessage is one turn of a model conversation.
type AIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AIClient produces the pet's replies. ChatService depends on this
// interface so tests can stub the model out.
type AIClient interface {
	Complete(ctx context.Context, system string, messages []AIMessage) (string, error)
}

// DoubaoClient talks to the Doubao (Volcengine Ark) chat completion API,
// which is OpenAI-compatible. Configuration: DOUBAO_API_KEY,
// DOUBAO_MODEL, DOUBAO_BASE_URL (optional).
type DoubaoClient struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

func NewDoubaoClient() *DoubaoClient {
	baseURL := os.Getenv("DOUBAO_BASE_URL")
	if baseURL == "" {
		baseURL = "https://ark.cn-beijing.volces.com/api/v3"
	}
	return &DoubaoClient{
		apiKey:  os.Getenv("DOUBAO_API_KEY"),
		model:   os.Getenv("DOUBAO_MODEL"),
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

type doubaoRequest struct {
	Model    string      `json:"model"`
	Messages []AIMessage `json:"messages"`
}

type doubaoResponse struct {
	Choices []struct {
		Message AIMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *DoubaoClient) Complete(ctx context.Context, system string, messages []AIMessage) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("DOUBAO_API_KEY is not configured")
	}

	all := make([]AIMessage, 0, len(messages)+1)
	if system != "" {
		all = append(all, AIMessage{Role: "system", Content: system})
	}
	all = append(all, messages...)

	body, err := json.Marshal(doubaoRequest{Model: c.model, Messages: all})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}

	var parsed doubaoResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("bad model response: %v", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("model error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
