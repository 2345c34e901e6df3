package nlparse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "livebetter/internal/common/errors"
	"livebetter/internal/ranking"
)

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat responseFmt   `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFmt struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *Parser) parseWithGenAI(ctx context.Context, text string) (*ranking.RankRequest, error) {
	timeout := time.Duration(p.cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload := chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
		// Low temperature keeps extraction consistent across retries.
		Temperature:    0.3,
		ResponseFormat: responseFmt{Type: "json_object"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.NewParseAPIFailedError(err)
	}

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, apperrors.NewParseAPITimeoutError()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			strings.TrimRight(p.cfg.BaseURL, "/")+"/v1/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, apperrors.NewParseAPIFailedError(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

		resp, lastErr = p.client.Do(req)
		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			apiErr := readAPIError(resp)
			resp = nil
			// Client errors other than rate limiting will not improve on
			// retry.
			if apiErr.status >= 400 && apiErr.status < 500 && apiErr.status != http.StatusTooManyRequests {
				return nil, apperrors.NewParseAPIFailedError(apiErr)
			}
			lastErr = apiErr
		}

		if ctx.Err() != nil {
			return nil, apperrors.NewParseAPITimeoutError()
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, apperrors.NewParseAPITimeoutError()
		}
		return nil, apperrors.NewParseAPIFailedError(lastErr)
	}
	defer resp.Body.Close()

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, apperrors.NewParseBadOutputError(fmt.Sprintf("decode response: %v", err))
	}
	if len(chat.Choices) == 0 {
		return nil, apperrors.NewParseBadOutputError("response contained no choices")
	}

	var parsed ranking.RankRequest
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &parsed); err != nil {
		return nil, apperrors.NewParseBadOutputError(fmt.Sprintf("model output is not valid JSON: %v", err))
	}
	parsed.ApplyDefaults()
	if err := parsed.Validate(); err != nil {
		return nil, apperrors.NewParseBadOutputError(err.Error())
	}
	return &parsed, nil
}

type genAIError struct {
	status  int
	message string
}

func (e *genAIError) Error() string {
	if e.message != "" {
		return fmt.Sprintf("status %d: %s", e.status, e.message)
	}
	return fmt.Sprintf("status %d", e.status)
}

func readAPIError(resp *http.Response) *genAIError {
	defer resp.Body.Close()
	apiErr := &genAIError{status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return apiErr
	}
	var chat chatResponse
	if json.Unmarshal(body, &chat) == nil && chat.Error != nil {
		apiErr.message = chat.Error.Message
		if chat.Error.Type != "" {
			apiErr.message += " (" + chat.Error.Type + ")"
		}
	}
	return apiErr
}
