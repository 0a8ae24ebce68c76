package eskiz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	eskizapi "github.com/iota-uz/eskiz"
)

type ResultStatus string

const (
	StatusSent    ResultStatus = "sent"
	StatusSkipped ResultStatus = "skipped"
)

// Result reports the provider verdict for one send call. Skipped means the
// call will never succeed for this account or destination; transient
// conditions come back as errors instead.
type Result struct {
	Status ResultStatus
	Reason string
}

// Sender delivers text messages through the Eskiz bulk SMS gateway. Auth
// uses the generated API client; the batch endpoint is called directly
// because the generated surface does not cover it.
type Sender struct {
	refresher *tokenRefresher
	cfg       Config
	http      *http.Client
}

func NewSender(cfg Config) *Sender {
	client := eskizapi.NewAPIClient(eskizapi.NewConfiguration())
	return &Sender{
		refresher: newTokenRefresher(client, cfg),
		cfg:       cfg,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

type batchMessage struct {
	UserSmsID string `json:"user_sms_id"`
	To        string `json:"to"`
	Text      string `json:"text"`
}

type batchRequest struct {
	Messages []batchMessage `json:"messages"`
	From     string         `json:"from"`
}

// Send delivers one message to every number in a single batch call.
func (s *Sender) Send(ctx context.Context, numbers []string, message string) (Result, error) {
	if s.cfg.Email() == "" || s.cfg.Password() == "" {
		return Result{Status: StatusSkipped, Reason: "sms_unconfigured"}, nil
	}
	if len(numbers) == 0 {
		return Result{Status: StatusSkipped, Reason: "no_recipients"}, nil
	}

	token := s.refresher.CurrentToken()
	if token == "" {
		var err error
		token, err = s.refresher.RefreshToken(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("eskiz auth: %w", err)
		}
	}

	status, err := s.postBatch(ctx, token, numbers, message)
	if err != nil {
		return Result{}, err
	}
	if status == http.StatusUnauthorized {
		// Token expired mid-lease; refresh once and retry.
		token, err = s.refresher.RefreshToken(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("eskiz auth: %w", err)
		}
		status, err = s.postBatch(ctx, token, numbers, message)
		if err != nil {
			return Result{}, err
		}
	}

	if status >= 200 && status < 300 {
		return Result{Status: StatusSent}, nil
	}
	return Result{}, fmt.Errorf("eskiz batch send returned status %d", status)
}

func (s *Sender) postBatch(ctx context.Context, token string, numbers []string, message string) (int, error) {
	payload := batchRequest{
		Messages: make([]batchMessage, len(numbers)),
		From:     s.cfg.From(),
	}
	for i, number := range numbers {
		payload.Messages[i] = batchMessage{
			UserSmsID: fmt.Sprintf("munlink-%d-%d", time.Now().UnixNano(), i),
			To:        number,
			Text:      message,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.BaseURL()+"/message/sms/send-batch", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	return resp.StatusCode, nil
}
