package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kassa/src/sale/domain/entity"
	"kassa/src/sale/domain/port"
	"kassa/src/shared/infrastructure/config"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

var ErrNoRecipient = errors.New("no telegram recipient configured")

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type botResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// TelegramClient sends sale notifications through the Telegram Bot API.
// Calls go through a circuit breaker so a dead API does not slow down every
// sale.
type TelegramClient struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	adminChatID int64
	breaker     *gobreaker.CircuitBreaker[struct{}]
}

func NewTelegramClient(cfg config.TelegramConfig, logger *zap.Logger) *TelegramClient {
	return &TelegramClient{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		token:       cfg.BotToken,
		adminChatID: cfg.AdminChatID,
		breaker: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        "telegram",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
	}
}

var _ port.SaleNotifier = (*TelegramClient)(nil)

// NotifyDebtSale tells the customer, when they linked Telegram, and the
// admin chat that a sale went on credit.
func (c *TelegramClient) NotifyDebtSale(ctx context.Context, customer entity.Customer, req *entity.SaleRequest, conf *entity.Confirmation) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Credit sale %s\n", conf.SaleID)
	fmt.Fprintf(&b, "Customer: %s\n", customer.Name)
	fmt.Fprintf(&b, "Total: %s\n", conf.Total)
	fmt.Fprintf(&b, "On credit: %s\n", req.Debt)
	if conf.DebtDueDate != nil {
		fmt.Fprintf(&b, "Due: %s\n", conf.DebtDueDate.Format("2006-01-02"))
	}
	text := b.String()

	var errs []error
	sent := false
	for _, chatID := range []int64{customer.TelegramID, c.adminChatID} {
		if chatID == 0 {
			continue
		}
		sent = true
		if err := c.send(ctx, chatID, text); err != nil {
			errs = append(errs, err)
		}
	}
	if !sent {
		return ErrNoRecipient
	}
	return errors.Join(errs...)
}

// NotifyLowStock sends the admin chat the products that fell under the
// threshold.
func (c *TelegramClient) NotifyLowStock(ctx context.Context, levels []entity.StockLevel) error {
	if c.adminChatID == 0 {
		return ErrNoRecipient
	}
	var b strings.Builder
	b.WriteString("Low stock:\n")
	for _, l := range levels {
		fmt.Fprintf(&b, "- %s: %s left\n", l.ProductName, l.Remaining)
	}
	return c.send(ctx, c.adminChatID, b.String())
}

func (c *TelegramClient) send(ctx context.Context, chatID int64, text string) error {
	_, err := c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.sendMessage(ctx, chatID, text)
	})
	return err
}

func (c *TelegramClient) sendMessage(ctx context.Context, chatID int64, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("error marshalling message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// the url carries the bot token
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("error calling telegram: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	var parsed botResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("telegram returned status %d: %s", resp.StatusCode, string(respBody))
	}
	if resp.StatusCode != http.StatusOK || !parsed.OK {
		return fmt.Errorf("telegram returned status %d: %s", resp.StatusCode, parsed.Description)
	}
	return nil
}
