package hqclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/EgorLis/retail-pos/internal/domain"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var ErrRejected = errors.New("hq rejected sync")

type Config struct {
	BaseURL string
	NodeID  string
	Timeout time.Duration
}

// Client отправляет покупки и клиентов магазина на HQ (POST /api/sync).
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Data    T      `json:"data"`
}

func New(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("X-Node-ID", cfg.NodeID).
		SetTimeout(timeout).
		SetRetryCount(1).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp != nil && resp.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{http: httpClient, logger: logger.Named("hqclient")}
}

func (c *Client) Sync(ctx context.Context, req domain.SyncRequest) (domain.SyncResult, error) {
	var out envelope[domain.SyncResult]
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&out).
		Post("/api/sync")
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("hq sync request: %w", err)
	}
	if resp.IsError() || !out.Success {
		c.logger.Warn("hq sync failed",
			zap.Int("status", resp.StatusCode()),
			zap.String("error", out.Error))
		msg := out.Error
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return domain.SyncResult{}, fmt.Errorf("%w: %s: %s", ErrRejected, resp.Status(), msg)
	}
	return out.Data, nil
}
