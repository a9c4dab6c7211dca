// Package registry 订单与身份注册中心客户端
//
// 注册中心是外部 REST 服务，提供 /api/intents 与 /api/users 两组资源。
// Client 负责单次请求；Poller 在其上做周期同步与本地缓存，并实现 swapintf.Registry。
package registry

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

	logimpl "github.com/ztomic/v1/internal/core/infrastructure/log"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	"github.com/ztomic/v1/pkg/types"
)

// ErrUnexpectedStatus 注册中心返回非 2xx
var ErrUnexpectedStatus = errors.New("registry: unexpected http status")

// Client 注册中心 REST 客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     log.Logger
}

// NewClient 创建客户端，baseURL 不含 /api 前缀
func NewClient(baseURL string, timeout time.Duration, logger log.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("registry: base url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("registry: invalid base url: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/api",
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        16,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logimpl.NewModuleLogger(logger, "registry"),
	}, nil
}

// flexID 数字或字符串形式的 id
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// intentDTO 注册中心的 intent 结构
type intentDTO struct {
	ID                   flexID            `json:"id"`
	Initiator            string            `json:"initiator"`
	FromToken            string            `json:"fromToken"`
	ToToken              string            `json:"toToken"`
	Chain                string            `json:"on-chain"`
	Amount               string            `json:"amount"`
	Status               types.OrderStatus `json:"status"`
	SelectedCounterparty *struct {
		Identity string `json:"identity"`
		OnChain  string `json:"on-chain"`
	} `json:"selectedCounterparty,omitempty"`
}

func (d intentDTO) order() types.SwapOrder {
	o := types.SwapOrder{
		ID:        string(d.ID),
		Initiator: d.Initiator,
		FromToken: d.FromToken,
		ToToken:   d.ToToken,
		Amount:    d.Amount,
		Chain:     d.Chain,
		Status:    d.Status,
	}
	if d.SelectedCounterparty != nil {
		o.Counterparty = d.SelectedCounterparty.Identity
	}
	return o
}

// Orders 拉取全部订单
func (c *Client) Orders(ctx context.Context) ([]types.SwapOrder, error) {
	var dtos []intentDTO
	if err := c.do(ctx, http.MethodGet, "/intents", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]types.SwapOrder, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.order())
	}
	return out, nil
}

// Order 按 id 拉取单个订单
func (c *Client) Order(ctx context.Context, id string) (types.SwapOrder, error) {
	var dto intentDTO
	if err := c.do(ctx, http.MethodGet, "/intents/"+url.PathEscape(id), nil, &dto); err != nil {
		return types.SwapOrder{}, err
	}
	return dto.order(), nil
}

// User 按用户名查询公钥记录
func (c *Client) User(ctx context.Context, userName string) (types.UserRecord, error) {
	var rec types.UserRecord
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userName), nil, &rec); err != nil {
		return types.UserRecord{}, err
	}
	if rec.PubKeyX == "" || rec.PubKeyY == "" {
		return types.UserRecord{}, fmt.Errorf("%w: user %s has no public key", types.ErrNotFound, userName)
	}
	return rec, nil
}

// UpdateOrderStatus PUT /intents/{id}，只提交 status 字段
func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status types.OrderStatus) (types.SwapOrder, error) {
	body := map[string]types.OrderStatus{"status": status}
	var dto intentDTO
	if err := c.do(ctx, http.MethodPut, "/intents/"+url.PathEscape(id), body, &dto); err != nil {
		return types.SwapOrder{}, err
	}
	return dto.order(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debugf("关闭响应体失败: %v", err)
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s %s", types.ErrNotFound, method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s: %d %s", ErrUnexpectedStatus, method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
