// Package remote предоставляет HTTP-клиент удалённого сервиса каталога и заказов.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/food-admin/internal/model"
)

// RequestIDHeader передаётся с каждым запросом для сопоставления с логами сервиса.
const RequestIDHeader = "X-Request-ID"

// Client инкапсулирует HTTP-взаимодействие с удалённым сервисом.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// FoodUpload описывает блюдо, отправляемое на добавление.
type FoodUpload struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Category    model.Category
	Image       *model.ImagePayload
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewClient создаёт клиент для сервиса по указанному адресу.
func NewClient(baseURL string, timeout time.Duration) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	httpClient := cleanhttp.DefaultPooledClient()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient.Timeout = timeout

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
	}
}

// ListFoods запрашивает полный каталог в порядке, заданном сервисом.
func (c *Client) ListFoods(ctx context.Context) ([]model.FoodItem, error) {
	const op = "list foods"

	env, err := c.do(ctx, op, http.MethodGet, "/api/food/list", "", nil)
	if err != nil {
		return nil, err
	}

	var items []model.FoodItem
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return nil, &NetworkError{Op: op, Err: fmt.Errorf("decode data: %w", err)}
		}
	}
	return items, nil
}

// AddFood отправляет новое блюдо multipart-запросом и возвращает сообщение сервиса.
func (c *Client) AddFood(ctx context.Context, f FoodUpload) (string, error) {
	const op = "add food"

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	fields := []struct{ key, value string }{
		{"name", f.Name},
		{"description", f.Description},
		{"price", f.Price.String()},
		{"category", string(f.Category)},
	}
	for _, fld := range fields {
		if err := w.WriteField(fld.key, fld.value); err != nil {
			return "", fmt.Errorf("%s: write field %s: %w", op, fld.key, err)
		}
	}

	if f.Image != nil {
		if err := writeImagePart(w, f.Image); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%s: close multipart: %w", op, err)
	}

	env, err := c.do(ctx, op, http.MethodPost, "/api/food/add", w.FormDataContentType(), body)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// RemoveFood удаляет блюдо по идентификатору и возвращает сообщение сервиса.
func (c *Client) RemoveFood(ctx context.Context, id string) (string, error) {
	const op = "remove food"

	payload, err := json.Marshal(map[string]string{"id": id})
	if err != nil {
		return "", fmt.Errorf("%s: encode request: %w", op, err)
	}

	env, err := c.do(ctx, op, http.MethodPost, "/api/food/remove", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// ListOrders запрашивает все заказы.
func (c *Client) ListOrders(ctx context.Context) ([]model.Order, error) {
	const op = "list orders"

	env, err := c.do(ctx, op, http.MethodGet, "/api/order/list", "", nil)
	if err != nil {
		return nil, err
	}

	var orders []model.Order
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &orders); err != nil {
			return nil, &NetworkError{Op: op, Err: fmt.Errorf("decode data: %w", err)}
		}
	}
	return orders, nil
}

// UpdateOrderStatus передаёт сервису новый статус заказа.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	const op = "update order status"

	payload, err := json.Marshal(struct {
		OrderID string            `json:"orderId"`
		Status  model.OrderStatus `json:"status"`
	}{OrderID: orderID, Status: status})
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}

	_, err = c.do(ctx, op, http.MethodPost, "/api/order/status", "application/json", bytes.NewReader(payload))
	return err
}

func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader) (*envelope, error) {
	if c == nil || c.baseURL == "" {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("remote client not configured")}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &NetworkError{Op: op, StatusCode: resp.StatusCode}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}

	if !env.Success {
		return nil, &RemoteRejection{Op: op, Message: env.Message}
	}

	return &env, nil
}

func writeImagePart(w *multipart.Writer, img *model.ImagePayload) error {
	filename := img.Filename
	if filename == "" {
		filename = "image"
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(img.Data)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return fmt.Errorf("write image part: %w", err)
	}
	return nil
}
