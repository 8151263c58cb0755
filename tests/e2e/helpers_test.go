package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"testing"
	"time"
)

// 実サーバーに対して叩くテスト。E2E_BASE_URLが無ければスキップ。
func baseURLOrSkip(t *testing.T) string {
	t.Helper()

	baseURL := os.Getenv("E2E_BASE_URL")
	if baseURL == "" {
		t.Skip("E2E_BASE_URL not set")
	}
	return strings.TrimRight(baseURL, "/")
}

type TestClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewTestClient(t *testing.T) *TestClient {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New failed: %v", err)
	}

	return &TestClient{
		BaseURL: baseURLOrSkip(t),
		HTTP: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
		},
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

type UserDTO struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

type JwtAccessToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type AuthLoginResponse struct {
	User  UserDTO        `json:"user"`
	Token JwtAccessToken `json:"token"`
}

type CartItemDTO struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
}

type CartDTO struct {
	Items []CartItemDTO `json:"items"`
	Total string        `json:"total"`
}

type OrderItemDTO struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
}

type OrderDTO struct {
	ID          int64          `json:"id"`
	UserID      int64          `json:"user_id"`
	Status      string         `json:"status"`
	TotalAmount string         `json:"total_amount"`
	Items       []OrderItemDTO `json:"items"`
}

type ProductDTO struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Price         string `json:"price"`
	StockQuantity *int64 `json:"stock_quantity"`
	IsActive      bool   `json:"is_active"`
}

type ProductListDTO struct {
	Items []ProductDTO `json:"items"`
	Total int64        `json:"total"`
}

func (c *TestClient) doJSON(
	ctx context.Context,
	t *testing.T,
	method string,
	path string,
	bearer string,
	bodyBytes []byte,
) (*http.Response, []byte) {
	t.Helper()

	var reqBody io.Reader
	if bodyBytes != nil {
		reqBody = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		t.Fatalf("http.NewRequest failed: %v", err)
	}

	if bodyBytes != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body failed: %v", err)
	}

	return resp, respBody
}

func requireStatus(t *testing.T, resp *http.Response, want int, body []byte) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("status=%d want=%d body=%s", resp.StatusCode, want, string(body))
	}
}

func mustDecode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode failed: %v body=%s", err, string(body))
	}
	return out
}

// 新規ユーザーを作ってaccess tokenを返す
func registerAndLogin(t *testing.T, c *TestClient, ctx context.Context) (string, int64) {
	t.Helper()

	email := fmt.Sprintf("e2e-%d@example.com", time.Now().UnixNano())
	password := "e2e-password-1"

	reqJSON, _ := json.Marshal(map[string]string{"email": email, "password": password})

	resp, body := c.doJSON(ctx, t, http.MethodPost, "/auth/register", "", reqJSON)
	requireStatus(t, resp, http.StatusCreated, body)

	resp, body = c.doJSON(ctx, t, http.MethodPost, "/auth/login", "", reqJSON)
	requireStatus(t, resp, http.StatusOK, body)

	login := mustDecode[AuthLoginResponse](t, body)
	if login.Token.AccessToken == "" {
		t.Fatalf("no access token: body=%s", string(body))
	}
	return login.Token.AccessToken, login.User.ID
}

// 管理者ログイン（E2E_ADMIN_EMAIL/E2E_ADMIN_PASSWORDのアカウントはseed済み前提）
func adminLogin(t *testing.T, c *TestClient, ctx context.Context) string {
	t.Helper()

	email := os.Getenv("E2E_ADMIN_EMAIL")
	password := os.Getenv("E2E_ADMIN_PASSWORD")
	if email == "" || password == "" {
		t.Skip("E2E_ADMIN_EMAIL / E2E_ADMIN_PASSWORD not set")
	}

	reqJSON, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, body := c.doJSON(ctx, t, http.MethodPost, "/auth/login", "", reqJSON)
	requireStatus(t, resp, http.StatusOK, body)

	login := mustDecode[AuthLoginResponse](t, body)
	if login.User.Role != "ADMIN" {
		t.Fatalf("expected ADMIN, got %s", login.User.Role)
	}
	return login.Token.AccessToken
}

func addToCart(t *testing.T, c *TestClient, ctx context.Context, access string, productID int64, qty int64) CartDTO {
	t.Helper()

	reqJSON, _ := json.Marshal(map[string]int64{"product_id": productID, "quantity": qty})
	resp, body := c.doJSON(ctx, t, http.MethodPost, "/cart", access, reqJSON)
	requireStatus(t, resp, http.StatusOK, body)
	return mustDecode[CartDTO](t, body)
}

func placeOrder(t *testing.T, c *TestClient, ctx context.Context, access string) OrderDTO {
	t.Helper()

	resp, body := c.doJSON(ctx, t, http.MethodPost, "/orders", access, nil)
	requireStatus(t, resp, http.StatusCreated, body)
	return mustDecode[OrderDTO](t, body)
}
