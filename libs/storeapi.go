package libs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"storefront/models"
	"strconv"
	"strings"
	"time"
)

var (
	ErrUnauthorized = errors.New("store api: unauthorized")
	ErrNotFound     = errors.New("store api: not found")
)

// StoreClient talks to the upstream store REST API, which owns products,
// accounts and orders.
type StoreClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewStoreClient(baseURL string, timeout time.Duration) *StoreClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &StoreClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type apiError struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

func (c *StoreClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("store api %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= http.StatusMultipleChoices:
		var apiErr apiError
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(body, &apiErr)
		detail := apiErr.Detail
		if detail == "" {
			detail = apiErr.Message
		}
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("store api %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, detail)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("store api %s %s: decode: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

func (c *StoreClient) newRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

type productEntry struct {
	ID          *int     `json:"id"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	ImageURL    string   `json:"image_url"`
	Gallery     []string `json:"gallery"`
}

func (e productEntry) product() models.Product {
	return models.Product{
		ID:          *e.ID,
		Name:        e.Name,
		Price:       e.Price,
		Category:    e.Category,
		Description: e.Description,
		ImageURL:    e.ImageURL,
		Gallery:     e.Gallery,
	}
}

// GetProducts lists the catalogue. Entries without an id are skipped.
func (c *StoreClient) GetProducts(ctx context.Context) ([]models.Product, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/store/products", "", nil)
	if err != nil {
		return nil, err
	}

	var entries []*productEntry
	if err := c.do(req, &entries); err != nil {
		return nil, err
	}

	products := make([]models.Product, 0, len(entries))
	for _, e := range entries {
		if e == nil || e.ID == nil {
			continue
		}
		products = append(products, e.product())
	}
	return products, nil
}

func (c *StoreClient) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/store/products/"+strconv.Itoa(id), "", nil)
	if err != nil {
		return nil, err
	}

	var entry productEntry
	if err := c.do(req, &entry); err != nil {
		return nil, err
	}
	if entry.ID == nil {
		return nil, ErrNotFound
	}
	product := entry.product()
	return &product, nil
}

// Login exchanges credentials for the opaque access token.
func (c *StoreClient) Login(ctx context.Context, username, password string) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("username", username)
	_ = w.WriteField("password", password)
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/auth/login", "", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", errors.New("store api: login response has no access token")
	}
	return out.AccessToken, nil
}

// Signup registers a customer account. It does not log in.
func (c *StoreClient) Signup(ctx context.Context, req models.SignupRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode signup: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/api/v1/auth/signup", "", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.do(httpReq, nil)
}

type profileEntry struct {
	ID       json.RawMessage `json:"id"`
	FullName string          `json:"full_name"`
	Phone    string          `json:"phone"`
	Email    string          `json:"email"`
}

// profile accepts numeric and string ids.
func (e profileEntry) profile() *models.UserProfile {
	id := strings.Trim(string(e.ID), `"`)
	if id == "null" {
		id = ""
	}
	return &models.UserProfile{
		ID:       id,
		FullName: e.FullName,
		Phone:    e.Phone,
		Email:    e.Email,
	}
}

func (c *StoreClient) Me(ctx context.Context, token string) (*models.UserProfile, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/auth/me", token, nil)
	if err != nil {
		return nil, err
	}

	var entry profileEntry
	if err := c.do(req, &entry); err != nil {
		return nil, err
	}
	return entry.profile(), nil
}

// UpdateProfile saves the profile and returns it as the store API echoes
// it back, or the submitted values when the response has no body.
func (c *StoreClient) UpdateProfile(ctx context.Context, token string, update models.UpdateProfileRequest) (*models.UserProfile, error) {
	body, err := json.Marshal(update)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, "/api/v1/auth/profile", token, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var entry profileEntry
	if err := c.do(req, &entry); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if entry.FullName == "" && entry.Phone == "" {
		return &models.UserProfile{FullName: update.FullName, Phone: update.Phone, Email: update.Email}, nil
	}
	return entry.profile(), nil
}

func (c *StoreClient) ListOrders(ctx context.Context, token string) ([]models.Order, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/store/orders", token, nil)
	if err != nil {
		return nil, err
	}

	orders := []models.Order{}
	if err := c.do(req, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// SubmitOrder posts the checkout form: address, items summary, total and the
// receipt image.
func (c *StoreClient) SubmitOrder(ctx context.Context, token string, sub models.OrderSubmission) (*models.CheckoutResult, error) {
	address, err := json.Marshal(sub.Address)
	if err != nil {
		return nil, fmt.Errorf("encode address: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("address", string(address))
	_ = w.WriteField("items_summary", sub.ItemsSummary)
	_ = w.WriteField("total_price", strconv.FormatFloat(sub.TotalPrice, 'f', -1, 64))
	if sub.ReceiptURL != "" {
		_ = w.WriteField("receipt_url", sub.ReceiptURL)
	}
	part, err := w.CreateFormFile("file", sub.ReceiptName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(sub.Receipt); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/store/checkout", token, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out struct {
		ID           int    `json:"id"`
		OrderID      int    `json:"order_id"`
		WhatsAppLink string `json:"whatsapp_link"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	orderID := out.OrderID
	if orderID == 0 {
		orderID = out.ID
	}
	return &models.CheckoutResult{
		OrderID:      orderID,
		WhatsAppLink: out.WhatsAppLink,
		ItemsSummary: sub.ItemsSummary,
		Total:        sub.TotalPrice,
		ReceiptURL:   sub.ReceiptURL,
	}, nil
}
