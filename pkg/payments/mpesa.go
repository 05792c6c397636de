package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"
	timestampLayout   = "20060102150405"
)

var phonePattern = regexp.MustCompile(`^254[17]\d{8}$`)

// ValidPhone reports whether phone is a Safaricom number in 2547XXXXXXXX or
// 2541XXXXXXXX form.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// ErrRejected is returned when the gateway answers with a non-zero response code.
var ErrRejected = errors.New("stk push rejected")

// STKRequest asks the customer's handset to authorise a payment.
type STKRequest struct {
	Phone       string
	Amount      float64
	Reference   string
	Description string
}

// STKResponse identifies a pending STK push.
type STKResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// Gateway initiates mobile money payments.
type Gateway interface {
	STKPush(ctx context.Context, req STKRequest) (*STKResponse, error)
}

// MpesaConfig holds Daraja credentials.
type MpesaConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	PassKey        string
	CallbackURL    string
	Sandbox        bool
	// BaseURL overrides the Daraja host.
	BaseURL string
}

// MpesaClient talks to the Safaricom Daraja API.
type MpesaClient struct {
	cfg    MpesaConfig
	http   *http.Client
	now    func() time.Time
	mu     sync.Mutex
	token  string
	expiry time.Time
}

func NewMpesaClient(cfg MpesaConfig, httpClient *http.Client) *MpesaClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = productionBaseURL
		if cfg.Sandbox {
			cfg.BaseURL = sandboxBaseURL
		}
	}
	return &MpesaClient{cfg: cfg, http: httpClient, now: time.Now}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

func (c *MpesaClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.expiry) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request access token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to request access token: status %d", resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("failed to decode access token: %w", err)
	}
	c.token = tok.AccessToken
	// tokens live for an hour; refresh a minute early
	c.expiry = c.now().Add(59 * time.Minute)
	return c.token, nil
}

// Password builds the STK password: base64(shortcode + passkey + timestamp).
func (c *MpesaClient) Password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.PassKey + timestamp))
}

type stkPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type darajaError struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func (c *MpesaClient) STKPush(ctx context.Context, r STKRequest) (*STKResponse, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().Format(timestampLayout)
	body, err := json.Marshal(stkPayload{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.Password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            int64(math.Ceil(r.Amount)),
		PartyA:            r.Phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       r.Phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  r.Reference,
		TransactionDesc:   r.Description,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send stk push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var de darajaError
		_ = json.NewDecoder(resp.Body).Decode(&de)
		return nil, fmt.Errorf("%w: %s", ErrRejected, de.ErrorMessage)
	}

	var out STKResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode stk response: %w", err)
	}
	if out.ResponseCode != "0" {
		return &out, fmt.Errorf("%w: %s", ErrRejected, out.ResponseDescription)
	}
	return &out, nil
}

// SimulatedGateway accepts every push without contacting Safaricom.
type SimulatedGateway struct{}

func (SimulatedGateway) STKPush(ctx context.Context, r STKRequest) (*STKResponse, error) {
	id, err := gonanoid.Generate("0123456789abcdef", 20)
	if err != nil {
		return nil, err
	}
	return &STKResponse{
		MerchantRequestID:   "sim-" + id[:8],
		CheckoutRequestID:   "ws_CO_" + id,
		ResponseCode:        "0",
		ResponseDescription: "Success. Request accepted for processing",
		CustomerMessage:     "Success. Request accepted for processing",
	}, nil
}

// NewGateway returns a Daraja client, or the simulated gateway when no
// consumer credentials are configured.
func NewGateway(cfg MpesaConfig) Gateway {
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" {
		return SimulatedGateway{}
	}
	return NewMpesaClient(cfg, nil)
}
