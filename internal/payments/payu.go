package payments

import (
	"context"
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/negativepl/checkout-gateway/pkg/retry"
)

const (
	payuProductionURL = "https://secure.payu.com"
	payuSandboxURL    = "https://secure.snd.payu.com"
	payuOAuthPath     = "/pl/standard/user/oauth/authorize"
)

// payuTokenBuffer is subtracted from expires_in so a token is refreshed
// before it actually expires.
const payuTokenBuffer = 60 * time.Second

type PayUConfig struct {
	PosID             string
	SecondKey         string
	OAuthClientID     string
	OAuthClientSecret string
	Sandbox           bool
	// Production switches webhook handling to strict mode: notifications are
	// rejected when no second key is configured.
	Production bool
	// NotifyURL receives asynchronous order notifications.
	NotifyURL string
	// BaseURL overrides the PayU endpoint, used by tests.
	BaseURL string
}

// PayUProvider creates orders against the PayU REST API using OAuth2
// client credentials. The access token is cached per instance and refreshed
// shortly before expiry.
type PayUProvider struct {
	cfg    PayUConfig
	http   *resty.Client
	logger zerolog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewPayU(cfg PayUConfig, logger zerolog.Logger) *PayUProvider {
	base := cfg.BaseURL
	if base == "" {
		if cfg.Sandbox {
			base = payuSandboxURL
		} else {
			base = payuProductionURL
		}
	}
	client := resty.New().
		SetBaseURL(base).
		SetTimeout(30 * time.Second).
		SetRedirectPolicy(resty.NoRedirectPolicy())

	return &PayUProvider{
		cfg:    cfg,
		http:   client,
		logger: logger.With().Str("provider", "payu").Logger(),
	}
}

func (p *PayUProvider) Name() string { return "PayU" }
func (p *PayUProvider) Code() string { return "payu" }

func (p *PayUProvider) configured() bool {
	return p.cfg.PosID != "" && p.cfg.OAuthClientID != "" && p.cfg.OAuthClientSecret != ""
}

type payuTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (p *PayUProvider) getAccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && time.Now().Before(p.tokenExpiry) {
		return p.token, nil
	}

	tok, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*payuTokenResponse, error) {
		var tok payuTokenResponse
		resp, err := p.http.R().
			SetContext(ctx).
			SetFormData(map[string]string{
				"grant_type":    "client_credentials",
				"client_id":     p.cfg.OAuthClientID,
				"client_secret": p.cfg.OAuthClientSecret,
			}).
			SetResult(&tok).
			Post(payuOAuthPath)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("payu oauth: status %d", resp.StatusCode())
		}
		if tok.AccessToken == "" {
			return nil, fmt.Errorf("payu oauth: empty access token")
		}
		return &tok, nil
	})
	if err != nil {
		return "", err
	}

	p.token = tok.AccessToken
	p.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - payuTokenBuffer)
	return p.token, nil
}

type payuPayMethod struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type payuOrderRequest struct {
	NotifyURL     string `json:"notifyUrl,omitempty"`
	CustomerIP    string `json:"customerIp"`
	MerchantPosID string `json:"merchantPosId"`
	Description   string `json:"description"`
	CurrencyCode  string `json:"currencyCode"`
	TotalAmount   string `json:"totalAmount"`
	ExtOrderID    string `json:"extOrderId,omitempty"`
	ContinueURL   string `json:"continueUrl,omitempty"`
	Buyer         struct {
		Email     string `json:"email"`
		FirstName string `json:"firstName,omitempty"`
		LastName  string `json:"lastName,omitempty"`
	} `json:"buyer"`
	Products []struct {
		Name      string `json:"name"`
		UnitPrice string `json:"unitPrice"`
		Quantity  string `json:"quantity"`
	} `json:"products"`
	PayMethods *struct {
		PayMethod payuPayMethod `json:"payMethod"`
	} `json:"payMethods,omitempty"`
}

type payuOrderResponse struct {
	Status struct {
		StatusCode string `json:"statusCode"`
		StatusDesc string `json:"statusDesc"`
	} `json:"status"`
	RedirectURI string `json:"redirectUri"`
	OrderID     string `json:"orderId"`
}

// payMethodFor translates our method codes to PayU pay-method preferences.
// Plain bank transfer gets no preference so PayU presents its own bank list;
// the same applies to codes we do not recognize.
func payMethodFor(methodCode string) *payuPayMethod {
	switch methodCode {
	case "blik":
		return &payuPayMethod{Type: "PBL", Value: "blik"}
	case "card":
		return &payuPayMethod{Type: "PBL", Value: "c"}
	case "installments":
		return &payuPayMethod{Type: "PBL", Value: "ai"}
	default:
		return nil
	}
}

func (p *PayUProvider) CreatePayment(ctx context.Context, params CreateParams) (*Result, error) {
	if !p.configured() {
		p.logger.Warn().Msg("payu credentials not configured, returning mock payment")
		return &Result{
			Success:       true,
			TransactionID: uuid.New().String(),
			ExternalID:    "mock_payu_" + uuid.New().String()[:8],
			PaymentURL:    params.ReturnURL,
			Status:        StatusPending,
		}, nil
	}

	token, err := p.getAccessToken(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Error().Err(err).Msg("payu token acquisition failed")
		return &Result{
			Success: false,
			Status:  StatusFailed,
			Error:   &Error{Code: "auth_failed", Message: err.Error()},
		}, nil
	}

	currency := strings.ToUpper(params.Currency)
	if currency == "" {
		currency = "PLN"
	}
	amount := strconv.FormatInt(MinorUnits(params.Amount), 10)

	req := payuOrderRequest{
		NotifyURL:     p.cfg.NotifyURL,
		CustomerIP:    "127.0.0.1",
		MerchantPosID: p.cfg.PosID,
		Description:   params.Description,
		CurrencyCode:  currency,
		TotalAmount:   amount,
		ExtOrderID:    params.OrderReference,
		ContinueURL:   params.ReturnURL,
	}
	if req.Description == "" {
		req.Description = fmt.Sprintf("Zamówienie %d", params.OrderID)
	}
	req.Buyer.Email = params.CustomerEmail
	if first, last, ok := strings.Cut(params.CustomerName, " "); ok {
		req.Buyer.FirstName = first
		req.Buyer.LastName = last
	} else {
		req.Buyer.FirstName = params.CustomerName
	}
	req.Products = append(req.Products, struct {
		Name      string `json:"name"`
		UnitPrice string `json:"unitPrice"`
		Quantity  string `json:"quantity"`
	}{Name: req.Description, UnitPrice: amount, Quantity: "1"})
	if pm := payMethodFor(params.MethodCode); pm != nil {
		req.PayMethods = &struct {
			PayMethod payuPayMethod `json:"payMethod"`
		}{PayMethod: *pm}
	}

	var orderResp payuOrderResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&orderResp).
		Post("/api/v2_1/orders")
	if err != nil && resp == nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Error().Err(err).Msg("payu create order request failed")
		return &Result{
			Success: false,
			Status:  StatusFailed,
			Error:   &Error{Code: "request_failed", Message: err.Error()},
		}, nil
	}

	// PayU answers order creation with a 302 carrying a JSON body; the
	// redirect policy surfaces that as an error with a usable response.
	if orderResp.Status.StatusCode == "" && resp != nil {
		_ = json.Unmarshal(resp.Body(), &orderResp)
	}

	if orderResp.Status.StatusCode != "SUCCESS" {
		p.logger.Error().
			Str("status_code", orderResp.Status.StatusCode).
			Str("status_desc", orderResp.Status.StatusDesc).
			Msg("payu rejected order")
		return &Result{
			Success: false,
			Status:  StatusFailed,
			Error:   &Error{Code: orderResp.Status.StatusCode, Message: orderResp.Status.StatusDesc},
		}, nil
	}

	return &Result{
		Success:       true,
		TransactionID: uuid.New().String(),
		ExternalID:    orderResp.OrderID,
		PaymentURL:    orderResp.RedirectURI,
		Status:        StatusPending,
	}, nil
}

// mapPayUStatus maps PayU's order status vocabulary onto the canonical enum.
// Unknown statuses default to pending.
func payuStatus(status string) (Status, bool) {
	switch status {
	case "NEW":
		return StatusPending, true
	case "PENDING", "WAITING_FOR_CONFIRMATION":
		return StatusProcessing, true
	case "COMPLETED":
		return StatusCompleted, true
	case "CANCELED":
		return StatusCancelled, true
	case "REJECTED":
		return StatusFailed, true
	default:
		return StatusPending, false
	}
}

// mapPayUStatus is the webhook-path mapping: a status we do not recognize
// stays pending until a later notification settles the payment.
func mapPayUStatus(status string) Status {
	s, _ := payuStatus(status)
	return s
}

type payuNotification struct {
	Order struct {
		OrderID    string `json:"orderId"`
		ExtOrderID string `json:"extOrderId"`
		Status     string `json:"status"`
	} `json:"order"`
}

func (p *PayUProvider) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if p.cfg.SecondKey == "" {
		if p.cfg.Production {
			// Strict in production: never accept unverifiable notifications.
			p.logger.Error().Msg("payu webhook rejected: second key missing in production")
			return &WebhookResult{Success: false, Error: "Webhook verification not configured"}, nil
		}
		p.logger.Warn().Msg("payu second key not configured, skipping webhook signature verification")
	} else if !p.verifySignature(payload, signature) {
		p.logger.Warn().Msg("payu webhook signature verification failed")
		return &WebhookResult{Success: false, Error: "invalid signature"}, nil
	}

	var notification payuNotification
	if err := json.Unmarshal(payload, &notification); err != nil {
		return &WebhookResult{Success: false, Error: "invalid payload"}, nil
	}
	if notification.Order.OrderID == "" {
		return &WebhookResult{Success: false, Error: "missing order"}, nil
	}

	return &WebhookResult{
		Success:    true,
		Handled:    true,
		ExternalID: notification.Order.OrderID,
		Status:     mapPayUStatus(notification.Order.Status),
	}, nil
}

// verifySignature checks the OpenPayu signature: MD5 over the raw body
// concatenated with the second key. The header is either the bare hex digest
// or the full "signature=...;algorithm=MD5;..." form.
func (p *PayUProvider) verifySignature(payload []byte, header string) bool {
	incoming := header
	if strings.Contains(header, "signature=") {
		for _, part := range strings.Split(header, ";") {
			if v, ok := strings.CutPrefix(strings.TrimSpace(part), "signature="); ok {
				incoming = v
				break
			}
		}
	}

	sum := md5.Sum(append(append([]byte{}, payload...), []byte(p.cfg.SecondKey)...))
	expected := hex.EncodeToString(sum[:])
	return hmac.Equal([]byte(expected), []byte(incoming))
}

type payuRefundResponse struct {
	Refund struct {
		RefundID string `json:"refundId"`
		Status   string `json:"status"`
	} `json:"refund"`
	Status struct {
		StatusCode string `json:"statusCode"`
	} `json:"status"`
}

func (p *PayUProvider) Refund(ctx context.Context, params RefundParams) (*RefundResult, error) {
	if !p.configured() {
		p.logger.Warn().Msg("payu credentials not configured, returning mock refund")
		return &RefundResult{
			Success:  true,
			RefundID: "mock_payu_re_" + uuid.New().String()[:8],
			Status:   StatusRefunded,
		}, nil
	}

	token, err := p.getAccessToken(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &RefundResult{
			Success: false,
			Error:   &Error{Code: "auth_failed", Message: err.Error()},
		}, nil
	}

	body := map[string]any{
		"refund": map[string]any{
			"description": params.Reason,
		},
	}
	if params.Amount > 0 {
		body["refund"].(map[string]any)["amount"] = strconv.FormatInt(MinorUnits(params.Amount), 10)
	}

	var refundResp payuRefundResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&refundResp).
		Post("/api/v2_1/orders/" + params.ExternalID + "/refunds")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &RefundResult{
			Success: false,
			Error:   &Error{Code: "request_failed", Message: err.Error()},
		}, nil
	}
	if resp.IsError() || refundResp.Status.StatusCode != "SUCCESS" {
		return &RefundResult{
			Success: false,
			Error:   &Error{Code: refundResp.Status.StatusCode, Message: "refund rejected"},
		}, nil
	}

	return &RefundResult{
		Success:  true,
		RefundID: refundResp.Refund.RefundID,
		Status:   StatusRefunded,
	}, nil
}

type payuOrderStatusResponse struct {
	Orders []struct {
		Status string `json:"status"`
	} `json:"orders"`
}

func (p *PayUProvider) GetStatus(ctx context.Context, externalID string) (Status, error) {
	if !p.configured() {
		return StatusPending, nil
	}

	token, err := p.getAccessToken(ctx)
	if err != nil {
		return StatusFailed, fmt.Errorf("payu: get status: %w", err)
	}

	var statusResp payuOrderStatusResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&statusResp).
		Get("/api/v2_1/orders/" + externalID)
	if err != nil {
		return StatusFailed, fmt.Errorf("payu: get status: %w", err)
	}
	if resp.IsError() || len(statusResp.Orders) == 0 {
		// Catch-all for this lookup is failed, unlike the webhook path.
		return StatusFailed, nil
	}
	status, known := payuStatus(statusResp.Orders[0].Status)
	if !known {
		return StatusFailed, nil
	}
	return status, nil
}
