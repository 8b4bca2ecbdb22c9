package fintech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"estate-backend/internal/breaker"
)

const paystackBaseURL = "https://api.paystack.co"

var kobo = decimal.NewFromInt(100)

// PaystackClient talks to the Paystack REST API. All calls run through the
// shared gateway circuit breaker.
type PaystackClient struct {
	SecretKey string
	BaseURL   string
	Client    *http.Client
	Breaker   *breaker.CircuitBreaker
}

// NewPaystackClient creates a Paystack client with the standard 30s timeout
func NewPaystackClient(secretKey string, cb *breaker.CircuitBreaker) *PaystackClient {
	return &PaystackClient{
		SecretKey: secretKey,
		BaseURL:   paystackBaseURL,
		Client:    &http.Client{Timeout: 30 * time.Second},
		Breaker:   cb,
	}
}

func (p *PaystackClient) Name() string { return ProviderPaystack }

// do issues a request and returns the parsed body. Paystack envelopes every
// response as {"status": bool, "message": string, "data": ...}.
func (p *PaystackClient) do(ctx context.Context, method, path string, payload interface{}) (gjson.Result, error) {
	var result gjson.Result
	err := p.Breaker.Execute(ctx, "paystack"+path, func(ctx context.Context) error {
		var body io.Reader
		if payload != nil {
			jsonData, err := json.Marshal(payload)
			if err != nil {
				return err
			}
			body = bytes.NewBuffer(jsonData)
		}

		req, err := http.NewRequestWithContext(ctx, method, p.BaseURL+path, body)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+p.SecretKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.Client.Do(req)
		if err != nil {
			return fmt.Errorf("paystack request failed: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		parsed := gjson.ParseBytes(raw)
		if resp.StatusCode >= 500 {
			return &ProviderError{Provider: ProviderPaystack, StatusCode: resp.StatusCode, Message: parsed.Get("message").String()}
		}
		if !parsed.Get("status").Bool() {
			msg := parsed.Get("message").String()
			if msg == "" {
				msg = "request rejected"
			}
			return &ProviderError{Provider: ProviderPaystack, StatusCode: resp.StatusCode, Message: msg}
		}

		result = parsed
		return nil
	})
	return result, err
}

// InitializePayment starts a hosted checkout. Paystack takes amounts in kobo.
func (p *PaystackClient) InitializePayment(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	payload := map[string]interface{}{
		"email":     req.Email,
		"amount":    req.Amount.Mul(kobo).IntPart(),
		"reference": req.Reference,
	}
	if req.CallbackURL != "" {
		payload["callback_url"] = req.CallbackURL
	}

	data, err := p.do(ctx, http.MethodPost, "/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}

	return &InitializeResult{
		CheckoutURL: data.Get("data.authorization_url").String(),
		Reference:   req.Reference,
	}, nil
}

// VerifyPayment fetches the authoritative charge state for a reference
func (p *PaystackClient) VerifyPayment(ctx context.Context, reference string) (*VerificationResult, error) {
	data, err := p.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}

	tx := data.Get("data")
	if tx.Get("status").String() != "success" {
		return &VerificationResult{Success: false, Reference: reference}, nil
	}

	return &VerificationResult{
		Success:   true,
		Reference: tx.Get("reference").String(),
		Amount:    decimal.NewFromInt(tx.Get("amount").Int()).Div(kobo),
		Currency:  tx.Get("currency").String(),
		PaidAt:    tx.Get("paid_at").String(),
		Channel:   tx.Get("channel").String(),
	}, nil
}

// CreateTransferRecipient registers a NUBAN account and returns the recipient code
func (p *PaystackClient) CreateTransferRecipient(ctx context.Context, name, accountNumber, bankCode string) (string, error) {
	payload := map[string]interface{}{
		"type":           "nuban",
		"name":           name,
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       "NGN",
	}

	data, err := p.do(ctx, http.MethodPost, "/transferrecipient", payload)
	if err != nil {
		return "", err
	}
	return data.Get("data.recipient_code").String(), nil
}

// Transfer moves balance funds to a registered recipient
func (p *PaystackClient) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	reason := req.Reason
	if reason == "" {
		reason = "Rent payout"
	}
	payload := map[string]interface{}{
		"source":    "balance",
		"amount":    req.Amount.Mul(kobo).IntPart(),
		"recipient": req.RecipientCode,
		"reference": req.Reference,
		"reason":    reason,
	}

	data, err := p.do(ctx, http.MethodPost, "/transfer", payload)
	if err != nil {
		return nil, err
	}

	return &TransferResult{
		Provider:  ProviderPaystack,
		Reference: data.Get("data.reference").String(),
		Status:    data.Get("data.status").String(),
	}, nil
}

// Refund reverses a charge by transaction reference
func (p *PaystackClient) Refund(ctx context.Context, reference string) error {
	_, err := p.do(ctx, http.MethodPost, "/refund", map[string]interface{}{"transaction": reference})
	return err
}

// ResolveAccount looks up the account name behind a NUBAN number
func (p *PaystackClient) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*BankAccount, error) {
	path := fmt.Sprintf("/bank/resolve?account_number=%s&bank_code=%s",
		url.QueryEscape(accountNumber), url.QueryEscape(bankCode))

	data, err := p.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	return &BankAccount{
		AccountNumber: data.Get("data.account_number").String(),
		AccountName:   data.Get("data.account_name").String(),
		BankCode:      bankCode,
	}, nil
}
