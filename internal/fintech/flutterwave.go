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

const flutterwaveBaseURL = "https://api.flutterwave.com/v3"

// FlutterwaveClient talks to the Flutterwave v3 REST API
type FlutterwaveClient struct {
	SecretKey   string
	RedirectURL string
	BaseURL     string
	Client      *http.Client
	Breaker     *breaker.CircuitBreaker
}

func NewFlutterwaveClient(secretKey, redirectURL string, cb *breaker.CircuitBreaker) *FlutterwaveClient {
	return &FlutterwaveClient{
		SecretKey:   secretKey,
		RedirectURL: redirectURL,
		BaseURL:     flutterwaveBaseURL,
		Client:      &http.Client{Timeout: 30 * time.Second},
		Breaker:     cb,
	}
}

func (f *FlutterwaveClient) Name() string { return ProviderFlutterwave }

// do issues a request and returns the parsed envelope. Flutterwave responds
// with {"status": "success"|"error", "message": string, "data": ...}.
func (f *FlutterwaveClient) do(ctx context.Context, method, path string, payload interface{}) (gjson.Result, error) {
	var result gjson.Result
	err := f.Breaker.Execute(ctx, "flutterwave"+path, func(ctx context.Context) error {
		var body io.Reader
		if payload != nil {
			jsonData, err := json.Marshal(payload)
			if err != nil {
				return err
			}
			body = bytes.NewBuffer(jsonData)
		}

		req, err := http.NewRequestWithContext(ctx, method, f.BaseURL+path, body)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+f.SecretKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := f.Client.Do(req)
		if err != nil {
			return fmt.Errorf("flutterwave request failed: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		parsed := gjson.ParseBytes(raw)
		if resp.StatusCode >= 500 {
			return &ProviderError{Provider: ProviderFlutterwave, StatusCode: resp.StatusCode, Message: parsed.Get("message").String()}
		}
		if parsed.Get("status").String() != "success" {
			msg := parsed.Get("message").String()
			if msg == "" {
				msg = "request rejected"
			}
			return &ProviderError{Provider: ProviderFlutterwave, StatusCode: resp.StatusCode, Message: msg}
		}

		result = parsed
		return nil
	})
	return result, err
}

// InitializePayment starts a hosted checkout session
func (f *FlutterwaveClient) InitializePayment(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	title := req.Title
	if title == "" {
		title = "Rent Payment"
	}
	description := req.Description
	if description == "" {
		description = "House rent payment"
	}

	payload := map[string]interface{}{
		"tx_ref":          req.Reference,
		"amount":          req.Amount.String(),
		"currency":        "NGN",
		"redirect_url":    f.RedirectURL,
		"customer":        map[string]string{"email": req.Email},
		"payment_options": "card",
		"customizations": map[string]string{
			"title":       title,
			"description": description,
		},
	}

	data, err := f.do(ctx, http.MethodPost, "/payments", payload)
	if err != nil {
		return nil, err
	}

	return &InitializeResult{
		CheckoutURL: data.Get("data.link").String(),
		Reference:   req.Reference,
	}, nil
}

// VerifyPayment fetches the authoritative charge state by tx_ref
func (f *FlutterwaveClient) VerifyPayment(ctx context.Context, reference string) (*VerificationResult, error) {
	path := "/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(reference)
	data, err := f.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	tx := data.Get("data")
	if tx.Get("status").String() != "successful" {
		return &VerificationResult{Success: false, Reference: reference}, nil
	}

	return &VerificationResult{
		Success:   true,
		Reference: tx.Get("tx_ref").String(),
		Amount:    decimal.NewFromFloat(tx.Get("amount").Float()),
		Currency:  tx.Get("currency").String(),
		PaidAt:    tx.Get("created_at").String(),
		Channel:   tx.Get("payment_type").String(),
	}, nil
}

// Transfer pays out directly to a bank account
func (f *FlutterwaveClient) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	narration := req.Reason
	if narration == "" {
		narration = "Rent payout"
	}
	payload := map[string]interface{}{
		"account_bank":   req.BankCode,
		"account_number": req.AccountNumber,
		"amount":         req.Amount.String(),
		"currency":       "NGN",
		"debit_currency": "NGN",
		"narration":      narration,
		"reference":      req.Reference,
	}

	data, err := f.do(ctx, http.MethodPost, "/transfers", payload)
	if err != nil {
		return nil, err
	}

	return &TransferResult{
		Provider:  ProviderFlutterwave,
		Reference: data.Get("data.reference").String(),
		Status:    data.Get("data.status").String(),
	}, nil
}

// Refund reverses a settled charge by its flw_ref
func (f *FlutterwaveClient) Refund(ctx context.Context, reference string) error {
	_, err := f.do(ctx, http.MethodPost, "/transactions/"+url.PathEscape(reference)+"/refund", nil)
	return err
}

// ResolveAccount looks up the account name behind an account number
func (f *FlutterwaveClient) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*BankAccount, error) {
	payload := map[string]interface{}{
		"account_number": accountNumber,
		"account_bank":   bankCode,
	}

	data, err := f.do(ctx, http.MethodPost, "/accounts/resolve", payload)
	if err != nil {
		return nil, err
	}

	return &BankAccount{
		AccountNumber: data.Get("data.account_number").String(),
		AccountName:   data.Get("data.account_name").String(),
		BankCode:      bankCode,
	}, nil
}
