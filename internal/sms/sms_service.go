package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"estate-backend/internal/models"
)

// SMSProvider is an interface for sending SMS messages
type SMSProvider interface {
	SendSMS(phone, message, messageType string, userID int64) error
	SendBulkSMS(phones []string, message string, userIDs []int64) (int, int, error)
	SetLogRepository(repo SMSLogRepo)
}

// SMSLogRepo interface for logging
type SMSLogRepo interface {
	Create(ctx context.Context, log *models.SMSLog) error
}

// TermiiService implements SMSProvider for Termii (Nigeria)
type TermiiService struct {
	APIKey   string
	SenderID string
	BaseURL  string
	Client   *http.Client
	LogRepo  SMSLogRepo
}

// NewTermiiService creates a new Termii SMS service
func NewTermiiService(apiKey, senderID string) *TermiiService {
	return &TermiiService{
		APIKey:   apiKey,
		SenderID: senderID,
		BaseURL:  "https://api.ng.termii.com",
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// SetLogRepository sets the SMS log repository
func (s *TermiiService) SetLogRepository(repo SMSLogRepo) {
	s.LogRepo = repo
}

// SendSMS sends a single SMS message
func (s *TermiiService) SendSMS(phone, message, messageType string, userID int64) error {
	smsLog := &models.SMSLog{
		UserID:      userID,
		Phone:       phone,
		MessageType: messageType,
		Message:     message,
		Status:      models.SMSStatusPending,
	}

	payload, err := json.Marshal(map[string]interface{}{
		"to":      phone,
		"from":    s.SenderID,
		"sms":     message,
		"type":    "plain",
		"channel": "generic",
		"api_key": s.APIKey,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, s.BaseURL+"/api/sms/send", bytes.NewReader(payload))
	if err != nil {
		smsLog.Status = models.SMSStatusFailed
		smsLog.ErrorMessage = err.Error()
		s.logSMS(smsLog)
		return fmt.Errorf("failed to create SMS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		smsLog.Status = models.SMSStatusFailed
		smsLog.ErrorMessage = err.Error()
		s.logSMS(smsLog)
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		smsLog.Status = models.SMSStatusFailed
		smsLog.ErrorMessage = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body))
		s.logSMS(smsLog)
		return fmt.Errorf("SMS API error (status %d): %s", resp.StatusCode, string(body))
	}

	smsLog.Status = models.SMSStatusSent
	if id := gjson.GetBytes(body, "message_id"); id.Exists() {
		smsLog.ReferenceID = id.String()
	}
	s.logSMS(smsLog)
	return nil
}

// SendBulkSMS sends SMS to multiple phones
func (s *TermiiService) SendBulkSMS(phones []string, message string, userIDs []int64) (int, int, error) {
	success := 0
	failed := 0

	for i, phone := range phones {
		var userID int64
		if i < len(userIDs) {
			userID = userIDs[i]
		}

		if err := s.SendSMS(phone, message, models.SMSTypeRentReminder, userID); err != nil {
			failed++
		} else {
			success++
		}

		// Rate limit: 1 SMS per 100ms to avoid API throttling
		time.Sleep(100 * time.Millisecond)
	}

	return success, failed, nil
}

// logSMS logs the SMS to database
func (s *TermiiService) logSMS(log *models.SMSLog) {
	if s.LogRepo == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.LogRepo.Create(ctx, log)
	}()
}

// MockSMSService is a mock implementation for testing (prints to console)
type MockSMSService struct {
	LogRepo SMSLogRepo
}

// NewMockSMSService creates a new mock SMS service
func NewMockSMSService() *MockSMSService {
	return &MockSMSService{}
}

// SetLogRepository sets the SMS log repository
func (s *MockSMSService) SetLogRepository(repo SMSLogRepo) {
	s.LogRepo = repo
}

// SendSMS logs the SMS to console
func (s *MockSMSService) SendSMS(phone, message, messageType string, userID int64) error {
	fmt.Printf("\n========== MOCK SMS ==========\n")
	fmt.Printf("To: %s\n", phone)
	fmt.Printf("Type: %s\n", messageType)
	fmt.Printf("Message: %s\n", message)
	fmt.Printf("==============================\n\n")

	if s.LogRepo != nil {
		smsLog := &models.SMSLog{
			UserID:      userID,
			Phone:       phone,
			MessageType: messageType,
			Message:     message,
			Status:      models.SMSStatusSent,
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.LogRepo.Create(ctx, smsLog)
		}()
	}

	return nil
}

// SendBulkSMS sends bulk SMS (mock)
func (s *MockSMSService) SendBulkSMS(phones []string, message string, userIDs []int64) (int, int, error) {
	for i, phone := range phones {
		var userID int64
		if i < len(userIDs) {
			userID = userIDs[i]
		}
		s.SendSMS(phone, message, models.SMSTypeRentReminder, userID)
	}
	return len(phones), 0, nil
}
