package services

import (
	"fmt"
	"log"

	"estate-backend/internal/models"
	"estate-backend/internal/sms"
)

// EmailSender delivers one HTML email
type EmailSender interface {
	Send(to, subject, htmlBody string) error
}

// NotificationService fans payment and tenancy events out over SMS and
// email. Delivery is best effort: failures are logged and never bubble into
// the payment flows that trigger them.
type NotificationService struct {
	SMS   sms.SMSProvider
	Email EmailSender
}

func NewNotificationService(smsProvider sms.SMSProvider, email EmailSender) *NotificationService {
	return &NotificationService{SMS: smsProvider, Email: email}
}

func (n *NotificationService) send(userID int64, phone, email, smsType, message, subject, htmlBody string) {
	go func() {
		if n.SMS != nil && phone != "" {
			if err := n.SMS.SendSMS(phone, message, smsType, userID); err != nil {
				log.Printf("[Notify] SMS (%s) to %s failed: %v", smsType, phone, err)
			}
		}
		if n.Email != nil && email != "" {
			if err := n.Email.Send(email, subject, htmlBody); err != nil {
				log.Printf("[Notify] Email (%s) to %s failed: %v", smsType, email, err)
			}
		}
	}()
}

func (n *NotificationService) PaymentReceived(p *models.PaymentTransaction) {
	msg := fmt.Sprintf("Hi %s, we received your rent payment of %s %s (ref %s). Your receipt is being prepared.",
		p.TenantName, p.Currency, p.Amount.String(), p.Reference)
	html := fmt.Sprintf("<p>Hi %s,</p><p>We received your rent payment of <b>%s %s</b> (reference %s).</p><p>Your receipt will be available shortly.</p>",
		p.TenantName, p.Currency, p.Amount.String(), p.Reference)
	n.send(p.TenantID, p.TenantPhone, p.TenantEmail, models.SMSTypePaymentReceived, msg, "Rent payment received", html)
}

func (n *NotificationService) PaymentFailed(p *models.PaymentTransaction, reason string) {
	msg := fmt.Sprintf("Hi %s, your rent payment of %s %s could not be completed. Please try again.",
		p.TenantName, p.Currency, p.Amount.String())
	html := fmt.Sprintf("<p>Hi %s,</p><p>Your rent payment of <b>%s %s</b> could not be completed: %s.</p><p>Please try again.</p>",
		p.TenantName, p.Currency, p.Amount.String(), reason)
	n.send(p.TenantID, p.TenantPhone, p.TenantEmail, models.SMSTypePaymentFailed, msg, "Rent payment failed", html)
}

func (n *NotificationService) ReceiptReady(rc *models.RentReceipt, tenantPhone, tenantEmail string) {
	msg := fmt.Sprintf("Your rent receipt %s is ready. Paid %s of %s.",
		rc.ReferenceNumber, rc.AmountPaid.String(), rc.RentAmount.String())
	html := fmt.Sprintf("<p>Your rent receipt <b>%s</b> is ready.</p><p>Amount paid: %s of %s.</p><p><a href=%q>Download receipt</a></p>",
		rc.ReferenceNumber, rc.AmountPaid.String(), rc.RentAmount.String(), rc.ReceiptPath)
	n.send(rc.TenantID, tenantPhone, tenantEmail, models.SMSTypeReceiptReady, msg, "Your rent receipt is ready", html)
}

func (n *NotificationService) PayoutCompleted(payout *models.LandlordPayout, landlordPhone, landlordEmail string) {
	msg := fmt.Sprintf("A rent payment of %s %s has been transferred to your account (ref %s).",
		payout.Currency, payout.Amount.String(), payout.TransferReference)
	html := fmt.Sprintf("<p>A rent payment of <b>%s %s</b> has been transferred to your bank account.</p><p>Transfer reference: %s.</p>",
		payout.Currency, payout.Amount.String(), payout.TransferReference)
	n.send(payout.LandlordID, landlordPhone, landlordEmail, models.SMSTypePayoutCompleted, msg, "Rent payout completed", html)
}

func (n *NotificationService) RentReminder(t *models.Tenant, daysLeft int) {
	msg := fmt.Sprintf("Hi %s, your rent of %s expires in %d days (on %s). Pay early to keep your tenancy active.",
		t.FullName, t.RentAmount.String(), daysLeft, t.RentExpiry.Format("02 Jan 2006"))
	html := fmt.Sprintf("<p>Hi %s,</p><p>Your rent of <b>%s</b> expires in %d days, on %s.</p><p>Pay early to keep your tenancy active.</p>",
		t.FullName, t.RentAmount.String(), daysLeft, t.RentExpiry.Format("02 Jan 2006"))
	n.send(t.UserID, t.Phone, t.Email, models.SMSTypeRentReminder, msg, "Rent expiry reminder", html)
}

func (n *NotificationService) RentExpired(t *models.Tenant) {
	msg := fmt.Sprintf("Hi %s, your rent expired on %s and your tenancy is now inactive. Pay your rent to reactivate it.",
		t.FullName, t.RentExpiry.Format("02 Jan 2006"))
	html := fmt.Sprintf("<p>Hi %s,</p><p>Your rent expired on %s and your tenancy is now inactive.</p><p>Pay your rent to reactivate it.</p>",
		t.FullName, t.RentExpiry.Format("02 Jan 2006"))
	n.send(t.UserID, t.Phone, t.Email, models.SMSTypeRentExpired, msg, "Rent expired", html)
}
