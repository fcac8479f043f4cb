package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message types
const (
	TypeNotificationStatus = "notification_status"
	TypeCampaignStatus     = "campaign_status"
	TypeDashboardStats     = "dashboard_stats"
	TypeOpaque             = "opaque"
)

// Notification delivery statuses
const (
	NotificationPending    = "pending"
	NotificationProcessing = "processing"
	NotificationSent       = "sent"
	NotificationDelivered  = "delivered"
	NotificationFailed     = "failed"
	NotificationCancelled  = "cancelled"
)

// Campaign statuses
const (
	CampaignDraft     = "draft"
	CampaignScheduled = "scheduled"
	CampaignRunning   = "running"
	CampaignPaused    = "paused"
	CampaignCompleted = "completed"
	CampaignCancelled = "cancelled"
)

// Envelope is one decoded frame. Every subscriber of a channel receives the
// same Envelope value, so the frame bytes are only reachable through copies.
type Envelope struct {
	ID        uuid.UUID // Local identifier, unique per frame
	Channel   string    // Channel the frame arrived on
	Type      string    // Message type, see Type* constants
	Timestamp time.Time // Local receive time

	raw json.RawMessage
}

// Raw returns a copy of the exact frame bytes.
func (e Envelope) Raw() json.RawMessage {
	return bytes.Clone(e.raw)
}

// Payload decodes a fresh copy of the JSON object. Changing it does not
// affect the envelope or any other subscriber.
func (e Envelope) Payload() map[string]any {
	var payload map[string]any
	if err := json.Unmarshal(e.raw, &payload); err != nil {
		return nil
	}
	return payload
}

// Decode unmarshals the raw frame into v.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", e.Type, err)
	}
	return nil
}

// Notification returns the envelope as a notification status update.
func (e Envelope) Notification() (NotificationUpdate, error) {
	var n NotificationUpdate
	err := e.Decode(&n)
	return n, err
}

// Campaign returns the envelope as a campaign status update.
func (e Envelope) Campaign() (CampaignUpdate, error) {
	var c CampaignUpdate
	err := e.Decode(&c)
	return c, err
}

// Dashboard returns the envelope as a dashboard stats snapshot.
func (e Envelope) Dashboard() (DashboardStats, error) {
	var d DashboardStats
	err := e.Decode(&d)
	return d, err
}

// NotificationUpdate is a delivery status change for a single notification.
type NotificationUpdate struct {
	NotificationID    string     `json:"notification_id"`
	Status            string     `json:"status"`
	Channel           string     `json:"channel,omitempty"` // sms, email, push, whatsapp
	Recipient         string     `json:"recipient,omitempty"`
	Provider          string     `json:"provider,omitempty"`
	ProviderMessageID string     `json:"provider_message_id,omitempty"`
	RetryCount        int        `json:"retry_count,omitempty"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

// Terminal reports whether no further status change is expected.
func (n NotificationUpdate) Terminal() bool {
	switch n.Status {
	case NotificationDelivered, NotificationFailed, NotificationCancelled:
		return true
	}
	return false
}

// CampaignUpdate is a status or progress change for a campaign.
type CampaignUpdate struct {
	CampaignID  string     `json:"campaign_id"`
	Name        string     `json:"name,omitempty"`
	Status      string     `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CampaignMetrics
}

// CampaignMetrics are the running delivery counters of a campaign.
type CampaignMetrics struct {
	TotalSent      int `json:"total_sent"`
	TotalDelivered int `json:"total_delivered"`
	TotalFailed    int `json:"total_failed"`
	TotalOpened    int `json:"total_opened"`
	TotalClicked   int `json:"total_clicked"`
}

// SuccessRate is delivered/sent as a percentage.
func (m CampaignMetrics) SuccessRate() float64 {
	return percent(m.TotalDelivered, m.TotalSent)
}

// OpenRate is opened/delivered as a percentage.
func (m CampaignMetrics) OpenRate() float64 {
	return percent(m.TotalOpened, m.TotalDelivered)
}

// ClickRate is clicked/delivered as a percentage.
func (m CampaignMetrics) ClickRate() float64 {
	return percent(m.TotalClicked, m.TotalDelivered)
}

// DashboardStats is an aggregate snapshot pushed on the dashboard channel.
type DashboardStats struct {
	TotalNotifications int            `json:"total_notifications"`
	TodayNotifications int            `json:"today_notifications"`
	WeekNotifications  int            `json:"week_notifications"`
	MonthNotifications int            `json:"month_notifications"`
	StatusBreakdown    map[string]int `json:"status_breakdown,omitempty"`
	ChannelBreakdown   map[string]int `json:"channel_breakdown,omitempty"`
	SuccessRate        SuccessRate    `json:"success_rate"`
}

// SuccessRate breaks the dashboard total down by outcome.
type SuccessRate struct {
	Total               int     `json:"total"`
	Sent                int     `json:"sent"`
	Delivered           int     `json:"delivered"`
	Failed              int     `json:"failed"`
	SentPercentage      float64 `json:"sent_percentage,omitempty"`
	DeliveredPercentage float64 `json:"delivered_percentage,omitempty"`
	FailedPercentage    float64 `json:"failed_percentage,omitempty"`
}

func percent(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}
