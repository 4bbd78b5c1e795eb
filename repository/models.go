package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"
)

// --- Persistence Models ---

type userModel struct {
	ID           string    `gorm:"primaryKey;column:id"`
	Name         string    `gorm:"column:name;not null"`
	Email        string    `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	Role         string    `gorm:"column:role;not null;default:'user'"`
	IsActive     bool      `gorm:"column:is_active;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null"`
}

func (userModel) TableName() string { return "users" }

type deviceModel struct {
	ID               string         `gorm:"primaryKey;column:id"`
	UserID           string         `gorm:"column:user_id;not null;index"`
	Name             string         `gorm:"column:name;not null"`
	Phone            string         `gorm:"column:phone"`
	JID              string         `gorm:"column:jid"`
	Status           string         `gorm:"column:status;not null;default:'disconnected';index"`
	PanelID          sql.NullString `gorm:"column:panel_id;index"`
	BotEnabled       bool           `gorm:"column:bot_enabled;not null"`
	LastConnectedAt  *time.Time     `gorm:"column:last_connected_at"`
	DisconnectedAt   *time.Time     `gorm:"column:disconnected_at"`
	MessagesSent     int64          `gorm:"column:messages_sent;default:0"`
	MessagesReceived int64          `gorm:"column:messages_received;default:0"`
	CreatedAt        time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;not null"`
}

func (deviceModel) TableName() string { return "devices" }

type autoReplyRuleModel struct {
	ID            string    `gorm:"primaryKey;column:id"`
	UserID        string    `gorm:"column:user_id;not null;index"`
	DeviceID      string    `gorm:"column:device_id;index"`
	Keyword       string    `gorm:"column:keyword;not null"`
	MatchType     string    `gorm:"column:match_type;not null;default:'contains'"`
	Response      string    `gorm:"column:response;type:text;not null"`
	Priority      int       `gorm:"column:priority;default:0"`
	CaseSensitive bool      `gorm:"column:case_sensitive;not null"`
	IsActive      bool      `gorm:"column:is_active;not null"`
	TriggerCount  int64     `gorm:"column:trigger_count;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null"`
}

func (autoReplyRuleModel) TableName() string { return "auto_reply_rules" }

type panelModel struct {
	ID            string     `gorm:"primaryKey;column:id"`
	UserID        string     `gorm:"column:user_id;not null;index"`
	Name          string     `gorm:"column:name;not null"`
	URL           string     `gorm:"column:url;not null"`
	APIKey        string     `gorm:"column:api_key;not null"`
	Status        string     `gorm:"column:status;not null;default:'active'"`
	Balance       float64    `gorm:"column:balance;default:0"`
	Currency      string     `gorm:"column:currency"`
	LastCheckedAt *time.Time `gorm:"column:last_checked_at"`
	LastError     string     `gorm:"column:last_error"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;not null"`
}

func (panelModel) TableName() string { return "panels" }

type broadcastModel struct {
	ID              string     `gorm:"primaryKey;column:id"`
	UserID          string     `gorm:"column:user_id;not null;index"`
	DeviceID        string     `gorm:"column:device_id;not null;index"`
	Name            string     `gorm:"column:name;not null"`
	Message         string     `gorm:"column:message;type:text;not null"`
	Status          string     `gorm:"column:status;not null;default:'scheduled';index:idx_broadcast_due,priority:1"`
	ScheduledAt     time.Time  `gorm:"column:scheduled_at;not null;index:idx_broadcast_due,priority:2"`
	StartedAt       *time.Time `gorm:"column:started_at"`
	CompletedAt     *time.Time `gorm:"column:completed_at"`
	TotalRecipients int        `gorm:"column:total_recipients;default:0"`
	SentCount       int        `gorm:"column:sent_count;default:0"`
	FailedCount     int        `gorm:"column:failed_count;default:0"`
	FailureReason   string     `gorm:"column:failure_reason"`
	CreatedAt       time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;not null"`
}

func (broadcastModel) TableName() string { return "broadcasts" }

type broadcastRecipientModel struct {
	ID          string     `gorm:"primaryKey;column:id"`
	BroadcastID string     `gorm:"column:broadcast_id;not null;index:idx_recipient_order,priority:1"`
	Seq         int        `gorm:"column:seq;not null;index:idx_recipient_order,priority:2"`
	Phone       string     `gorm:"column:phone;not null"`
	Status      string     `gorm:"column:status;not null;default:'pending'"`
	Error       string     `gorm:"column:error"`
	MessageID   string     `gorm:"column:message_id"`
	SentAt      *time.Time `gorm:"column:sent_at"`
}

func (broadcastRecipientModel) TableName() string { return "broadcast_recipients" }

type walletModel struct {
	UserID    string    `gorm:"primaryKey;column:user_id"`
	Balance   float64   `gorm:"column:balance;not null;default:0"`
	Currency  string    `gorm:"column:currency;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (walletModel) TableName() string { return "wallets" }

type walletTransactionModel struct {
	ID           string  `gorm:"primaryKey;column:id"`
	UserID       string  `gorm:"column:user_id;not null;index"`
	Type         string  `gorm:"column:type;not null"`
	Amount       float64 `gorm:"column:amount;not null"`
	BalanceAfter float64 `gorm:"column:balance_after;not null"`
	// NULL for unreferenced rows so the unique index only covers real references
	Reference   *string   `gorm:"column:reference;uniqueIndex"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;index"`
}

func (walletTransactionModel) TableName() string { return "wallet_transactions" }

type resourceSubscriptionModel struct {
	ID            string    `gorm:"primaryKey;column:id"`
	UserID        string    `gorm:"column:user_id;not null;index"`
	ResourceType  string    `gorm:"column:resource_type;not null;index:idx_subscription_resource,priority:1"`
	ResourceID    string    `gorm:"column:resource_id;not null;index:idx_subscription_resource,priority:2"`
	Price         float64   `gorm:"column:price;not null"`
	Status        string    `gorm:"column:status;not null;default:'active';index"`
	PeriodStart   time.Time `gorm:"column:period_start;not null"`
	NextBillingAt time.Time `gorm:"column:next_billing_at;not null;index"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null"`
}

func (resourceSubscriptionModel) TableName() string { return "resource_subscriptions" }

type fonepayTransactionModel struct {
	ID            string    `gorm:"primaryKey;column:id"`
	UserID        string    `gorm:"column:user_id;not null;index"`
	Amount        float64   `gorm:"column:amount;not null"`
	TxnRef        string    `gorm:"column:txn_ref;not null;uniqueIndex"`
	Status        string    `gorm:"column:status;not null;default:'pending';index"`
	ReviewedBy    string    `gorm:"column:reviewed_by"`
	WalletTxnID   string    `gorm:"column:wallet_txn_id"`
	FailureReason string    `gorm:"column:failure_reason"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null"`
}

func (fonepayTransactionModel) TableName() string { return "fonepay_transactions" }

type auditLogModel struct {
	ID         string         `gorm:"primaryKey;column:id"`
	ActorID    string         `gorm:"column:actor_id;index"`
	Action     string         `gorm:"column:action;not null"`
	EntityType string         `gorm:"column:entity_type;not null;index:idx_audit_entity,priority:1"`
	EntityID   string         `gorm:"column:entity_id;not null;index:idx_audit_entity,priority:2"`
	Severity   string         `gorm:"column:severity;not null;default:'info'"`
	Detail     sql.NullString `gorm:"column:detail;type:text"` // JSON
	CreatedAt  time.Time      `gorm:"column:created_at;not null;index"`
}

func (auditLogModel) TableName() string { return "audit_logs" }

type healthCheckModel struct {
	ID          string     `gorm:"primaryKey;column:id"`
	EntityType  string     `gorm:"column:entity_type;not null;uniqueIndex:idx_health_entity"`
	EntityID    string     `gorm:"column:entity_id;not null;uniqueIndex:idx_health_entity"`
	Status      string     `gorm:"column:status;not null"`
	LastMessage string     `gorm:"column:last_message"`
	LastChecked time.Time  `gorm:"column:last_checked;not null"`
	LastSuccess *time.Time `gorm:"column:last_success"`
}

func (healthCheckModel) TableName() string { return "health_checks" }

// Models lists every table owned by the application.
func Models() []any {
	return []any{
		&userModel{},
		&deviceModel{},
		&autoReplyRuleModel{},
		&panelModel{},
		&broadcastModel{},
		&broadcastRecipientModel{},
		&walletModel{},
		&walletTransactionModel{},
		&resourceSubscriptionModel{},
		&fonepayTransactionModel{},
		&auditLogModel{},
		&healthCheckModel{},
	}
}

// AutoMigrate creates or updates every application table.
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(Models()...)
}

// isUniqueViolation relies on gorm.Config.TranslateError being set.
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableRef(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func utcNow() time.Time {
	return time.Now().UTC()
}
