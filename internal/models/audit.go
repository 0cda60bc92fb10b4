package models

import "time"

// AuditAction names what happened in an audit entry.
type AuditAction string

// AuditResource names the kind of record an audit entry touches.
type AuditResource string

const (
	AuditActionLogin          AuditAction = "LOGIN"
	AuditActionLogout         AuditAction = "LOGOUT"
	AuditActionRegister       AuditAction = "REGISTER"
	AuditActionPasswordChange AuditAction = "PASSWORD_CHANGE"
	AuditActionShopOnboard    AuditAction = "SHOP_ONBOARD"
	AuditActionProfileUpdate  AuditAction = "PROFILE_UPDATE"
	AuditActionCreate         AuditAction = "CREATE"
	AuditActionUpdate         AuditAction = "UPDATE"
	AuditActionDelete         AuditAction = "DELETE"
	AuditActionUserUpdate     AuditAction = "USER_UPDATE"
	AuditActionUserDeactivate AuditAction = "USER_DEACTIVATE"
)

const (
	AuditResourceAuth         AuditResource = "auth"
	AuditResourceProfile      AuditResource = "profile"
	AuditResourceShop         AuditResource = "shop"
	AuditResourceUser         AuditResource = "users"
	AuditResourceEvent        AuditResource = "event"
	AuditResourceAnnouncement AuditResource = "announcement"
)

// AuditLog is one row of the audit trail. Feed mutations store the request
// outline in NewValues; account changes store before and after snapshots.
type AuditLog struct {
	ID         string        `db:"id" json:"id"`
	UserID     *string       `db:"user_id" json:"user_id,omitempty"`
	Action     AuditAction   `db:"action" json:"action"`
	Resource   AuditResource `db:"resource" json:"resource"`
	ResourceID *string       `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte        `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte        `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string        `db:"ip_address" json:"ip_address"`
	UserAgent  string        `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}
