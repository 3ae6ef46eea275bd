package providers

import (
	"encoding/json"
	"time"

	"github.com/tphan267/arqut-fleet/pkg/models"
)

// CreateProxyInput is the payload for registering a proxy device. Any public
// address supplied by a caller is ignored; new proxies start unassigned.
type CreateProxyInput struct {
	DeviceName string `json:"device_name"`
	InternalIP string `json:"internal_ip"`
	Port       int    `json:"port"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

// UpdateStatusInput is a partial update. Nil fields are left untouched.
type UpdateStatusInput struct {
	Status   *models.ProxyStatus `json:"status"`
	PublicIP *string             `json:"public_ip"`
}

// ProxyView is the read view of a proxy. The internal address is never
// included and a missing public address is rendered as "".
type ProxyView struct {
	ID         uint               `json:"id"`
	DeviceName string             `json:"device_name"`
	PublicIP   string             `json:"public_ip"`
	Port       int                `json:"port"`
	Username   string             `json:"username"`
	Password   string             `json:"password"`
	Status     models.ProxyStatus `json:"status"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// NewProxyView builds the read view of p
func NewProxyView(p *models.Proxy) ProxyView {
	view := ProxyView{
		ID:         p.ID,
		DeviceName: p.DeviceName,
		Port:       p.Port,
		Username:   p.Username,
		Password:   p.Password,
		Status:     p.Status,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
	if p.PublicIP != nil {
		view.PublicIP = *p.PublicIP
	}
	return view
}

// ResetResult reports the outcome of an address reset
type ResetResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	AffectedCount int    `json:"affected_count"`
}

// ProxyDetails is what a client needs to connect through a proxy
type ProxyDetails struct {
	PublicIP string `json:"public_ip"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// OpenSessionInput records a client connection window. LoginTime is
// required; a nil LogoutTime means the session is still open.
type OpenSessionInput struct {
	ProxyID          uint       `json:"proxy_id"`
	ClientIP         string     `json:"client_ip"`
	LoginTime        *time.Time `json:"login_time"`
	LogoutTime       *time.Time `json:"logout_time"`
	BytesTransferred int64      `json:"bytes_transferred"`
}

// DashboardStats is a point in time snapshot of the fleet
type DashboardStats struct {
	TotalProxies   int64            `json:"total_proxies"`
	OnlineProxies  int64            `json:"online_proxies"`
	OfflineProxies int64            `json:"offline_proxies"`
	ActiveProxies  int64            `json:"active_proxies"`
	TotalUsers     int64            `json:"total_users"`
	RecentSessions []models.Session `json:"recent_sessions"`
}

// CreateUserInput is the payload for a new operator account. An empty
// AccessLevel defaults to user.
type CreateUserInput struct {
	Username    string             `json:"username"`
	Password    string             `json:"password"`
	AccessLevel models.AccessLevel `json:"access_level"`
}

// UpdateUserInput is a partial update. Nil fields keep their value.
type UpdateUserInput struct {
	Username    *string             `json:"username"`
	Password    *string             `json:"password"`
	AccessLevel *models.AccessLevel `json:"access_level"`
}

// Empty reports whether no field was supplied
func (in UpdateUserInput) Empty() bool {
	return in.Username == nil && in.Password == nil && in.AccessLevel == nil
}

// DeleteOutcome enumerates the results of deleting a user
type DeleteOutcome int

const (
	UserDeleted DeleteOutcome = iota + 1
	UserNotFound
)

// DeleteResult is the result of Directory.Delete. An unknown id is a normal
// outcome, not an error.
type DeleteResult struct {
	Outcome DeleteOutcome
}

// Success reports whether a row was removed
func (r DeleteResult) Success() bool {
	return r.Outcome == UserDeleted
}

// Message is the human readable outcome
func (r DeleteResult) Message() string {
	if r.Success() {
		return "User deleted successfully"
	}
	return "User not found"
}

// MarshalJSON renders the result as {success, message}
func (r DeleteResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{r.Success(), r.Message()})
}

// PutSettingInput upserts a setting. A nil Description clears it.
type PutSettingInput struct {
	Key         string  `json:"key"`
	Value       string  `json:"value"`
	Description *string `json:"description"`
}
