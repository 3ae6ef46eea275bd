package models

import "time"

// ProxyStatus is the connectivity state of a proxy device
type ProxyStatus string

const (
	StatusOnline  ProxyStatus = "online"
	StatusOffline ProxyStatus = "offline"
)

// Valid reports whether s is a known status
func (s ProxyStatus) Valid() bool {
	return s == StatusOnline || s == StatusOffline
}

// AccessLevel is an operator's privilege level
type AccessLevel string

const (
	AccessAdmin AccessLevel = "admin"
	AccessUser  AccessLevel = "user"
)

// Valid reports whether a is a known access level
func (a AccessLevel) Valid() bool {
	return a == AccessAdmin || a == AccessUser
}

// Proxy is a managed remote device. InternalIP is management-only and is
// never serialised. PublicIP is NULL while no address is assigned.
type Proxy struct {
	ID         uint        `json:"id" gorm:"primaryKey;autoIncrement"`
	DeviceName string      `json:"device_name" gorm:"type:varchar(255);not null"`
	InternalIP string      `json:"-" gorm:"column:internal_ip;type:varchar(64);not null"`
	PublicIP   *string     `json:"public_ip" gorm:"column:public_ip;type:varchar(64)"`
	Port       int         `json:"port" gorm:"not null"`
	Username   string      `json:"username" gorm:"type:varchar(255);not null"`
	Password   string      `json:"password" gorm:"type:varchar(255);not null"`
	Status     ProxyStatus `json:"status" gorm:"type:varchar(16);not null;default:offline;index"`
	CreatedAt  time.Time   `json:"created_at" gorm:"not null;autoCreateTime"`
	UpdatedAt  time.Time   `json:"updated_at" gorm:"not null;autoUpdateTime"`
}

// TableName overrides the table name
func (Proxy) TableName() string {
	return "proxies"
}

// HasPublicIP reports whether an address is currently assigned
func (p *Proxy) HasPublicIP() bool {
	return p.PublicIP != nil && *p.PublicIP != ""
}

// Session is one client connection window against a proxy (a proxy log)
type Session struct {
	ID               uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	ProxyID          uint       `json:"proxy_id" gorm:"not null;index"`
	ClientIP         string     `json:"client_ip" gorm:"column:client_ip;type:varchar(64);not null"`
	LoginTime        time.Time  `json:"login_time" gorm:"not null"`
	LogoutTime       *time.Time `json:"logout_time"`
	BytesTransferred int64      `json:"bytes_transferred" gorm:"not null;default:0"`
	CreatedAt        time.Time  `json:"created_at" gorm:"not null;autoCreateTime;index"`
}

// TableName overrides the table name
func (Session) TableName() string {
	return "proxy_logs"
}

// User is an operator account. Password holds the hash only.
type User struct {
	ID          uint        `json:"id" gorm:"primaryKey;autoIncrement"`
	Username    string      `json:"username" gorm:"type:varchar(255);not null;uniqueIndex"`
	Password    string      `json:"-" gorm:"type:varchar(255);not null"`
	AccessLevel AccessLevel `json:"access_level" gorm:"type:varchar(16);not null;default:user"`
	CreatedAt   time.Time   `json:"created_at" gorm:"not null;autoCreateTime"`
	UpdatedAt   time.Time   `json:"updated_at" gorm:"not null;autoUpdateTime"`
}

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}

// Setting is a global key/value configuration entry
type Setting struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Key         string    `json:"key" gorm:"type:varchar(255);not null;uniqueIndex"`
	Value       string    `json:"value" gorm:"type:text;not null"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"not null;autoUpdateTime"`
}

// TableName overrides the table name
func (Setting) TableName() string {
	return "settings"
}

// All lists every model for migrations
func All() []any {
	return []any{&Proxy{}, &Session{}, &User{}, &Setting{}}
}
