// Package models defines the records persisted by the server.
package models

import "time"

// Account is a login identity inside a tenant.
type Account struct {
	ID          int64
	UID         string
	TenantCode  string
	LoginCode   string
	LoginSecret string // bcrypt hash, never plaintext
	AdminLevel  int
	CreatedAt   time.Time
}

// LoginInfo is the public projection of an Account returned by listings.
type LoginInfo struct {
	UID        string `json:"uid"`
	LoginCode  string `json:"login_code"`
	AdminLevel int    `json:"admin_level"`
}

func (a *Account) Info() LoginInfo {
	return LoginInfo{UID: a.UID, LoginCode: a.LoginCode, AdminLevel: a.AdminLevel}
}
