package models

import (
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// LaunchIdentity is the signed Telegram identity handed to the Mini App at
// launch. Read-only for the lifetime of a session; never persisted as is.
type LaunchIdentity struct {
	TelegramID   int64  `json:"telegramId"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"languageCode,omitempty"`
	IsPremium    bool   `json:"isPremium"`
}

// Validate returns a short reason when a required field is missing.
func (i LaunchIdentity) Validate() (reason string, ok bool) {
	switch {
	case i.TelegramID <= 0:
		return "telegram id is missing", false
	case strings.TrimSpace(i.FirstName) == "":
		return "first name is missing", false
	}
	return "", true
}

// UserRecord is the durable user keyed by TelegramID.
// @Description Durable marketplace user record
type UserRecord struct {
	TelegramID      int64  `json:"telegramId" example:"123456789"`
	FirstName       string `json:"firstName" example:"John"`
	LastName        string `json:"lastName,omitempty" example:"Doe"`
	Username        string `json:"username,omitempty" example:"johndoe"`
	LanguageCode    string `json:"languageCode,omitempty" example:"en"`
	IsPremium       bool   `json:"isPremium"`
	City            string `json:"city"`
	DeliveryAddress string `json:"deliveryAddress"`
	WalletAddress   string `json:"walletAddress,omitempty"`

	// Set at creation, never reset.
	AgreedToTerms bool      `json:"agreedToTerms"`
	RegisteredAt  time.Time `json:"registeredAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	OnboardingCompleted bool   `json:"onboardingCompleted"`
	IsBlocked           bool   `json:"isBlocked"`
	Role                string `json:"role" enums:"user,admin"`
	// Nil until the bot links a chat.
	ChatID *int64 `json:"chatId,omitempty"`

	// Idempotency key of the create request that produced this record.
	CreationKey string `json:"-"`
}

// Clone returns a deep copy.
func (u *UserRecord) Clone() *UserRecord {
	if u == nil {
		return nil
	}
	c := *u
	if u.ChatID != nil {
		id := *u.ChatID
		c.ChatID = &id
	}
	return &c
}

// CreateUserFields are the creation-only fields of a new record.
type CreateUserFields struct {
	TelegramID    int64
	FirstName     string
	LastName      string
	Username      string
	LanguageCode  string
	IsPremium     bool
	Role          string
	AgreedToTerms bool
	RegisteredAt  time.Time
	CreationKey   string
}

// Record builds the initial record for these fields.
func (f CreateUserFields) Record() *UserRecord {
	role := f.Role
	if role == "" {
		role = RoleUser
	}
	return &UserRecord{
		TelegramID:    f.TelegramID,
		FirstName:     f.FirstName,
		LastName:      f.LastName,
		Username:      f.Username,
		LanguageCode:  f.LanguageCode,
		IsPremium:     f.IsPremium,
		Role:          role,
		AgreedToTerms: f.AgreedToTerms,
		RegisteredAt:  f.RegisteredAt,
		UpdatedAt:     f.RegisteredAt,
		CreationKey:   f.CreationKey,
	}
}

// ProfileUpdate carries the onboarding profile fields.
type ProfileUpdate struct {
	City            string `json:"city" binding:"required"`
	DeliveryAddress string `json:"deliveryAddress" binding:"required"`
	WalletAddress   string `json:"walletAddress,omitempty"`
}

// ChatLinkRequest is the bot callback body.
type ChatLinkRequest struct {
	TelegramID     int64 `json:"telegramId" binding:"required"`
	TelegramChatID int64 `json:"telegramChatId" binding:"required"`
}

type BlockUpdate struct {
	Blocked bool `json:"blocked"`
}

type RoleUpdate struct {
	Role string `json:"role" binding:"required,oneof=user admin"`
}
