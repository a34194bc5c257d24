package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// Максимальные длины полей профиля
	MaxCityLength            = 100
	MaxDeliveryAddressLength = 500

	// Лимит Telegram на текст сообщения
	MaxMessageLength = 4096
)

var validRoles = []string{"user", "admin"}

// ValidateCity проверяет город доставки
func ValidateCity(city string) error {
	return requiredText("city", city, MaxCityLength)
}

// ValidateDeliveryAddress проверяет адрес доставки
func ValidateDeliveryAddress(address string) error {
	return requiredText("delivery address", address, MaxDeliveryAddressLength)
}

// ValidateMessageText проверяет текст уведомления
func ValidateMessageText(text string) error {
	return requiredText("text", text, MaxMessageLength)
}

// ValidateUserRole проверяет роль пользователя
func ValidateUserRole(role string) error {
	for _, r := range validRoles {
		if role == r {
			return nil
		}
	}
	return fmt.Errorf("invalid role: %q, valid roles: %v", role, validRoles)
}

// ValidatePositiveInt проверяет, что число положительное
func ValidatePositiveInt(value int64, fieldName string) error {
	if value <= 0 {
		return fmt.Errorf("%s must be positive", fieldName)
	}
	return nil
}

func requiredText(field, value string, max int) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}
	if utf8.RuneCountInString(value) > max {
		return fmt.Errorf("%s cannot exceed %d characters", field, max)
	}
	return nil
}
