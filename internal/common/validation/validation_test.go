package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCity(t *testing.T) {
	assert.NoError(t, ValidateCity("Berlin"))
	assert.NoError(t, ValidateCity(strings.Repeat("я", MaxCityLength)))
	assert.Error(t, ValidateCity("   "))
	assert.Error(t, ValidateCity(strings.Repeat("a", MaxCityLength+1)))
}

func TestValidateDeliveryAddress(t *testing.T) {
	assert.NoError(t, ValidateDeliveryAddress("Main st. 1"))
	assert.Error(t, ValidateDeliveryAddress(""))
	assert.Error(t, ValidateDeliveryAddress(strings.Repeat("a", MaxDeliveryAddressLength+1)))
}

func TestValidateMessageText(t *testing.T) {
	assert.NoError(t, ValidateMessageText("your order has shipped"))
	assert.Error(t, ValidateMessageText(" "))
	assert.Error(t, ValidateMessageText(strings.Repeat("a", MaxMessageLength+1)))
}

func TestValidateUserRole(t *testing.T) {
	assert.NoError(t, ValidateUserRole("user"))
	assert.NoError(t, ValidateUserRole("admin"))
	assert.Error(t, ValidateUserRole("moderator"))
	assert.Error(t, ValidateUserRole(""))
}

func TestValidatePositiveInt(t *testing.T) {
	assert.NoError(t, ValidatePositiveInt(1, "id"))
	assert.EqualError(t, ValidatePositiveInt(0, "telegramId"), "telegramId must be positive")
}
