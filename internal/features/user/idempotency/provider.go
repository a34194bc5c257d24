// Package idempotency generates request deduplication tokens for create-like
// operations. The reconciler stores the token on the record it creates, so a
// retried create can recognise its own earlier write.
package idempotency

import "github.com/google/uuid"

// Provider generates opaque keys, unique with overwhelming probability.
type Provider interface {
	GenerateKey() string
}

// UUIDProvider returns random (v4) UUIDs.
type UUIDProvider struct{}

func NewUUIDProvider() UUIDProvider { return UUIDProvider{} }

func (UUIDProvider) GenerateKey() string {
	return uuid.NewString()
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() string

func (f ProviderFunc) GenerateKey() string { return f() }
