package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestDeriveUsername(t *testing.T) {
	p := NewSimpleCredentialProvider(12)

	tests := []struct {
		name       string
		email      *string
		customerID uint
		want       string
	}{
		{"email local part", strPtr("jane@example.com"), 2004, "jane2004"},
		{"mixed case and punctuation", strPtr("  Jane.Doe+ISP@Example.com "), 7, "janedoeisp7"},
		{"no email", nil, 2004, "customer2004"},
		{"empty email", strPtr(""), 12, "customer12"},
		{"nothing alphanumeric", strPtr("...@example.com"), 3, "customer3"},
		{"non ascii stripped", strPtr("josé@example.com"), 9, "jos9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.DeriveUsername(tt.email, tt.customerID))
		})
	}
}

func TestDeriveUsername_CollidingFragments(t *testing.T) {
	p := NewSimpleCredentialProvider(12)

	a := p.DeriveUsername(strPtr("jane@example.com"), 1)
	b := p.DeriveUsername(strPtr("jane@other.org"), 2)
	assert.NotEqual(t, a, b)
}

func TestGeneratePassword(t *testing.T) {
	p := NewSimpleCredentialProvider(12)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		pw, err := p.GeneratePassword()
		require.NoError(t, err)
		assert.Len(t, pw, 12)
		for _, r := range pw {
			assert.Contains(t, alphanumeric, string(r))
		}
		seen[pw] = true
	}
	assert.Len(t, seen, 50)
}

func TestNewSimpleCredentialProvider_DefaultLength(t *testing.T) {
	pw, err := NewSimpleCredentialProvider(0).GeneratePassword()
	require.NoError(t, err)
	assert.Len(t, pw, DefaultPasswordLength)
}

func TestDisambiguate(t *testing.T) {
	assert.Equal(t, "jane2004s17", Disambiguate("jane2004", 17, 0))
	assert.Equal(t, "jane2004s17n1", Disambiguate("jane2004", 17, 1))
	assert.Equal(t, "jane2004s17n12", Disambiguate("jane2004", 17, 12))
}
