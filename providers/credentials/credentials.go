package credentials

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	DefaultPasswordLength = 12
	alphanumeric          = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type CredentialProvider interface {
	DeriveUsername(email *string, customerID uint) string
	GeneratePassword() (string, error)
}

// SimpleCredentialProvider derives usernames from the customer's email and
// draws passwords from crypto/rand.
type SimpleCredentialProvider struct {
	passwordLength int
	alphabet       string
}

func NewSimpleCredentialProvider(passwordLength int) *SimpleCredentialProvider {
	if passwordLength <= 0 {
		passwordLength = DefaultPasswordLength
	}
	return &SimpleCredentialProvider{
		passwordLength: passwordLength,
		alphabet:       alphanumeric,
	}
}

// DeriveUsername returns the lower-cased alphanumeric local part of the email
// followed by the customer id, or customer<id> when there is nothing usable.
func (s *SimpleCredentialProvider) DeriveUsername(email *string, customerID uint) string {
	base := ""
	if email != nil {
		local, _, _ := strings.Cut(strings.TrimSpace(*email), "@")
		base = Sanitize(local)
	}
	if base == "" {
		base = "customer"
	}
	return base + strconv.FormatUint(uint64(customerID), 10)
}

func (s *SimpleCredentialProvider) GeneratePassword() (string, error) {
	max := big.NewInt(int64(len(s.alphabet)))
	var b strings.Builder
	b.Grow(s.passwordLength)
	for i := 0; i < s.passwordLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, "failed to read random source")
		}
		b.WriteByte(s.alphabet[n.Int64()])
	}
	return b.String(), nil
}

// Sanitize keeps ASCII letters and digits only, lower-cased.
func Sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Disambiguate appends the service id to a username that is already held.
// Later attempts add a counter: jane2004s17, jane2004s17n1, jane2004s17n2.
func Disambiguate(username string, serviceID uint, attempt int) string {
	name := username + "s" + strconv.FormatUint(uint64(serviceID), 10)
	if attempt > 0 {
		name += "n" + strconv.Itoa(attempt)
	}
	return name
}
