package security

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// totpIssuer is shown by authenticator apps next to the account name.
const totpIssuer = "TV Panel"

// TOTPEnrollment is a freshly generated TOTP secret with its provisioning data.
type TOTPEnrollment struct {
	Secret     string
	OTPAuthURL string
	QRImage    string // PNG data URL; empty when rendering failed.
}

// NewTOTPEnrollment generates a TOTP secret for accountName.
func NewTOTPEnrollment(accountName string) (TOTPEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: accountName,
	})
	if err != nil {
		return TOTPEnrollment{}, fmt.Errorf("generate totp secret: %w", err)
	}
	return TOTPEnrollment{
		Secret:     key.Secret(),
		OTPAuthURL: key.URL(),
		QRImage:    qrDataURL(key),
	}, nil
}

// ValidateTOTP checks a 6-digit code against secret at the current time.
func ValidateTOTP(code, secret string) bool {
	return ValidateTOTPAt(code, secret, time.Now())
}

// ValidateTOTPAt checks a code against secret at t, allowing one step of clock skew.
func ValidateTOTPAt(code, secret string, t time.Time) bool {
	code = strings.TrimSpace(code)
	if code == "" || strings.TrimSpace(secret) == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, t.UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func qrDataURL(key *otp.Key) string {
	img, err := key.Image(220, 220)
	if err != nil {
		return ""
	}
	var buf bytes.Buffer
	if errEncode := png.Encode(&buf, img); errEncode != nil {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}
