package services

import (
	"encoding/base64"

	"github.com/pquerna/otp/totp"
	"github.com/skip2/go-qrcode"
)

type TOTPSecret struct {
	Secret     string `json:"googleAuthSeed"`
	OtpAuthURL string `json:"otpauthUrl"`
	QRCode     string `json:"qrCode"`
}

// GenerateTOTP creates an authenticator secret with its otpauth URL and a
// PNG QR code as a data URL.
func GenerateTOTP(issuer, account string) (*TOTPSecret, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
	})
	if err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		return nil, err
	}

	return &TOTPSecret{
		Secret:     key.Secret(),
		OtpAuthURL: key.URL(),
		QRCode:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

func ValidateTOTP(code, secret string) bool {
	if code == "" || secret == "" {
		return false
	}
	return totp.Validate(code, secret)
}
