package middleware

import (
	"net/http"
	"strings"

	"profile-service/models"
)

const walletParam = "wallet"

// WalletFromRequest resolves the caller's wallet from, in order, the "wallet"
// query parameter, a bearer Authorization header and the "wallet" form field.
// The form must already be parsed for the last source to be seen.
func WalletFromRequest(r *http.Request) (string, error) {
	if wallet := strings.TrimSpace(r.URL.Query().Get(walletParam)); wallet != "" {
		return wallet, nil
	}

	if wallet := walletFromAuthorization(r.Header.Get("Authorization")); wallet != "" {
		return wallet, nil
	}

	if r.PostForm != nil {
		if wallet := strings.TrimSpace(r.PostForm.Get(walletParam)); wallet != "" {
			return wallet, nil
		}
	}

	return "", models.ErrMissingIdentity
}

func walletFromAuthorization(header string) string {
	fields := strings.Fields(header)
	if len(fields) == 0 {
		return ""
	}
	if strings.EqualFold(fields[0], "Bearer") {
		if len(fields) < 2 {
			return ""
		}
		return fields[1]
	}
	return strings.TrimSpace(header)
}
