package credential

import (
	"crypto/rsa"
	"fmt"
	"strconv"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// processCredentialTTL is kept short and well under GitHub's 10 minute
// ceiling so clock drift between this process and GitHub never produces
// a JWT that GitHub considers issued in the future.
const processCredentialTTL = 9 * time.Minute

// clockSkewAllowance backdates IssuedAt so a JWT signed an instant
// before GitHub's clock reaches the same second is still accepted.
const clockSkewAllowance = 60 * time.Second

// SignProcessCredential builds and signs the short-lived JWT GitHub
// calls the App's "JWT", used only to exchange for an installation
// access token. appID is the GitHub App's numeric ID; key is the App's
// RSA private key.
func SignProcessCredential(appID int64, key *rsa.PrivateKey) (string, error) {
	now := time.Now()

	token, err := jwt.NewBuilder().
		Issuer(strconv.FormatInt(appID, 10)).
		IssuedAt(now.Add(-clockSkewAllowance)).
		Expiration(now.Add(processCredentialTTL)).
		Build()
	if err != nil {
		return "", fmt.Errorf("credential: build process jwt: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256(), key))
	if err != nil {
		return "", fmt.Errorf("credential: sign process jwt: %w", err)
	}

	return string(signed), nil
}
