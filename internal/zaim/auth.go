package zaim

import (
	"fmt"
	"strings"

	"fjacquet/anapay2zaim/internal/apperrors"

	"github.com/dghubble/oauth1"
)

// DefaultAuthorizeURL is the page where the user grants access.
const DefaultAuthorizeURL = "https://auth.zaim.net/users/auth"

const (
	requestTokenPath = "/v2/auth/request"
	accessTokenPath  = "/v2/auth/access"
	// outOfBand asks Zaim to display the verifier instead of redirecting.
	outOfBand = "oob"
)

// RequestToken is a temporary credential waiting for the user's approval.
type RequestToken struct {
	Token        string
	Secret       string
	AuthorizeURL string
}

// Authorizer runs the three-legged OAuth flow that produces Tokens.
type Authorizer struct {
	config *oauth1.Config
}

// NewAuthorizer configures the flow against baseURL and authorizeURL; empty
// values select the production endpoints.
func NewAuthorizer(consumerKey, consumerSecret, baseURL, authorizeURL string) (*Authorizer, error) {
	if consumerKey == "" || consumerSecret == "" {
		return nil, &apperrors.ConfigurationError{
			Setting: "zaim.consumer_key",
			Reason:  "ZAIM_CONSUMER_ID and ZAIM_CONSUMER_SECRET must be set",
		}
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if authorizeURL == "" {
		authorizeURL = DefaultAuthorizeURL
	}

	return &Authorizer{
		config: &oauth1.Config{
			ConsumerKey:    consumerKey,
			ConsumerSecret: consumerSecret,
			CallbackURL:    outOfBand,
			Endpoint: oauth1.Endpoint{
				RequestTokenURL: baseURL + requestTokenPath,
				AuthorizeURL:    authorizeURL,
				AccessTokenURL:  baseURL + accessTokenPath,
			},
		},
	}, nil
}

// Begin obtains a request token and the URL the user must visit.
func (a *Authorizer) Begin() (RequestToken, error) {
	token, secret, err := a.config.RequestToken()
	if err != nil {
		return RequestToken{}, fmt.Errorf("error obtaining request token: %w", err)
	}
	authURL, err := a.config.AuthorizationURL(token)
	if err != nil {
		return RequestToken{}, fmt.Errorf("error building authorization URL: %w", err)
	}
	return RequestToken{Token: token, Secret: secret, AuthorizeURL: authURL.String()}, nil
}

// Complete exchanges the approved request token and verifier for access tokens.
func (a *Authorizer) Complete(rt RequestToken, verifier string) (Tokens, error) {
	verifier = strings.TrimSpace(verifier)
	if verifier == "" {
		return Tokens{}, fmt.Errorf("oauth verifier is required")
	}
	token, secret, err := a.config.AccessToken(rt.Token, rt.Secret, verifier)
	if err != nil {
		return Tokens{}, fmt.Errorf("error obtaining access token: %w", err)
	}
	return Tokens{AccessToken: token, AccessTokenSecret: secret}, nil
}
