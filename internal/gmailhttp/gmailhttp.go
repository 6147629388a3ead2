/*
Package gmailhttp implements an HTTP client for the Gmail API.

Credentials follow the installed-application OAuth 2.0 flow: the
client configuration is read from a credentials JSON file (downloaded
from the API console) and the bearer token is cached in a local JSON
file.  When no cached token exists the user is walked through the
consent URL once and the exchanged token is written back to the cache.

Token refresh is handled by oauth2.ReuseTokenSource via the refresh
token inside the cached file, so long-lived runs keep working without
re-consent.  The cache file is rewritten only during the initial
exchange; refreshed access tokens are deliberately not persisted, since
the refresh token is the only durable part.
*/
package gmailhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Options name the two credential files and the scopes to request.
type Options struct {
	CredentialsPath string
	TokenPath       string
	Scopes          []string
}

// New returns a new HTTP client capable of using the Gmail API.
func New(ctx context.Context, opts Options) (*http.Client, error) {
	b, err := os.ReadFile(opts.CredentialsPath)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read credentials file %q", opts.CredentialsPath)
	}
	config, err := google.ConfigFromJSON(b, opts.Scopes...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse credentials file")
	}

	tok, err := tokenFromFile(opts.TokenPath)
	if err != nil {
		tok, err = authorize(ctx, config)
		if err != nil {
			return nil, err
		}
		if err := saveToken(opts.TokenPath, tok); err != nil {
			return nil, err
		}
	}

	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, config.TokenSource(ctx, tok))), nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, errors.Wrapf(err, "unable to decode token file %q", path)
	}
	return tok, nil
}

// authorize runs the one-time console consent flow.
func authorize(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	url := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Open the following link in your browser, then paste the authorization code:\n%v\n", url)

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return nil, errors.Wrap(err, "unable to read authorization code")
	}
	tok, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "unable to exchange authorization code")
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return errors.Wrapf(err, "unable to cache token at %q", path)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return errors.Wrapf(err, "unable to encode token to %q", path)
	}
	return nil
}
