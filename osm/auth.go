package osm

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/golang/glog"
)

// Auth supplies credentials for authenticated requests. The library never
// implements an auth protocol itself; it only injects what it is given.
type Auth interface {
	apply(req *http.Request)
}

// BasicAuth sends http basic credentials.
type BasicAuth struct {
	Username string
	Password string
}

func (self *BasicAuth) apply(req *http.Request) {
	req.SetBasicAuth(self.Username, self.Password)
}

// TokenAuth sends a pre-acquired bearer token (e.g. from an OAuth flow done
// elsewhere).
type TokenAuth struct {
	Token string
}

func NewTokenAuth(token string) *TokenAuth {
	auth := &TokenAuth{
		Token: token,
	}
	if expiration, err := auth.Expiration(); err == nil && !expiration.IsZero() && expiration.Before(time.Now()) {
		glog.Infof("[auth]token expired at %s\n", expiration.Format(time.RFC3339))
	}
	return auth
}

func (self *TokenAuth) apply(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", self.Token))
}

// Expiration extracts the exp claim without verifying the signature.
// A token with no exp claim yields a zero time and no error.
func (self *TokenAuth) Expiration() (time.Time, error) {
	parser := gojwt.NewParser()
	token, _, err := parser.ParseUnverified(self.Token, gojwt.MapClaims{})
	if err != nil {
		return time.Time{}, err
	}
	expiration, err := token.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if expiration == nil {
		return time.Time{}, nil
	}
	return expiration.Time, nil
}

// LoadPasswordFile reads colon-separated user:pass lines. When username is
// empty the user on the first line is used.
func LoadPasswordFile(path string, username string) (*BasicAuth, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	auth := &BasicAuth{
		Username: username,
	}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		user, password, ok := strings.Cut(strings.TrimSpace(scanner.Text()), ":")
		if !ok {
			continue
		}
		if auth.Username == "" {
			auth.Username = strings.TrimSpace(user)
		}
		if strings.TrimSpace(user) == auth.Username {
			auth.Password = password
			return auth, scanner.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("no credentials for %q in %s", auth.Username, path)
}
