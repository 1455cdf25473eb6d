// Package krakenrest is the minimal external collaborator the streaming
// core consumes a token from: request signing and the one private endpoint
// (GetWebSocketsToken) needed to open an authenticated stream. Everything
// else a full REST facade would cover (order placement, account queries,
// response schemas) is out of scope per spec.md §1.
package krakenrest

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://api.kraken.com"

// Client is a small signed-request REST client, shaped after the teacher
// corpus's internal/binance/client.go (apiKey/secretKey/baseURL/httpClient
// fields, a sign() method, one method per endpoint) but with Kraken's own
// signing scheme: nonce + SHA256, then HMAC-SHA512 keyed by the
// base64-decoded secret, grounded on
// original_source/src/non_blocking.rs's sign().
type Client struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// New returns a Client. apiSecret is the base64-encoded private key Kraken
// issues alongside the API key.
func New(apiKey, apiSecret string, log zerolog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// WithBaseURL overrides the default host, for tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = base
	return c
}

type krakenResponse struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

// sign implements Kraken's private-endpoint signature: HMAC-SHA512, keyed
// by the base64-decoded secret, over path ++ SHA256(nonce ++ postData).
func (c *Client) sign(path string, nonce int64, postData string) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(c.apiSecret)
	if err != nil {
		return "", fmt.Errorf("krakenrest: decode secret: %w", err)
	}

	hash := sha256.New()
	hash.Write([]byte(strconv.FormatInt(nonce, 10) + postData))
	digest := hash.Sum(nil)

	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(path))
	mac.Write(digest)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func (c *Client) queryPrivate(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	if params == nil {
		params = url.Values{}
	}
	nonce := time.Now().UnixNano() / int64(time.Millisecond)
	params.Set("nonce", strconv.FormatInt(nonce, 10))
	postData := params.Encode()

	sig, err := c.sign(path, nonce, postData)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBufferString(postData))
	if err != nil {
		return nil, fmt.Errorf("krakenrest: build request: %w", err)
	}
	req.Header.Set("API-Key", c.apiKey)
	req.Header.Set("API-Sign", sig)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("krakenrest: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("krakenrest: read response: %w", err)
	}

	var parsed krakenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("krakenrest: decode response: %w", err)
	}
	if len(parsed.Error) > 0 {
		return nil, fmt.Errorf("krakenrest: %s", strings.Join(parsed.Error, "; "))
	}
	return parsed.Result, nil
}

// TokenResponse is the GetWebSocketsToken payload.
type TokenResponse struct {
	Token   string `json:"token"`
	Expires int     `json:"expires"`
}

// GetWebSocketsToken obtains the short-lived opaque token the streaming
// core consumes to open an authenticated connection, grounded on
// original_source/src/non_blocking.rs's get_websockets_token().
func (c *Client) GetWebSocketsToken(ctx context.Context) (TokenResponse, error) {
	result, err := c.queryPrivate(ctx, "/0/private/GetWebSocketsToken", nil)
	if err != nil {
		return TokenResponse{}, err
	}
	var tok TokenResponse
	if err := json.Unmarshal(result, &tok); err != nil {
		return TokenResponse{}, fmt.Errorf("krakenrest: decode token response: %w", err)
	}
	c.log.Debug().Int("expires_in", tok.Expires).Msg("obtained websockets token")
	return tok, nil
}
