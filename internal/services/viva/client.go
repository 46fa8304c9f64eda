package viva

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const grantTypeClientCredentials = "client_credentials"

type ClientConfig struct {
	// APIURL is the base url of the Viva Wallet API.
	APIURL string

	// AccountsURL is the base url of the Viva Wallet OAuth server.
	AccountsURL string

	// CheckoutURL is the base url of the hosted checkout page.
	CheckoutURL string

	ClientID     string
	ClientSecret string

	// SourceCode identifies the payment source inside the merchant account.
	SourceCode string
}

type Client struct {
	apiURL      string
	accountsURL string
	checkoutURL string

	clientID     string
	clientSecret string
	sourceCode   string

	// accessToken authenticates API calls, renewed by the refresher.
	accessToken string

	// mu guards accessToken.
	mu sync.Mutex

	// toggleTokenRefresher wakes the refresher on a 401.
	toggleTokenRefresher chan struct{}

	hc *http.Client
}

// NewClient creates a Viva Wallet API client and starts its token
// refresher, which runs until ctx is cancelled.
func NewClient(ctx context.Context, c *ClientConfig) *Client {
	client := &Client{
		apiURL:       c.APIURL,
		accountsURL:  c.AccountsURL,
		checkoutURL:  c.CheckoutURL,
		clientID:     c.ClientID,
		clientSecret: c.ClientSecret,
		sourceCode:   c.SourceCode,

		// buffered so a 401 handler never blocks on the refresher.
		toggleTokenRefresher: make(chan struct{}, 1),

		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	go client.notifyAccessTokenExpired(ctx)

	return client
}

// notifyAccessTokenExpired renews the OAuth token on a fixed period and on
// demand after a 401, retrying with exponential backoff.
func (c *Client) notifyAccessTokenExpired(ctx context.Context) {
	// Viva tokens last one hour; renew well before expiry.
	ticker := time.NewTicker(45 * time.Minute)
	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			return

		case <-ticker.C:

		case <-c.toggleTokenRefresher:
			log.Println("notifyAccessTokenExpired: toggleTokenRefresher => token refresh requested")
		}

		backOff := time.Second

	Retry:
		for {
			token, err := c.connect(ctx)
			switch err {
			case nil:
				c.setAccessToken(token)

				break Retry

			default:
				log.Printf("notifyAccessTokenExpired: %v", err)
				select {
				case <-ctx.Done():
					return

				case <-time.After(backOff):
					backOff *= 2
				}
			}
		}
	}
}

func (c *Client) setAccessToken(accessToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = accessToken
}

func (c *Client) getAccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// connect performs the client_credentials exchange with the Viva accounts
// server and returns a ready-to-use Authorization header value.
func (c *Client) connect(ctx context.Context) (string, error) {
	query := url.Values{"grant_type": []string{grantTypeClientCredentials}}
	body := strings.NewReader(query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/connect/token", c.accountsURL), body)
	if err != nil {
		return "", fmt.Errorf("connectViva: http.NewRequestWithContext: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("connectViva: http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", errors.New("connectViva: resp.StatusCode: 401 => Unauthorized")
	}
	if resp.StatusCode != http.StatusOK {
		rbody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("connectViva: resp.StatusCode: %d, resp.Body: %s", resp.StatusCode, rbody)
	}

	var reply struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return "", fmt.Errorf("connectViva: json.Decode: %w", err)
	}

	return fmt.Sprintf("%s %s", reply.TokenType, reply.AccessToken), nil
}

type orderRequest struct {
	Amount          int64  `json:"amount"`
	CustomerTrns    string `json:"customerTrns"`
	SourceCode      string `json:"sourceCode,omitempty"`
	PaymentTimeout  int    `json:"paymentTimeout"`
	DisableExactAmt bool   `json:"disableExactAmount"`
	Customer        struct {
		Email       string `json:"email"`
		FullName    string `json:"fullName"`
		Phone       string `json:"phone"`
		CountryCode string `json:"countryCode"`
		RequestLang string `json:"requestLang"`
	} `json:"customer"`
}

// createOrder creates a checkout order and returns the order code the
// customer pays against.
func (c *Client) createOrder(ctx context.Context, req *orderRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("createOrderViva: json.Marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/checkout/v2/orders", c.apiURL), strings.NewReader(string(payload)))
	if err != nil {
		return "", fmt.Errorf("createOrderViva: http.NewRequestWithContext: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", c.getAccessToken())

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("createOrderViva: http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.toggleTokenRefresher <- struct{}{}
		return "", errors.New("createOrderViva: resp.StatusCode: 401 => Unauthorized")
	}
	if resp.StatusCode != http.StatusOK {
		rbody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("createOrderViva: resp.StatusCode: %d, resp.Body: %s", resp.StatusCode, rbody)
	}

	var reply struct {
		OrderCode json.Number `json:"orderCode"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return "", fmt.Errorf("createOrderViva: json.Decode: %w", err)
	}
	if reply.OrderCode.String() == "" {
		return "", errors.New("createOrderViva: empty orderCode in reply")
	}

	return reply.OrderCode.String(), nil
}
