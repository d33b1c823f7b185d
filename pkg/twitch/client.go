package twitch

import (
	"net/http"

	"github.com/nicklaw5/helix/v2"
)

type Config struct {
	ClientID string `yaml:"client_id"`
	Secret   string `yaml:"secret"`

	AccessToken  string `yaml:"access_token"`
	RefreshToken string `yaml:"refresh_token"`

	BroadcasterID string `yaml:"broadcaster_id"`
	Channel       string `yaml:"channel"`
	BotLogin      string `yaml:"bot_login"`
}

var _ HTTPClient = http.DefaultClient

type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

type Client struct {
	httpClient HTTPClient
	cfg        *Config
}

func New(httpClient HTTPClient, cfg *Config) *Client {
	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
	}
}

// NewHelixClient builds a user-token helix client. onRefresh, when set, is
// invoked with the rotated token pair so it can be persisted.
func (c *Client) NewHelixClient(onRefresh func(accessToken, refreshToken string)) (*helix.Client, error) {
	client, err := helix.NewClient(&helix.Options{
		HTTPClient: c.httpClient,

		ClientID:        c.cfg.ClientID,
		ClientSecret:    c.cfg.Secret,
		UserAccessToken: c.cfg.AccessToken,
		RefreshToken:    c.cfg.RefreshToken,
	})
	if err != nil {
		return nil, err
	}

	if onRefresh != nil {
		client.OnUserAccessTokenRefreshed(onRefresh)
	}

	return client, nil
}

func (c *Client) NewHelixAppClient() (*helix.Client, error) {
	return helix.NewClient(&helix.Options{
		HTTPClient: c.httpClient,

		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.Secret,
	})
}
