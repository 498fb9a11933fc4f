package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/sakif/videohub/internal/model"
)

// Principal is a Google account verified by the sign-in flow.
type Principal struct {
	Subject       string
	Email         string
	Name          string
	AvatarURL     string
	EmailVerified bool
}

// ChannelGrant is the result of authorizing a YouTube channel.
type ChannelGrant struct {
	ChannelID   string
	Title       string
	Credentials model.ChannelCredentials
}

// GoogleProvider runs two OAuth flows against the same Google client:
//
//   - sign-in with the openid/email/profile scopes
//   - channel authorization with the YouTube upload scopes, requesting a
//     refresh token (offline access, forced consent)
type GoogleProvider struct {
	login   *oauth2.Config
	channel *oauth2.Config
	apiOpts []option.ClientOption
}

func NewGoogleProvider(clientID, clientSecret, loginCallback, channelCallback string) *GoogleProvider {
	return &GoogleProvider{
		login: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  loginCallback,
			Scopes:       []string{"openid", oauth2api.UserinfoEmailScope, oauth2api.UserinfoProfileScope},
			Endpoint:     google.Endpoint,
		},
		channel: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  channelCallback,
			Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeReadonlyScope},
			Endpoint:     google.Endpoint,
		},
	}
}

// NewState returns a random value for the OAuth state parameter.
func NewState() string {
	return xid.New().String()
}

// LoginURL is where the browser is sent to sign in.
func (p *GoogleProvider) LoginURL(state string) string {
	return p.login.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// ExchangeLogin trades the callback code for the signed-in user's profile.
func (p *GoogleProvider) ExchangeLogin(ctx context.Context, code string) (*Principal, error) {
	token, err := p.login.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging sign-in code: %w", err)
	}

	opts := append([]option.ClientOption{option.WithTokenSource(p.login.TokenSource(ctx, token))}, p.apiOpts...)
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("auth: creating userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("auth: fetching userinfo: %w", err)
	}
	if info.Id == "" || info.Email == "" {
		return nil, errors.New("auth: google returned a profile without id or email")
	}

	return &Principal{
		Subject:       info.Id,
		Email:         info.Email,
		Name:          info.Name,
		AvatarURL:     info.Picture,
		EmailVerified: info.VerifiedEmail != nil && *info.VerifiedEmail,
	}, nil
}

// ChannelURL is where an account owner is sent to connect a channel.
func (p *GoogleProvider) ChannelURL(state string) string {
	return p.channel.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// ExchangeChannel trades the callback code for channel tokens and looks up
// which channel they belong to.
func (p *GoogleProvider) ExchangeChannel(ctx context.Context, code string) (*ChannelGrant, error) {
	token, err := p.channel.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging channel code: %w", err)
	}

	opts := append([]option.ClientOption{option.WithTokenSource(p.channel.TokenSource(ctx, token))}, p.apiOpts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("auth: creating youtube client: %w", err)
	}

	resp, err := svc.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("auth: listing channels: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, errors.New("auth: google account has no youtube channel")
	}

	ch := resp.Items[0]
	grant := &ChannelGrant{
		ChannelID: ch.Id,
		Credentials: model.ChannelCredentials{
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			Expiry:       token.Expiry,
		},
	}
	if ch.Snippet != nil {
		grant.Title = ch.Snippet.Title
	}
	return grant, nil
}

// Refresh obtains a new access token from the stored refresh token. Google
// usually omits the refresh token from refresh responses; the old one is
// kept in that case.
func (p *GoogleProvider) Refresh(ctx context.Context, creds model.ChannelCredentials) (model.ChannelCredentials, error) {
	if creds.RefreshToken == "" {
		return creds, errors.New("auth: no refresh token stored for channel")
	}

	// An expiry in the past makes the token source refresh immediately.
	stale := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		Expiry:       time.Now().Add(-time.Minute),
	}

	token, err := p.channel.TokenSource(ctx, stale).Token()
	if err != nil {
		return creds, fmt.Errorf("auth: refreshing channel token: %w", err)
	}

	refreshed := model.ChannelCredentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = creds.RefreshToken
	}
	return refreshed, nil
}
