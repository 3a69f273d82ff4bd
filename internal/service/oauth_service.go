package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type IOAuthService interface {
	GetLoginURL(provider string) (string, error)
	HandleCallback(ctx context.Context, provider string, code string) (*dto.LoginResponse, error)
}

type oauthService struct {
	uowFactory unitofwork.RepositoryFactory
	googleConf *oauth2.Config
}

func NewOAuthService(uowFactory unitofwork.RepositoryFactory) IOAuthService {
	conf := &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	return &oauthService{
		uowFactory: uowFactory,
		googleConf: conf,
	}
}

func (s *oauthService) GetLoginURL(provider string) (string, error) {
	if provider != "google" {
		return "", serverutils.NewBadRequestError("Unsupported provider")
	}

	b := make([]byte, 16)
	rand.Read(b)
	state := base64.URLEncoding.EncodeToString(b)

	return s.googleConf.AuthCodeURL(state), nil
}

func (s *oauthService) HandleCallback(ctx context.Context, provider string, code string) (*dto.LoginResponse, error) {
	if provider != "google" {
		return nil, serverutils.NewBadRequestError("Unsupported provider")
	}

	token, err := s.googleConf.Exchange(ctx, code)
	if err != nil {
		return nil, serverutils.NewUnauthorizedError("Code exchange failed")
	}

	googleUser, err := s.fetchGoogleUser(token.AccessToken)
	if err != nil {
		return nil, serverutils.NewInternalError("Failed to fetch user info", err)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	// Provider link first: a returning OAuth user may have changed email.
	user, err := s.findLinkedUser(ctx, uow, provider, googleUser.ID)
	if err != nil {
		return nil, err
	}

	if user == nil {
		user, err = s.findOrCreateByEmail(ctx, uow, provider, googleUser)
		if err != nil {
			return nil, err
		}
	}

	accessToken, err := serverutils.IssueToken(user.Id, accessTokenTTL)
	if err != nil {
		return nil, serverutils.NewInternalError("Failed to issue token", err)
	}

	return &dto.LoginResponse{
		AccessToken: accessToken,
		User: dto.UserResponse{
			Id:        user.Id,
			Username:  user.Username,
			Email:     user.Email,
			AvatarURL: user.AvatarURL,
		},
	}, nil
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (s *oauthService) fetchGoogleUser(accessToken string) (*googleUserInfo, error) {
	resp, err := http.Get("https://www.googleapis.com/oauth2/v2/userinfo?access_token=" + accessToken)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var info googleUserInfo
	if err := json.Unmarshal(content, &info); err != nil {
		return nil, err
	}
	if info.Email == "" {
		return nil, fmt.Errorf("no email in provider response")
	}
	return &info, nil
}

func (s *oauthService) findLinkedUser(ctx context.Context, uow unitofwork.UnitOfWork, provider, providerUserId string) (*entity.User, error) {
	link, err := uow.UserRepository().FindProvider(ctx, specification.ByProvider{
		ProviderName:   provider,
		ProviderUserId: providerUserId,
	})
	if err != nil {
		return nil, serverutils.NewInternalError("Failed to query provider link", err)
	}
	if link == nil {
		return nil, nil
	}

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: link.UserId})
	if err != nil {
		return nil, serverutils.NewInternalError("Failed to load linked user", err)
	}
	return user, nil
}

func (s *oauthService) findOrCreateByEmail(ctx context.Context, uow unitofwork.UnitOfWork, provider string, info *googleUserInfo) (*entity.User, error) {
	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: info.Email})
	if err != nil {
		return nil, serverutils.NewInternalError("Failed to query user", err)
	}

	if user == nil {
		avatar := info.Picture
		user = &entity.User{
			Id:        uuid.New(),
			Username:  s.deriveUsername(ctx, uow, info),
			Email:     info.Email,
			AvatarURL: &avatar,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := uow.UserRepository().Create(ctx, user); err != nil {
			return nil, serverutils.NewInternalError("Failed to create user", err)
		}
	}

	link := &entity.UserProvider{
		Id:             uuid.New(),
		UserId:         user.Id,
		ProviderName:   provider,
		ProviderUserId: info.ID,
		AvatarURL:      info.Picture,
		CreatedAt:      time.Now(),
	}
	if err := uow.UserRepository().CreateProvider(ctx, link); err != nil {
		return nil, serverutils.NewInternalError("Failed to link provider", err)
	}

	return user, nil
}

// deriveUsername builds a unique handle from the profile name or the email
// local part, suffixing a short random tail on collision.
func (s *oauthService) deriveUsername(ctx context.Context, uow unitofwork.UnitOfWork, info *googleUserInfo) string {
	base := strings.ToLower(strings.ReplaceAll(info.Name, " ", ""))
	if base == "" {
		base = strings.Split(info.Email, "@")[0]
	}

	existing, _ := uow.UserRepository().FindOne(ctx, specification.ByUsername{Username: base})
	if existing == nil {
		return base
	}
	return base + "-" + uuid.NewString()[:8]
}
