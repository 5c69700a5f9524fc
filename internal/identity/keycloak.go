package identity

import (
	"context"

	"github.com/Nerzal/gocloak/v13"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// KeycloakDirectory resolves emails against a Keycloak realm using the
// admin API with a service-account client.
type KeycloakDirectory struct {
	client       *gocloak.GoCloak
	logger       *zap.SugaredLogger
	realm        string
	clientID     string
	clientSecret string
}

func NewKeycloakDirectory(logger *zap.SugaredLogger, url, realm, clientID, clientSecret string) *KeycloakDirectory {
	return &KeycloakDirectory{
		client:       gocloak.NewClient(url),
		logger:       logger,
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

func (d *KeycloakDirectory) LookupByEmail(ctx context.Context, email string) (uuid.UUID, error) {
	token, err := d.client.LoginClient(ctx, d.clientID, d.clientSecret, d.realm)
	if err != nil {
		return uuid.Nil, err
	}
	exact := true
	users, err := d.client.GetUsers(ctx, token.AccessToken, d.realm, gocloak.GetUsersParams{
		Email: &email,
		Exact: &exact,
	})
	if err != nil {
		return uuid.Nil, err
	}
	for _, user := range users {
		if user.ID == nil {
			continue
		}
		id, err := uuid.Parse(*user.ID)
		if err != nil {
			d.logger.Warnf("keycloak returned a non-uuid user id %q for %s", *user.ID, email)
			continue
		}
		return id, nil
	}
	return uuid.Nil, ErrUserNotFound
}
