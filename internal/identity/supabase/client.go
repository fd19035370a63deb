package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/makoban/koubo-navi/internal/config"
	"github.com/makoban/koubo-navi/internal/identity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

type Verifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *zap.Logger
}

func New(p Params) domain.Verifier {
	return &Verifier{
		baseURL: strings.TrimRight(p.Config.IdentityBaseURL, "/"),
		apiKey:  p.Config.IdentityAPIKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     p.Log.Named("identity.verifier"),
	}
}

type whoamiResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Verify calls the identity provider's whoami endpoint with the caller's
// token. Any failure, including a subject that is not a UUID, resolves to
// anonymous.
func (v *Verifier) Verify(ctx context.Context, token string) domain.Identity {
	token = strings.TrimSpace(token)
	if token == "" || v.baseURL == "" {
		return domain.Identity{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return domain.Identity{}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", v.apiKey)

	resp, err := v.client.Do(req)
	if err != nil {
		v.log.Debug("whoami request failed", zap.Error(err))
		return domain.Identity{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Identity{}
	}

	var body whoamiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		v.log.Debug("whoami decode failed", zap.Error(err))
		return domain.Identity{}
	}

	subject := strings.ToLower(strings.TrimSpace(body.ID))
	if !uuidPattern.MatchString(subject) {
		return domain.Identity{}
	}

	return domain.Identity{UserID: subject, Email: strings.TrimSpace(body.Email)}
}
