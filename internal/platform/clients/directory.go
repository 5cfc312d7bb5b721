package clients

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// directoryTimeout bounds user lookups; profile data decorates responses
// and must not stall a request indefinitely.
const directoryTimeout = 10 * time.Second

// User is the directory's public snapshot of an account.
type User struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
	Role      string `json:"role"`
}

// Directory resolves user profiles and referral relations from the user
// service.
type Directory struct {
	api
}

func NewDirectory(cfg Config) *Directory {
	return &Directory{api: api{
		baseURL:    cfg.BaseURL,
		secret:     cfg.Secret,
		httpClient: &http.Client{Timeout: directoryTimeout},
	}}
}

func (d *Directory) GetUser(ctx context.Context, userID string) (User, error) {
	var out struct {
		Data User `json:"data"`
	}
	if err := d.do(ctx, http.MethodGet, "/internal/users/"+url.PathEscape(userID), nil, &out); err != nil {
		return User{}, err
	}
	return out.Data, nil
}

func (d *Directory) GetUsers(ctx context.Context, userIDs []string) (map[string]User, error) {
	if len(userIDs) == 0 {
		return map[string]User{}, nil
	}
	var out struct {
		Data []User `json:"data"`
	}
	body := map[string][]string{"userIds": userIDs}
	if err := d.do(ctx, http.MethodPost, "/internal/users/batch", body, &out); err != nil {
		return nil, err
	}
	users := make(map[string]User, len(out.Data))
	for _, user := range out.Data {
		users[user.UserID] = user
	}
	return users, nil
}

// HasReferralRelation reports whether one user referred the other, in
// either direction. Referred pairs are exempt from the initiator message
// limit.
func (d *Directory) HasReferralRelation(ctx context.Context, userID string, otherID string) (bool, error) {
	var out struct {
		Data struct {
			Related bool `json:"related"`
		} `json:"data"`
	}
	query := url.Values{"userId": {userID}, "otherId": {otherID}}
	if err := d.do(ctx, http.MethodGet, "/internal/referrals/relation?"+query.Encode(), nil, &out); err != nil {
		return false, err
	}
	return out.Data.Related, nil
}

func (d *Directory) IsAdmin(ctx context.Context, userID string) (bool, error) {
	user, err := d.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.Role == "admin" || user.Role == "super_admin", nil
}
