package directory

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/nullsweep/camap/api/schemas"
	"github.com/nullsweep/camap/internal/config"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxAttempts bounds throttling retries per request.
const maxAttempts = 3

// Client is the Microsoft Graph implementation of the directory collaborator.
// It owns its own throttling and retry policy; callers only see success,
// schemas.ErrNotFound, or a transient error.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// Compile-time contract check.
var _ schemas.DirectoryClient = (*Client)(nil)

// NewClient builds a Graph client from configuration. An absent or expired
// session token is rejected here, before any collection work starts.
func NewClient(cfg config.DirectoryConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := ValidateSessionToken(cfg.Token, time.Now()); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		log:     logger.Named("directory"),
	}, nil
}

// GetUser fetches one user by object id.
func (c *Client) GetUser(ctx context.Context, id string) (schemas.DirectoryEntity, error) {
	return c.getEntity(ctx, "/users/"+url.PathEscape(id), schemas.KindUser)
}

// GetGroup fetches one group by object id.
func (c *Client) GetGroup(ctx context.Context, id string) (schemas.DirectoryEntity, error) {
	return c.getEntity(ctx, "/groups/"+url.PathEscape(id), schemas.KindGroup)
}

// GetGroupMembers fetches the direct members of a group.
func (c *Client) GetGroupMembers(ctx context.Context, id string) ([]schemas.DirectoryEntity, error) {
	objects, err := c.list(ctx, "/groups/"+url.PathEscape(id)+"/members")
	if err != nil {
		return nil, err
	}
	return toEntities(objects, schemas.KindUnknown), nil
}

// GetServicePrincipal fetches one service principal by object id.
func (c *Client) GetServicePrincipal(ctx context.Context, id string) (schemas.DirectoryEntity, error) {
	return c.getEntity(ctx, "/servicePrincipals/"+url.PathEscape(id), schemas.KindServicePrincipal)
}

// GetServicePrincipalByAppID fetches a service principal by application id.
func (c *Client) GetServicePrincipalByAppID(ctx context.Context, appID string) (schemas.DirectoryEntity, error) {
	path := "/servicePrincipals?$filter=" + url.QueryEscape(fmt.Sprintf("appId eq '%s'", appID))
	objects, err := c.list(ctx, path)
	if err != nil {
		return schemas.DirectoryEntity{}, err
	}
	if len(objects) == 0 {
		return schemas.DirectoryEntity{}, schemas.ErrNotFound
	}
	return toEntity(objects[0], schemas.KindServicePrincipal), nil
}

// ListNamedLocations fetches the tenant's full named location set.
func (c *Client) ListNamedLocations(ctx context.Context) ([]schemas.DirectoryEntity, error) {
	objects, err := c.list(ctx, "/identity/conditionalAccess/namedLocations")
	if err != nil {
		return nil, err
	}
	return toEntities(objects, schemas.KindNamedLocation), nil
}

// ListActivatedRoles fetches the roles activated in the tenant.
func (c *Client) ListActivatedRoles(ctx context.Context) ([]schemas.ActivatedRole, error) {
	objects, err := c.list(ctx, "/directoryRoles")
	if err != nil {
		return nil, err
	}
	roles := make([]schemas.ActivatedRole, 0, len(objects))
	for _, o := range objects {
		roles = append(roles, schemas.ActivatedRole{
			ID:             o.str("id"),
			RoleTemplateID: o.str("roleTemplateId"),
			DisplayName:    o.str("displayName"),
		})
	}
	return roles, nil
}

// ListRoleTemplates fetches the full role template catalog.
func (c *Client) ListRoleTemplates(ctx context.Context) ([]schemas.DirectoryEntity, error) {
	objects, err := c.list(ctx, "/directoryRoleTemplates")
	if err != nil {
		return nil, err
	}
	return toEntities(objects, schemas.KindRole), nil
}

// GetRoleMembers fetches the members of an activated role instance.
func (c *Client) GetRoleMembers(ctx context.Context, activatedRoleID string) ([]schemas.DirectoryEntity, error) {
	objects, err := c.list(ctx, "/directoryRoles/"+url.PathEscape(activatedRoleID)+"/members")
	if err != nil {
		return nil, err
	}
	return toEntities(objects, schemas.KindUser), nil
}

// ListPolicies fetches all conditional access policies.
func (c *Client) ListPolicies(ctx context.Context) ([]schemas.ConditionalAccessPolicy, error) {
	var policies []schemas.ConditionalAccessPolicy
	next := c.baseURL + "/identity/conditionalAccess/policies"
	for next != "" {
		var page struct {
			Value    []schemas.ConditionalAccessPolicy `json:"value"`
			NextLink string                            `json:"@odata.nextLink"`
		}
		if err := c.get(ctx, next, &page); err != nil {
			return nil, err
		}
		policies = append(policies, page.Value...)
		next = page.NextLink
	}
	return policies, nil
}

// getEntity fetches a single object and normalizes it at the boundary.
func (c *Client) getEntity(ctx context.Context, path string, hint schemas.EntityKind) (schemas.DirectoryEntity, error) {
	var o rawObject
	if err := c.get(ctx, c.baseURL+path, &o); err != nil {
		return schemas.DirectoryEntity{}, err
	}
	return toEntity(o, hint), nil
}

// list fetches a collection, following @odata.nextLink paging.
func (c *Client) list(ctx context.Context, path string) ([]rawObject, error) {
	var out []rawObject
	next := c.baseURL + path
	for next != "" {
		var page struct {
			Value    []rawObject `json:"value"`
			NextLink string      `json:"@odata.nextLink"`
		}
		if err := c.get(ctx, next, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Value...)
		next = page.NextLink
	}
	return out, nil
}

// get performs one rate-limited GET with throttling retries and decodes the
// response body into out.
func (c *Client) get(ctx context.Context, fullURL string, out interface{}) error {
	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("directory request failed: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decoding directory response: %w", err)
			}
			return nil
		case resp.StatusCode == http.StatusNotFound:
			drain(resp)
			return schemas.ErrNotFound
		case resp.StatusCode == http.StatusTooManyRequests && attempt < maxAttempts:
			delay := retryAfter(resp)
			drain(resp)
			c.log.Warn("Throttled by directory service; backing off",
				zap.Duration("delay", delay), zap.Int("attempt", attempt))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		default:
			status := resp.StatusCode
			drain(resp)
			return fmt.Errorf("directory returned status %d for %s", status, fullURL)
		}
	}
}

// retryAfter reads the throttling delay from the response, defaulting to a
// short backoff when the header is absent or malformed.
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 2 * time.Second
}

// drain discards and closes a response body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
