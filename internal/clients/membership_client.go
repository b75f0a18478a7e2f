// internal/clients/membership_client.go
package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"

	"libracirc/internal/membership"
)

// MembershipClient validates members against a remote membership service.
type MembershipClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	maxTries   uint
	newBackOff func() backoff.BackOff
	now        func() time.Time
}

type Option func(*MembershipClient)

func WithHTTPClient(c *http.Client) Option {
	return func(mc *MembershipClient) { mc.httpClient = c }
}

// WithRetry sets how many times a failed lookup is attempted and the backoff between attempts.
func WithRetry(maxTries uint, newBackOff func() backoff.BackOff) Option {
	return func(mc *MembershipClient) {
		mc.maxTries = maxTries
		mc.newBackOff = newBackOff
	}
}

// WithBreakerSettings replaces the default circuit breaker configuration.
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(mc *MembershipClient) { mc.breaker = gobreaker.NewCircuitBreaker(st) }
}

func NewMembershipClient(baseURL string, opts ...Option) *MembershipClient {
	c := &MembershipClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 3 * time.Second},
		maxTries:   3,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 50 * time.Millisecond
			b.MaxInterval = 500 * time.Millisecond
			return b
		},
		now: time.Now,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "membership",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// errNotFound marks a 404; it is not counted as a breaker failure.
var errNotFound = errors.New("member not found")

// GetMember fetches a membership record. found is false when the service answers 404.
func (c *MembershipClient) GetMember(ctx context.Context, id int64) (membership.Member, bool, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		member, err := backoff.Retry(ctx, func() (membership.Member, error) {
			return c.fetchMember(ctx, id)
		},
			backoff.WithBackOff(c.newBackOff()),
			backoff.WithMaxTries(c.maxTries),
		)
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return member, nil
	})
	if err != nil {
		return membership.Member{}, false, fmt.Errorf("failed to get member %d: %w", id, err)
	}
	if result == nil {
		return membership.Member{}, false, nil
	}
	return result.(membership.Member), true, nil
}

func (c *MembershipClient) fetchMember(ctx context.Context, id int64) (membership.Member, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/members/%d", c.baseURL, id), nil)
	if err != nil {
		return membership.Member{}, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return membership.Member{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return membership.Member{}, backoff.Permanent(errNotFound)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return membership.Member{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return membership.Member{}, backoff.Permanent(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	var member membership.Member
	if err := json.NewDecoder(resp.Body).Decode(&member); err != nil {
		return membership.Member{}, backoff.Permanent(fmt.Errorf("decode member: %w", err))
	}
	return member, nil
}

// IsValid reports whether the remote record says the member may borrow. Unknown members are not valid.
func (c *MembershipClient) IsValid(ctx context.Context, memberID int64) (bool, error) {
	member, found, err := c.GetMember(ctx, memberID)
	if err != nil || !found {
		return false, err
	}
	return member.Eligible(c.now()), nil
}
