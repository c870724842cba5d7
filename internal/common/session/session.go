package session

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// AuthCookieName is the backend's login cookie. Paid content is not
	// served without it.
	AuthCookieName = "z_c0"

	// SiteURL is the origin all requests impersonate.
	SiteURL = "https://www.zhihu.com"

	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	defaultTimeout = 30 * time.Second
)

// Cookie is one entry of the exported cookie file.
type Cookie struct {
	Name    string  `json:"name"`
	Value   string  `json:"value"`
	Domain  string  `json:"domain"`
	Path    string  `json:"path,omitempty"`
	Expires float64 `json:"expires,omitempty"`
	Secure  bool    `json:"secure,omitempty"`
}

// Client is the authenticated-request capability: an HTTP client with the
// preset browser header set and a shared cookie jar. One Client is safe
// for concurrent use; each engine instance owns its own.
type Client struct {
	api     *http.Client
	stream  *http.Client
	jar     http.CookieJar
	headers map[string]string
	log     *logrus.Logger
}

// New creates a session client with an empty cookie jar.
func New(userAgent string, log *logrus.Logger) *Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	jar, _ := cookiejar.New(nil)

	return &Client{
		api: &http.Client{
			Jar:     jar,
			Timeout: defaultTimeout,
		},
		// The stream client has no overall deadline: a long transfer must
		// not be cut off mid-body. Stalled servers are still bounded by
		// the response-header timeout.
		stream: &http.Client{
			Jar: jar,
			Transport: &http.Transport{
				ResponseHeaderTimeout: 60 * time.Second,
				Proxy:                 http.ProxyFromEnvironment,
			},
		},
		jar: jar,
		headers: map[string]string{
			"User-Agent":      userAgent,
			"Accept":          "application/json, text/plain, */*",
			"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
			"Referer":         SiteURL + "/",
			"Origin":          SiteURL,
		},
		log: log,
	}
}

// UserAgent returns the User-Agent the session sends.
func (c *Client) UserAgent() string {
	return c.headers["User-Agent"]
}

// LoadCookieFile loads cookies from a JSON file ([{name,value,domain}, ...])
// into the jar and returns how many were set.
func (c *Client) LoadCookieFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read cookie file: %w", err)
	}

	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return 0, fmt.Errorf("failed to parse cookie file: %w", err)
	}

	return c.SetCookies(cookies), nil
}

// SetCookies installs the given cookies into the jar, defaulting the
// domain to the backend's when absent.
func (c *Client) SetCookies(cookies []Cookie) int {
	byDomain := make(map[string][]*http.Cookie)
	for _, ck := range cookies {
		if ck.Name == "" {
			continue
		}
		domain := ck.Domain
		if domain == "" {
			domain = ".zhihu.com"
		}
		host := strings.TrimPrefix(domain, ".")
		byDomain[host] = append(byDomain[host], &http.Cookie{
			Name:   ck.Name,
			Value:  ck.Value,
			Domain: domain,
			Path:   ck.Path,
			Secure: ck.Secure,
		})
	}

	count := 0
	for host, list := range byDomain {
		u, err := url.Parse("https://" + host + "/")
		if err != nil {
			continue
		}
		c.jar.SetCookies(u, list)
		count += len(list)
	}

	if c.log != nil {
		c.log.WithField("count", count).Debug("Cookies installed into session")
	}
	return count
}

// CookieNames returns the names of the cookies the jar would send to the
// backend origin.
func (c *Client) CookieNames() []string {
	u, _ := url.Parse(SiteURL + "/")
	cookies := c.jar.Cookies(u)
	names := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		names = append(names, ck.Name)
	}
	return names
}

// HasAuthCookie reports whether the login cookie is present.
func (c *Client) HasAuthCookie() bool {
	for _, name := range c.CookieNames() {
		if name == AuthCookieName {
			return true
		}
	}
	return false
}

// Get issues an authenticated GET with the preset header set and the
// session's bounded timeout. The caller owns the response body.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := c.newRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return c.api.Do(req)
}

// GetJSON issues an authenticated GET and decodes the body into v when
// the status is 200. It returns the status code in every non-transport
// failure case so callers can fall through to the next candidate.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) (int, error) {
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// FetchPage fetches a page and returns its body with HTML entities
// decoded, ready for pattern matching.
func (c *Client) FetchPage(ctx context.Context, rawURL string) (string, error) {
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read page body: %w", err)
	}

	return html.UnescapeString(string(body)), nil
}

// Stream issues an authenticated GET without an overall deadline, for
// long body transfers. The caller owns the response body.
func (c *Client) Stream(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := c.newRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return c.stream.Do(req)
}

func (c *Client) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}
