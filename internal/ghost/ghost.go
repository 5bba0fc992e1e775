// Package ghost reads recipe posts from a Ghost blog.
package ghost

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PageSize is the number of posts requested per API page.
const PageSize = 50

// Post represents a single recipe post from the Ghost API.
type Post struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	HTML      string `json:"html"`
	URL       string `json:"url"`
	UpdatedAt string `json:"updated_at"`
	Tags      []Tag  `json:"tags"`
}

// Tag is a post tag.
type Tag struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// PostsResponse is the top-level structure of the Ghost API response for posts.
type PostsResponse struct {
	Posts []Post `json:"posts"`
	Meta  struct {
		Pagination struct {
			Page  int  `json:"page"`
			Pages int  `json:"pages"`
			Next  *int `json:"next"`
		} `json:"pagination"`
	} `json:"meta"`
}

// Config points the client at a blog. With AdminKey set the Admin API is used,
// which also returns drafts; otherwise ContentKey reads published posts.
type Config struct {
	URL        string
	ContentKey string
	// AdminKey has the form "id:hexsecret".
	AdminKey string
	// Tag limits ingestion to posts carrying this tag slug.
	Tag string
}

// Client is a read-only Ghost API client.
type Client struct {
	httpClient *http.Client
	config     Config
}

// NewClient creates a new Ghost API client.
func NewClient(cfg Config) *Client {
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		config:     cfg,
	}
}

// Configured reports whether the client has a URL and a key.
func (c *Client) Configured() bool {
	return c.config.URL != "" && (c.config.ContentKey != "" || c.config.AdminKey != "")
}

// FetchRecipes fetches every matching post, following pagination.
func (c *Client) FetchRecipes(ctx context.Context) ([]Post, error) {
	var posts []Post
	for page := 1; ; {
		resp, err := c.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		posts = append(posts, resp.Posts...)

		next := resp.Meta.Pagination.Next
		if next == nil || *next <= page {
			return posts, nil
		}
		page = *next
	}
}

func (c *Client) fetchPage(ctx context.Context, page int) (*PostsResponse, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(PageSize))
	q.Set("page", strconv.Itoa(page))
	q.Set("formats", "html")
	q.Set("include", "tags")
	if c.config.Tag != "" {
		q.Set("filter", "tag:"+c.config.Tag)
	}

	api := "content"
	var auth string
	if c.config.AdminKey != "" {
		token, err := c.createAdminToken(time.Now())
		if err != nil {
			return nil, fmt.Errorf("failed to create admin token: %w", err)
		}
		api = "admin"
		auth = "Ghost " + token
	} else {
		q.Set("key", c.config.ContentKey)
	}

	endpoint := fmt.Sprintf("%s/ghost/api/v3/%s/posts/?%s", c.config.URL, api, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s api error: status %d", api, resp.StatusCode)
	}

	var postsResponse PostsResponse
	if err := json.NewDecoder(resp.Body).Decode(&postsResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &postsResponse, nil
}

// createAdminToken generates a short-lived JWT for the Admin API.
func (c *Client) createAdminToken(now time.Time) (string, error) {
	id, secretHex, ok := strings.Cut(c.config.AdminKey, ":")
	if !ok || id == "" {
		return "", fmt.Errorf("invalid admin key format: expected id:secret")
	}

	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return "", fmt.Errorf("failed to decode secret hex: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
		"aud": "/v3/admin/",
	})
	token.Header["kid"] = id

	return token.SignedString(secret)
}
