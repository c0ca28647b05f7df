package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

// redirectPattern extracts the real attachment URL out of the HTML
// redirector page the messaging API serves for attachment links, e.g.
//
//	<script>document.location.replace("https:\/\/cdn.example.com\/blob123");</script>
//
// This is the same two-step indirection a messenger client
// resolves with a regex over the response body; a literal `\/` is
// unescaped to `/` once extracted.
var redirectPattern = regexp.MustCompile(`document\.location\.replace\("(?P<url>[^"]*)"\)`)

// httpClient is the production Client implementation, talking to the
// messaging API over HTTP with a cookie-based session, matching the
// "authenticate against a web session" contract of the messaging API.
type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns a Client backed by net/http. baseURL is the root
// of the messaging API (e.g. "https://www.example.com/api").
func NewHTTPClient(baseURL string) (Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("messenger: creating cookie jar: %w", err)
	}

	return &httpClient{
		baseURL: baseURL,
		http:    &http.Client{Jar: jar},
	}, nil
}

func (c *httpClient) Authenticate(ctx context.Context, creds Credentials) error {
	body, err := json.Marshal(map[string]string{
		"username": creds.Username,
		"password": creds.Password,
	})
	if err != nil {
		return fmt.Errorf("messenger: encoding credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("messenger: building login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("messenger: login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("messenger: login returned status %d", resp.StatusCode)
	}

	return nil
}

type threadResponse struct {
	ThreadID string `json:"thread_id"`
}

func (c *httpClient) MyThreadID(ctx context.Context) (string, error) {
	var out threadResponse
	if err := c.getJSON(ctx, "/me/thread", &out); err != nil {
		return "", err
	}
	return out.ThreadID, nil
}

type postResponse struct {
	MessageID string `json:"message_id"`
}

func (c *httpClient) PostMessage(ctx context.Context, threadID, body string) (string, error) {
	var out postResponse
	payload := map[string]string{"body": body}
	if err := c.postJSON(ctx, fmt.Sprintf("/threads/%s/messages", url.PathEscape(threadID)), payload, &out); err != nil {
		return "", err
	}
	return out.MessageID, nil
}

func (c *httpClient) PostAttachment(ctx context.Context, threadID, payload string) (string, error) {
	var out postResponse
	body := map[string]string{"attachment": payload}
	if err := c.postJSON(ctx, fmt.Sprintf("/threads/%s/attachments", url.PathEscape(threadID)), body, &out); err != nil {
		return "", err
	}
	return out.MessageID, nil
}

type messageResponse struct {
	Body        string `json:"body"`
	Attachments []struct {
		URL string `json:"url"`
	} `json:"attachments"`
}

func (m messageResponse) toMessage(id string) Message {
	msg := Message{ID: id, Body: m.Body}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, Attachment{URL: a.URL})
	}
	return msg
}

func (c *httpClient) GetMessage(ctx context.Context, messageID string) (Message, error) {
	var out messageResponse
	if err := c.getJSON(ctx, "/messages/"+url.PathEscape(messageID), &out); err != nil {
		return Message{}, err
	}
	return out.toMessage(messageID), nil
}

func (c *httpClient) GetLatestMessage(ctx context.Context) (Message, error) {
	var out struct {
		messageResponse
		ID string `json:"id"`
	}
	if err := c.getJSON(ctx, "/me/thread/latest", &out); err != nil {
		return Message{}, err
	}
	return out.messageResponse.toMessage(out.ID), nil
}

func (c *httpClient) FetchAttachment(ctx context.Context, attachmentURL string) ([]byte, error) {
	redirectPage, err := c.getBytes(ctx, attachmentURL)
	if err != nil {
		return nil, fmt.Errorf("messenger: fetching attachment redirect page: %w", err)
	}

	match := redirectPattern.FindSubmatch(redirectPage)
	if match == nil {
		// Some deployments skip the redirector and serve the blob directly.
		return redirectPage, nil
	}

	realURL := bytes.ReplaceAll(match[1], []byte(`\/`), []byte(`/`))

	data, err := c.getBytes(ctx, string(realURL))
	if err != nil {
		return nil, fmt.Errorf("messenger: fetching real attachment url: %w", err)
	}
	return data, nil
}

func (c *httpClient) getBytes(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("messenger: GET %s returned status %d", rawURL, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (c *httpClient) getJSON(ctx context.Context, path string, out any) error {
	data, err := c.getBytes(ctx, c.baseURL+path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (c *httpClient) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("messenger: encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	// A client-generated idempotency key, so a retried POST (e.g. after a
	// timeout whose response we never saw) doesn't risk the messaging API
	// creating the message or attachment twice.
	req.Header.Set("X-Idempotency-Key", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("messenger: POST %s returned status %d", path, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
