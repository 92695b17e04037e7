// Package catalog crawls the public exam share over WebDAV and produces the file list the
// /old-exam command searches.
package catalog

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const propfindBody = `<?xml version="1.0" encoding="utf-8" ?>
<d:propfind xmlns:d="DAV:" xmlns:nc="http://nextcloud.org/ns">
  <d:prop>
    <d:resourcetype/>
    <d:getcontentlength/>
    <d:getlastmodified/>
    <d:getcontenttype/>
  </d:prop>
</d:propfind>`

// Node is a file or directory of the share.
type Node struct {
	Name         string  `json:"name"`
	Path         string  `json:"path"`
	Dir          bool    `json:"dir,omitempty"`
	Size         int64   `json:"size,omitempty"`
	LastModified string  `json:"last_modified,omitempty"`
	ContentType  string  `json:"content_type,omitempty"`
	Children     []*Node `json:"children,omitempty"`
}

// Client reads a Nextcloud public share. The share token is the basic auth user.
type Client struct {
	httpClient *http.Client
	base       string
	token      string
	password   string
	root       *url.URL
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// NewClient creates a client for the share https://<base>/index.php/s/<token>.
func NewClient(base, token, password string, options ...Option) (*Client, error) {
	if base == "" || token == "" {
		return nil, errors.New("share base URL and token are required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	client := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		base:       strings.TrimRight(base, "/"),
		token:      token,
		password:   password,
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// Crawl walks the whole share and returns its root directory.
func (c *Client) Crawl(ctx context.Context) (*Node, error) {
	if err := c.resolveRoot(ctx); err != nil {
		return nil, err
	}

	visited := make(map[string]bool)
	root := &Node{Dir: true}
	if err := c.walk(ctx, root, visited); err != nil {
		return nil, err
	}
	return root, nil
}

// resolveRoot picks the WebDAV endpoint of the share. Depending on the Nextcloud version it is
// either /public.php/webdav/ or /public.php/dav/files/<token>/.
func (c *Client) resolveRoot(ctx context.Context) error {
	if c.root != nil {
		return nil
	}
	candidates := []string{
		c.base + "/public.php/webdav/",
		c.base + "/public.php/dav/files/" + url.PathEscape(c.token) + "/",
	}
	for _, candidate := range candidates {
		root, err := url.Parse(candidate)
		if err != nil {
			return fmt.Errorf("invalid WebDAV root %s: %w", candidate, err)
		}
		if _, err := c.propfind(ctx, root, "0"); err != nil {
			slog.Debug("WebDAV root not usable", "url", candidate, "error", err)
			continue
		}
		slog.Info("using WebDAV root", "url", candidate)
		c.root = root
		return nil
	}
	return errors.New("unable to access public WebDAV, check the token, the password or the server")
}

func (c *Client) walk(ctx context.Context, dir *Node, visited map[string]bool) error {
	if visited[dir.Path] {
		return nil
	}
	visited[dir.Path] = true

	children, err := c.list(ctx, dir.Path)
	if err != nil {
		return err
	}
	for _, child := range children {
		if child.Dir {
			if err := c.walk(ctx, child, visited); err != nil {
				return err
			}
		}
		dir.Children = append(dir.Children, child)
	}
	return nil
}

// list returns the direct children of the directory at rel, relative to the share root.
func (c *Client) list(ctx context.Context, rel string) ([]*Node, error) {
	target := c.root
	if rel != "" {
		segments := strings.Split(rel, "/")
		for i, s := range segments {
			segments[i] = url.PathEscape(s)
		}
		segments[len(segments)-1] += "/"
		target = c.root.JoinPath(segments...)
	}

	responses, err := c.propfind(ctx, target, "1")
	if err != nil {
		return nil, err
	}

	var nodes []*Node
	for _, resp := range responses {
		node, err := c.nodeFromResponse(resp)
		if err != nil {
			slog.Warn("skipping unreadable WebDAV entry", "href", resp.Href, "error", err)
			continue
		}
		// Depth 1 lists the directory itself too.
		if node.Path == rel {
			continue
		}
		nodes = append(nodes, node)
	}
	slog.Debug("listed directory", "path", rel, "entries", len(nodes))
	return nodes, nil
}

func (c *Client) propfind(ctx context.Context, target *url.URL, depth string) ([]davResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "PROPFIND", target.String(), strings.NewReader(propfindBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create PROPFIND request: %w", err)
	}
	req.SetBasicAuth(c.token, c.password)
	req.Header.Set("Depth", depth)
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("PROPFIND request failed", "url", target.String(), "error", err)
		return nil, fmt.Errorf("PROPFIND %s: %w", target.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMultiStatus {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("PROPFIND %s: unexpected status %s", target.Redacted(), resp.Status)
	}

	var ms multistatus
	if err := xml.NewDecoder(resp.Body).Decode(&ms); err != nil {
		return nil, fmt.Errorf("failed to decode PROPFIND response: %w", err)
	}
	return ms.Responses, nil
}

// nodeFromResponse converts a WebDAV response into a Node with a decoded path relative to the root.
func (c *Client) nodeFromResponse(resp davResponse) (*Node, error) {
	href, err := url.Parse(strings.TrimSpace(resp.Href))
	if err != nil {
		return nil, err
	}
	abs := c.root.ResolveReference(href)
	if !strings.HasPrefix(abs.Path, c.root.Path) {
		return nil, fmt.Errorf("href outside of WebDAV root %s", c.root.Path)
	}
	rel := strings.Trim(strings.TrimPrefix(abs.Path, c.root.Path), "/")

	node := &Node{Path: rel}
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		node.Name = rel[i+1:]
	} else {
		node.Name = rel
	}

	for _, ps := range resp.Propstats {
		if ps.Status != "" && !strings.Contains(ps.Status, " 200 ") {
			continue
		}
		p := ps.Prop
		if p.ResourceType.Collection != nil {
			node.Dir = true
		}
		if p.ContentLength != "" {
			if size, err := strconv.ParseInt(p.ContentLength, 10, 64); err == nil {
				node.Size = size
			}
		}
		if p.LastModified != "" {
			node.LastModified = p.LastModified
		}
		if p.ContentType != "" {
			node.ContentType = p.ContentType
		}
	}
	return node, nil
}

type multistatus struct {
	XMLName   xml.Name      `xml:"DAV: multistatus"`
	Responses []davResponse `xml:"DAV: response"`
}

type davResponse struct {
	Href      string     `xml:"DAV: href"`
	Propstats []propstat `xml:"DAV: propstat"`
}

type propstat struct {
	Prop   prop   `xml:"DAV: prop"`
	Status string `xml:"DAV: status"`
}

type prop struct {
	ResourceType  resourceType `xml:"DAV: resourcetype"`
	ContentLength string       `xml:"DAV: getcontentlength"`
	LastModified  string       `xml:"DAV: getlastmodified"`
	ContentType   string       `xml:"DAV: getcontenttype"`
}

type resourceType struct {
	Collection *struct{} `xml:"DAV: collection"`
}
