// Package scrape fetches the society members page and extracts the roster
// table.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/org/rostervault/pkg/models"
)

// DateLayout is the format of the join and expiry columns.
const DateLayout = "02/01/2006 15:04"

// ErrTableNotFound is returned when the page has no element with the
// configured table id.
var ErrTableNotFound = errors.New("member table not found")

// Column positions in the members table.
const (
	colName = iota
	colID
	colJoin
	colExpire
	numCols
)

// RowError describes a table row that was skipped.
type RowError struct {
	Row    int // 1-based, counting the header row
	Reason string
	Cells  []string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// Result is the outcome of one scrape: the members that parsed and the rows
// that did not.
type Result struct {
	Members []models.Member
	Skipped []RowError
}

// Client fetches the members page.
type Client struct {
	URL     string
	Cookie  string
	TableID string
	HTTP    *http.Client
}

// NewClient returns a Client with a bounded HTTP timeout.
func NewClient(url, cookie, tableID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		URL:     url,
		Cookie:  cookie,
		TableID: tableID,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Scrape downloads the page and parses the members table.
func (c *Client) Scrape(ctx context.Context) (Result, error) {
	if c.URL == "" {
		return Result{}, errors.New("member list URL is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("building request: %w", err)
	}
	if c.Cookie != "" {
		req.Header.Set("Cookie", c.Cookie)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetching members page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("fetching members page: HTTP %d", resp.StatusCode)
	}
	return ParseTable(resp.Body, c.TableID)
}

// ParseTable extracts members from the rows of the element with id tableID.
// The first row is treated as the header. Rows with too few cells, a
// non-numeric id or unparseable dates are reported in Result.Skipped.
func ParseTable(r io.Reader, tableID string) (Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Result{}, fmt.Errorf("parsing members page: %w", err)
	}
	table := findByID(doc, tableID)
	if table == nil {
		return Result{}, fmt.Errorf("%w: %q", ErrTableNotFound, tableID)
	}

	var res Result
	rows := collect(table, atom.Tr)
	for i, tr := range rows {
		if i == 0 {
			continue
		}
		cells := cellTexts(tr)
		m, err := parseRow(cells)
		if err != nil {
			res.Skipped = append(res.Skipped, RowError{Row: i + 1, Reason: err.Error(), Cells: cells})
			continue
		}
		res.Members = append(res.Members, m)
	}
	return res, nil
}

func parseRow(cells []string) (models.Member, error) {
	if len(cells) < numCols {
		return models.Member{}, fmt.Errorf("expected %d cells, got %d", numCols, len(cells))
	}
	id, err := strconv.Atoi(cells[colID])
	if err != nil || id < 0 {
		return models.Member{}, fmt.Errorf("invalid member id %q", cells[colID])
	}
	join, err := time.Parse(DateLayout, cells[colJoin])
	if err != nil {
		return models.Member{}, fmt.Errorf("invalid join date %q", cells[colJoin])
	}
	expire, err := time.Parse(DateLayout, cells[colExpire])
	if err != nil {
		return models.Member{}, fmt.Errorf("invalid expiry date %q", cells[colExpire])
	}
	return models.NewMember(cells[colName], id, join, expire), nil
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// collect returns the descendants of n with the given tag, in document order.
func collect(n *html.Node, tag atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == tag {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func cellTexts(tr *html.Node) []string {
	var cells []string
	for _, td := range collect(tr, atom.Td) {
		cells = append(cells, text(td))
	}
	return cells
}

// text returns the whitespace-normalized text content of n.
func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
