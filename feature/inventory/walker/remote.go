package walker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"picture-manager/feature/inventory/models"
)

// pageVariable is the only template variable the remote walker substitutes.
// Configuration data is never evaluated as code.
const pageVariable = "{page}"

// RemoteWalker crawls a paginated remote API. The endpoint (and, for POST,
// the body template) may contain the {page} variable, expanded per request.
// Item fields are extracted from each response via configurable dot-paths.
type RemoteWalker struct {
	Source *models.DataSource
	Client *http.Client
}

// NewRemoteWalker creates a walker for a remote source. A nil client gets a
// default with a 30 second timeout.
func NewRemoteWalker(source *models.DataSource, client *http.Client) *RemoteWalker {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RemoteWalker{Source: source, Client: client}
}

func (w *RemoteWalker) SourceID() uint {
	return w.Source.ID
}

// Walk requests pages until one yields zero items, the optional max-item cap
// is reached, or a request fails. A failed request halts this source's crawl
// only; it is reported, not retried.
func (w *RemoteWalker) Walk(ctx context.Context, yield func(Item) error) error {
	total := 0
	for page := 1; ; page++ {
		items, err := w.fetchPage(ctx, page)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}

		for _, raw := range items {
			item, ok := w.extractItem(raw)
			if !ok {
				continue
			}
			if err := yield(item); err != nil {
				return err
			}
			total++
			if w.Source.MaxItems > 0 && total >= w.Source.MaxItems {
				return nil
			}
		}
	}
}

// fetchPage requests one page and drills down to the item array.
func (w *RemoteWalker) fetchPage(ctx context.Context, page int) ([]any, error) {
	endpoint := expandPage(w.Source.Endpoint, page)

	method := strings.ToUpper(w.Source.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body *strings.Reader
	if method == http.MethodPost {
		body = strings.NewReader(expandPage(w.Source.BodyTemplate, page))
	} else {
		body = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnreachable, err)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range w.Source.HeaderMap() {
		req.Header.Set(k, v)
	}

	resp, err := w.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrSourceUnreachable, endpoint, resp.StatusCode)
	}

	var doc any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: invalid response: %v", ErrSourceUnreachable, err)
	}

	items, ok := lookupPath(doc, w.Source.ItemsPath).([]any)
	if !ok {
		return nil, fmt.Errorf("%w: no item array at %q", ErrSourceUnreachable, w.Source.ItemsPath)
	}
	return items, nil
}

// extractItem maps one response item onto an Item via the configured
// dot-paths. Items without a usable URL are skipped. The resolved absolute
// URL is the item's stable identity.
func (w *RemoteWalker) extractItem(raw any) (Item, bool) {
	u := cast.ToString(lookupPath(raw, w.Source.URLPath))
	if u == "" {
		return Item{}, false
	}
	abs := resolveURL(w.Source.BaseURL, u)

	name := cast.ToString(lookupPath(raw, w.Source.NamePath))
	if name == "" {
		name = path.Base(abs)
	}

	// Best effort: an unparsable modified field leaves the zero time, which
	// simply disables the fingerprint fast path for this item.
	var modified time.Time
	if v := lookupPath(raw, w.Source.ModifiedPath); v != nil {
		if t, err := cast.ToTimeE(v); err == nil {
			modified = t
		}
	}

	return Item{
		RelativeID: abs,
		Name:       name,
		ModifiedAt: modified,
	}, true
}

// expandPage substitutes the page-number variable.
func expandPage(template string, page int) string {
	return strings.ReplaceAll(template, pageVariable, strconv.Itoa(page))
}

// resolveURL prefixes base onto relative URLs, leaving absolute ones alone.
func resolveURL(base, ref string) string {
	if base == "" {
		return ref
	}
	bu, err := url.Parse(base)
	if err != nil {
		return ref
	}
	ru, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return bu.ResolveReference(ru).String()
}
