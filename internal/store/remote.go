package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/scbrown/semmatch/internal/model"
)

// RemoteIndex implements ontology.Index by forwarding lookups over HTTP to
// the terms endpoints of a semmatch serve instance.
type RemoteIndex struct {
	baseURL string
	client  *http.Client
}

// NewRemote creates a RemoteIndex pointing at the given base URL (e.g., "http://localhost:7274").
func NewRemote(baseURL string) *RemoteIndex {
	return &RemoteIndex{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (r *RemoteIndex) FindTerms(ctx context.Context, scopes, queryTerms []string, pageSize int) ([]model.OntologyTerm, error) {
	if len(queryTerms) == 0 {
		return nil, nil
	}
	q := url.Values{}
	for _, s := range scopes {
		q.Add("scope", s)
	}
	for _, t := range queryTerms {
		q.Add("q", t)
	}
	if pageSize > 0 {
		q.Set("limit", strconv.Itoa(pageSize))
	}
	var terms []model.OntologyTerm
	if err := r.getJSON(ctx, "/api/v1/terms", q, &terms); err != nil {
		return nil, err
	}
	return terms, nil
}

func (r *RemoteIndex) Children(ctx context.Context, term model.OntologyTerm) ([]model.OntologyTerm, error) {
	q := url.Values{"iri": {term.IRI}}
	var terms []model.OntologyTerm
	if err := r.getJSON(ctx, "/api/v1/terms/children", q, &terms); err != nil {
		return nil, err
	}
	return terms, nil
}

// Term returns nil without error when the remote has no such term.
func (r *RemoteIndex) Term(ctx context.Context, iri string) (*model.OntologyTerm, error) {
	var t model.OntologyTerm
	err := r.getJSON(ctx, "/api/v1/terms/get", url.Values{"iri": {iri}}, &t)
	if err != nil {
		if re, ok := err.(*RemoteError); ok && re.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Health checks that the remote server answers.
func (r *RemoteIndex) Health(ctx context.Context) error {
	var resp map[string]string
	return r.getJSON(ctx, "/api/v1/health", nil, &resp)
}

// RemoteError is a non-success response from the remote server.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote index (%d): %s", e.Status, e.Message)
}

// getJSON performs a GET request and decodes the JSON response into dst.
func (r *RemoteIndex) getJSON(ctx context.Context, path string, query url.Values, dst any) error {
	u := r.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("remote request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return remoteError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// remoteError reads an error response from the server and returns it as an error.
func remoteError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return &RemoteError{Status: resp.StatusCode, Message: errResp.Error}
	}
	return &RemoteError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
}
