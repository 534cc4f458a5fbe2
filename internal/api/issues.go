package api

import (
	"fmt"

	"github.com/Jeffail/gabs/v2"
	"github.com/google/go-querystring/query"

	"github.com/wesm/redmine-tracker/internal/models"
	"github.com/wesm/redmine-tracker/internal/redmine"
)

// IssueFilter holds the common issue list filters
type IssueFilter struct {
	ProjectID    int    `url:"project_id,omitempty"`
	SubprojectID string `url:"subproject_id,omitempty"`
	TrackerID    int    `url:"tracker_id,omitempty"`
	// StatusID is "open", "closed", "*" or a status id
	StatusID string `url:"status_id,omitempty"`
	// AssignedToID is "me" or a user id
	AssignedToID string `url:"assigned_to_id,omitempty"`
	Sort         string `url:"sort,omitempty"`
}

// Options controls a paginated retrieval
type Options struct {
	// Parameters is an additional raw query string
	Parameters string
	Filter     *IssueFilter
	// GetAllItems follows the pages until the list is exhausted
	GetAllItems bool
}

func (o Options) query() (string, error) {
	vals, err := query.Values(o.Filter)
	if err != nil {
		return "", fmt.Errorf("failed to encode issue filter: %w", err)
	}
	return redmine.JoinQuery(o.Parameters, vals.Encode()), nil
}

// issuePager is the cursor of one RetrieveIssues call. Each page continuation
// runs as its own event, so long lists do not grow the stack.
type issuePager struct {
	c        *Client
	query    string
	all      bool
	limit    int
	offset   int
	issues   []models.Issue
	requests int
	callback Callback[[]models.Issue]
}

func (p *issuePager) fetch() {
	params := redmine.JoinQuery(p.query, fmt.Sprintf("offset=%d&limit=%d", p.offset, p.limit))
	p.requests++
	if _, err := p.c.rc.RetrieveIssues(p.onPage, params); err != nil {
		p.callback(nil, ErrNetwork, []string{err.Error()})
	}
}

func (p *issuePager) onPage(reply *redmine.Reply, doc *gabs.Container) {
	if err := reply.Err(); err != nil {
		p.c.logger.Debug("network error", "error", err)
		p.callback(nil, ErrNetwork, errorList(reply, doc))
		return
	}

	count := 0
	for _, item := range listItems(doc) {
		p.issues = append(p.issues, parseIssue(item))
		count++
	}
	p.offset += count

	// A full page means there might be more
	if p.all && count == p.limit {
		p.fetch()
		return
	}

	p.c.logger.Debug("retrieved issues", "count", len(p.issues), "requests", p.requests)
	p.callback(p.issues, NoError, nil)
}

// RetrieveIssues retrieves issues page by page, starting at offset 0. Without
// GetAllItems only the first page is delivered.
func (c *Client) RetrieveIssues(callback Callback[[]models.Issue], opts Options) {
	q, err := opts.query()
	if err != nil {
		callback(nil, ErrIncompleteData, []string{err.Error()})
		return
	}
	p := &issuePager{
		c:        c,
		query:    q,
		all:      opts.GetAllItems,
		limit:    c.pageSize,
		callback: callback,
	}
	p.fetch()
}
