package api

import (
	"github.com/Jeffail/gabs/v2"

	"github.com/wesm/redmine-tracker/internal/models"
	"github.com/wesm/redmine-tracker/internal/redmine"
)

// retrieveOne parses the object under key of a single-resource response
func retrieveOne[T any](c *Client, key string, parse func(*gabs.Container) T, callback Callback[T]) redmine.JSONCallback {
	return func(reply *redmine.Reply, doc *gabs.Container) {
		if err := reply.Err(); err != nil {
			c.logger.Debug("network error", "resource", key, "error", err)
			var zero T
			callback(zero, ErrNetwork, errorList(reply, doc))
			return
		}
		callback(parse(doc.S(key)), NoError, nil)
	}
}

// retrieveList parses every element of a single-page list response
func retrieveList[T any](c *Client, parse func(*gabs.Container) T, callback Callback[[]T]) redmine.JSONCallback {
	return func(reply *redmine.Reply, doc *gabs.Container) {
		if err := reply.Err(); err != nil {
			c.logger.Debug("network error", "url", reply.URL.String(), "error", err)
			callback(nil, ErrNetwork, errorList(reply, doc))
			return
		}
		var out []T
		for _, item := range listItems(doc) {
			out = append(out, parse(item))
		}
		callback(out, NoError, nil)
	}
}

// dispatchFailed reports a request that could not be sent
func dispatchFailed[T any](callback Callback[T], err error) {
	if err != nil {
		var zero T
		callback(zero, ErrNetwork, []string{err.Error()})
	}
}

// CustomFieldFilter restricts RetrieveCustomFields. Zero fields do not filter.
type CustomFieldFilter struct {
	ProjectID models.ID
	TrackerID models.ID
	Type      string
	Format    string
}

func (f CustomFieldFilter) match(cf models.CustomField) bool {
	if f.Type != "" && f.Type != cf.Type {
		return false
	}
	if f.Format != "" && f.Format != cf.Format {
		return false
	}
	if pid, ok := f.ProjectID.Get(); ok && !cf.AllProjects && !containsItem(cf.Projects, pid) {
		return false
	}
	if tid, ok := f.TrackerID.Get(); ok && !containsItem(cf.Trackers, tid) {
		return false
	}
	return true
}

func containsItem(items []models.Item, id int) bool {
	for _, item := range items {
		if item.ID == id {
			return true
		}
	}
	return false
}

// RetrieveCustomFields retrieves the custom field definitions matching filter
func (c *Client) RetrieveCustomFields(callback Callback[[]models.CustomField], filter CustomFieldFilter) {
	var filtered Callback[[]models.CustomField] = func(cfs []models.CustomField, code ErrorCode, errs []string) {
		if code != NoError {
			callback(cfs, code, errs)
			return
		}
		var out []models.CustomField
		for _, cf := range cfs {
			if filter.match(cf) {
				out = append(out, cf)
			} else {
				c.logger.Debug("skipping custom field", "id", cf.ID, "name", cf.Name)
			}
		}
		callback(out, NoError, nil)
	}
	_, err := c.rc.RetrieveCustomFields(retrieveList(c, parseCustomField, filtered), "")
	dispatchFailed(filtered, err)
}

// RetrieveEnumerations retrieves the entries of the named enumeration
func (c *Client) RetrieveEnumerations(enumeration string, callback Callback[[]models.Enumeration], params string) {
	_, err := c.rc.RetrieveEnumerations(enumeration, retrieveList(c, parseEnumeration, callback), params)
	dispatchFailed(callback, err)
}

// RetrieveGroups retrieves the user groups with their members
func (c *Client) RetrieveGroups(callback Callback[[]models.Group], params string) {
	_, err := c.rc.RetrieveGroups(retrieveList(c, parseGroup, callback), redmine.JoinQuery(params, "include=users"))
	dispatchFailed(callback, err)
}

// RetrieveIssue retrieves a single issue
func (c *Client) RetrieveIssue(callback Callback[models.Issue], issueID int, params string) {
	_, err := c.rc.RetrieveIssue(retrieveOne(c, "issue", parseIssue, callback), issueID, params)
	dispatchFailed(callback, err)
}

// RetrieveIssueCategories retrieves the issue categories of a project
func (c *Client) RetrieveIssueCategories(callback Callback[[]models.IssueCategory], projectID int, params string) {
	_, err := c.rc.RetrieveIssueCategories(retrieveList(c, parseIssueCategory, callback), projectID, params)
	dispatchFailed(callback, err)
}

// RetrieveIssuePriorities retrieves the issue priorities
func (c *Client) RetrieveIssuePriorities(callback Callback[[]models.Enumeration], params string) {
	c.RetrieveEnumerations("issue_priorities", callback, params)
}

// RetrieveIssueStatuses retrieves the issue statuses
func (c *Client) RetrieveIssueStatuses(callback Callback[[]models.IssueStatus], params string) {
	_, err := c.rc.RetrieveIssueStatuses(retrieveList(c, parseIssueStatus, callback), params)
	dispatchFailed(callback, err)
}

// RetrieveMemberships retrieves the memberships of a project
func (c *Client) RetrieveMemberships(callback Callback[[]models.Membership], projectID int, params string) {
	_, err := c.rc.RetrieveMemberships(retrieveList(c, parseMembership, callback), projectID, params)
	dispatchFailed(callback, err)
}

// RetrieveProject retrieves a single project
func (c *Client) RetrieveProject(callback Callback[models.Project], projectID int, params string) {
	_, err := c.rc.RetrieveProject(retrieveOne(c, "project", parseProject, callback), projectID, params)
	dispatchFailed(callback, err)
}

// RetrieveProjects retrieves one page of projects
func (c *Client) RetrieveProjects(callback Callback[[]models.Project], params string) {
	_, err := c.rc.RetrieveProjects(retrieveList(c, parseProject, callback), params)
	dispatchFailed(callback, err)
}

// RetrieveTimeEntries retrieves one page of time entries
func (c *Client) RetrieveTimeEntries(callback Callback[[]models.TimeEntry], params string) {
	_, err := c.rc.RetrieveTimeEntries(retrieveList(c, parseTimeEntry, callback), params)
	dispatchFailed(callback, err)
}

// RetrieveTimeEntryActivities retrieves the time entry activities
func (c *Client) RetrieveTimeEntryActivities(callback Callback[[]models.Enumeration], params string) {
	c.RetrieveEnumerations("time_entry_activities", callback, params)
}

// RetrieveTrackers retrieves the trackers
func (c *Client) RetrieveTrackers(callback Callback[[]models.Tracker], params string) {
	_, err := c.rc.RetrieveTrackers(retrieveList(c, parseTracker, callback), params)
	dispatchFailed(callback, err)
}

// RetrieveCurrentUser retrieves the authenticated user. Used to verify credentials.
func (c *Client) RetrieveCurrentUser(callback Callback[models.User]) {
	_, err := c.rc.RetrieveCurrentUser(retrieveOne(c, "user", parseUser, callback), "")
	dispatchFailed(callback, err)
}

// RetrieveUsers retrieves one page of users
func (c *Client) RetrieveUsers(callback Callback[[]models.User], params string) {
	_, err := c.rc.RetrieveUsers(retrieveList(c, parseUser, callback), params)
	dispatchFailed(callback, err)
}

// RetrieveVersion retrieves a single version
func (c *Client) RetrieveVersion(callback Callback[models.Version], versionID int, params string) {
	_, err := c.rc.RetrieveVersion(retrieveOne(c, "version", parseVersion, callback), versionID, params)
	dispatchFailed(callback, err)
}

// RetrieveVersions retrieves the versions of a project
func (c *Client) RetrieveVersions(callback Callback[[]models.Version], projectID int, params string) {
	_, err := c.rc.RetrieveVersions(retrieveList(c, parseVersion, callback), projectID, params)
	dispatchFailed(callback, err)
}
