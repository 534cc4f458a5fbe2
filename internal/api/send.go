package api

import (
	"github.com/Jeffail/gabs/v2"

	"github.com/wesm/redmine-tracker/internal/models"
	"github.com/wesm/redmine-tracker/internal/redmine"
)

// MinTimeEntryHours is the shortest time entry Redmine accepts (36 seconds)
const MinTimeEntryHours = 0.01

// sendCallback maps the reply of a create/update to a SuccessCallback. The id
// is taken from the response body under key, falling back to the updated id.
func (c *Client) sendCallback(callback SuccessCallback, key string, id models.ID) redmine.JSONCallback {
	return func(reply *redmine.Reply, doc *gabs.Container) {
		if err := reply.Err(); err != nil {
			c.logger.Debug("network error", "resource", key, "error", err)
			callback(false, 0, ErrNetwork, errorList(reply, doc))
			return
		}

		resultID, _ := id.Get()
		if n, ok := number(doc.S(key, "id")); ok {
			resultID = int(n)
		}
		callback(true, resultID, NoError, nil)
	}
}

func (c *Client) dispatchSend(callback SuccessCallback, err error) {
	if err != nil {
		callback(false, 0, ErrNetwork, []string{err.Error()})
	}
}

// SendIssue creates the issue, or updates issue id if set
func (c *Client) SendIssue(issue models.Issue, callback SuccessCallback, id models.ID, params string) {
	data := issuePatch(issue)
	c.logger.Debug("sending issue", "id", id.String(), "body", data.String())
	_, err := c.rc.SendIssue(data, c.sendCallback(callback, "issue", id), id, params)
	c.dispatchSend(callback, err)
}

// SendTimeEntry creates the time entry, or updates time entry id if set.
//
// Entries shorter than MinTimeEntryHours fail with ErrTimeEntryTooShort and
// new entries without issue and project fail with ErrIncompleteData; neither
// sends a request.
func (c *Client) SendTimeEntry(te models.TimeEntry, callback SuccessCallback, id models.ID, params string) {
	if te.Hours < MinTimeEntryHours {
		c.logger.Debug("time entry has to be at least 0.01 hours (36 seconds)", "hours", te.Hours)
		callback(false, 0, ErrTimeEntryTooShort, nil)
		return
	}
	if !id.IsSet() && te.Issue == nil && te.Project == nil {
		c.logger.Debug("no issue and no project specified")
		callback(false, 0, ErrIncompleteData, nil)
		return
	}

	_, err := c.rc.SendTimeEntry(timeEntryPatch(te), c.sendCallback(callback, "time_entry", id), id, params)
	c.dispatchSend(callback, err)
}

// SendProject creates the project, or updates project id if set
func (c *Client) SendProject(project models.Project, callback SuccessCallback, id models.ID, params string) {
	_, err := c.rc.SendProject(projectPatch(project), c.sendCallback(callback, "project", id), id, params)
	c.dispatchSend(callback, err)
}

// SendIssuePriority creates or updates an issue priority
func (c *Client) SendIssuePriority(e models.Enumeration, callback SuccessCallback, id models.ID, params string) {
	_, err := c.rc.SendIssuePriority(enumerationPatch(e, "issue_priority"), c.sendCallback(callback, "issue_priority", id), id, params)
	c.dispatchSend(callback, err)
}

// SendTimeEntryActivity creates or updates a time entry activity
func (c *Client) SendTimeEntryActivity(e models.Enumeration, callback SuccessCallback, id models.ID, params string) {
	_, err := c.rc.SendTimeEntryActivity(enumerationPatch(e, "time_entry_activity"), c.sendCallback(callback, "time_entry_activity", id), id, params)
	c.dispatchSend(callback, err)
}

// SendIssueStatus creates or updates an issue status
func (c *Client) SendIssueStatus(s models.IssueStatus, callback SuccessCallback, id models.ID, params string) {
	_, err := c.rc.SendIssueStatus(issueStatusPatch(s), c.sendCallback(callback, "issue_status", id), id, params)
	c.dispatchSend(callback, err)
}

// SendIssueCategory creates a category in its project, or updates category id if set
func (c *Client) SendIssueCategory(ic models.IssueCategory, callback SuccessCallback, id models.ID, params string) {
	if !id.IsSet() && ic.Project == nil {
		callback(false, 0, ErrIncompleteData, nil)
		return
	}
	projectID := 0
	if ic.Project != nil {
		projectID = ic.Project.ID
	}
	_, err := c.rc.SendIssueCategory(issueCategoryPatch(ic), c.sendCallback(callback, "issue_category", id), projectID, id, params)
	c.dispatchSend(callback, err)
}

// SendTracker creates or updates a tracker
func (c *Client) SendTracker(t models.Tracker, callback SuccessCallback, id models.ID, params string) {
	_, err := c.rc.SendTracker(trackerPatch(t), c.sendCallback(callback, "tracker", id), id, params)
	c.dispatchSend(callback, err)
}

// SendUser creates or updates a user
func (c *Client) SendUser(u models.User, callback SuccessCallback, id models.ID, params string) {
	_, err := c.rc.SendUser(userPatch(u), c.sendCallback(callback, "user", id), id, params)
	c.dispatchSend(callback, err)
}

// SendVersion creates a version in its project, or updates version id if set
func (c *Client) SendVersion(v models.Version, callback SuccessCallback, id models.ID, params string) {
	if !id.IsSet() && v.Project == nil {
		callback(false, 0, ErrIncompleteData, nil)
		return
	}
	projectID := 0
	if v.Project != nil {
		projectID = v.Project.ID
	}
	_, err := c.rc.SendVersion(versionPatch(v), c.sendCallback(callback, "version", id), projectID, id, params)
	c.dispatchSend(callback, err)
}
