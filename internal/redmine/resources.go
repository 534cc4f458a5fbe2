package redmine

import (
	"fmt"

	"github.com/Jeffail/gabs/v2"

	"github.com/wesm/redmine-tracker/internal/models"
)

const projectIncludes = "include=enabled_modules,issue_categories,trackers"

// JoinQuery joins query fragments with '&', skipping empty ones
func JoinQuery(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += "&"
		}
		out += p
	}
	return out
}

// resourceMode picks POST for a new resource and PUT with an id segment for an update
func resourceMode(id models.ID, resource string) (string, Operation) {
	if n, ok := id.Get(); ok {
		return fmt.Sprintf("%s/%d", resource, n), Put
	}
	return resource, Post
}

func body(data *gabs.Container) []byte {
	if data == nil {
		return []byte("{}")
	}
	return data.Bytes()
}

func (c *Client) send(resource string, data *gabs.Container, callback JSONCallback, id models.ID, params string) (*Reply, error) {
	resource, op := resourceMode(id, resource)
	return c.SendRequest(resource, callback, op, params, body(data))
}

// SendCustomField creates or updates a custom field
func (c *Client) SendCustomField(data *gabs.Container, callback JSONCallback, id models.ID, params string) (*Reply, error) {
	return c.send("custom_fields", data, callback, id, params)
}

// SendEnumeration creates or updates an entry of the named enumeration
func (c *Client) SendEnumeration(enumeration string, data *gabs.Container, callback JSONCallback, id models.ID, params string) (*Reply, error) {
	return c.send("enumerations/"+enumeration, data, callback, id, params)
}

// SendIssue creates or updates an issue
func (c *Client) SendIssue(data *gabs.Container, callback JSONCallback, id models.ID, params string) (*Reply, error) {
	return c.send("issues", data, callback, id, params)
}

// SendIssueCategory creates a category in projectID or updates the category id
func (c *Client) SendIssueCategory(data *gabs.Container, callback JSONCallback, projectID int, id models.ID, params string) (*Reply, error) {
	if id.IsSet() {
		return c.send("issue_categories", data, callback, id, params)
	}
	return c.send(fmt.Sprintf("projects/%d/issue_categories", projectID), data, callback, id, params)
}

// SendIssuePriority creates or updates an issue priority
func (c *Client) SendIssuePriority(data *gabs.Container, callback JSONCallback, id models.ID, params string) (*Reply, error) {
	return c.SendEnumeration("issue_priorities", data, callback, id, params)
}

// SendIssueStatus creates or updates an issue status
func (c *Client) SendIssueStatus(data *gabs.Container, callback JSONCallback, id models.ID, params string) (*Reply, error) {
	return c.send("issue_statuses", data, callback, id, params)
}

// SendProject creates or updates a project
func (c *Client) SendProject(data *gabs.Container, callback JSONCallback, id models.ID, params string) (*Reply, error) {
	return c.send("projects", data, callback, id, params)
}

// SendTimeEntry creates or updates a time entry
func (c *Client) SendTimeEntry(data *gabs.Container, callback JSONCallback, id models.ID, params string) (*Reply, error) {
	return c.send("time_entries", data, callback, id, params)
}

// SendTimeEntryActivity creates or updates a time entry activity
func (c *Client) SendTimeEntryActivity(data *gabs.Container, callback JSONCallback, id models.ID, params string) (*Reply, error) {
	return c.SendEnumeration("time_entry_activities", data, callback, id, params)
}

// SendTracker creates or updates a tracker
func (c *Client) SendTracker(data *gabs.Container, callback JSONCallback, id models.ID, params string) (*Reply, error) {
	return c.send("trackers", data, callback, id, params)
}

// SendUser creates or updates a user
func (c *Client) SendUser(data *gabs.Container, callback JSONCallback, id models.ID, params string) (*Reply, error) {
	return c.send("users", data, callback, id, params)
}

// SendVersion creates a version in projectID or updates the version id
func (c *Client) SendVersion(data *gabs.Container, callback JSONCallback, projectID int, id models.ID, params string) (*Reply, error) {
	if id.IsSet() {
		return c.send("versions", data, callback, id, params)
	}
	return c.send(fmt.Sprintf("projects/%d/versions", projectID), data, callback, id, params)
}

// DeleteResource deletes resource/id
func (c *Client) DeleteResource(resource string, id int, callback JSONCallback, params string) (*Reply, error) {
	return c.SendRequest(fmt.Sprintf("%s/%d", resource, id), callback, Delete, params, nil)
}

// RetrieveCustomFields retrieves the custom field definitions visible to the user
func (c *Client) RetrieveCustomFields(callback JSONCallback, params string) (*Reply, error) {
	return c.SendRequest("shared/custom_fields", callback, Get, params, nil)
}

// RetrieveEnumerations retrieves the entries of the named enumeration
func (c *Client) RetrieveEnumerations(enumeration string, callback JSONCallback, params string) (*Reply, error) {
	return c.SendRequest("enumerations/"+enumeration, callback, Get, params, nil)
}

// RetrieveGroups retrieves the user groups
func (c *Client) RetrieveGroups(callback JSONCallback, params string) (*Reply, error) {
	return c.SendRequest("groups", callback, Get, params, nil)
}

// RetrieveIssue retrieves a single issue
func (c *Client) RetrieveIssue(callback JSONCallback, issueID int, params string) (*Reply, error) {
	return c.SendRequest(fmt.Sprintf("issues/%d", issueID), callback, Get, params, nil)
}

// RetrieveIssues retrieves one page of issues
func (c *Client) RetrieveIssues(callback JSONCallback, params string) (*Reply, error) {
	return c.SendRequest("issues", callback, Get, params, nil)
}

// RetrieveIssueCategories retrieves the issue categories of a project
func (c *Client) RetrieveIssueCategories(callback JSONCallback, projectID int, params string) (*Reply, error) {
	return c.SendRequest(fmt.Sprintf("projects/%d/issue_categories", projectID), callback, Get, params, nil)
}

// RetrieveIssuePriorities retrieves the issue priorities
func (c *Client) RetrieveIssuePriorities(callback JSONCallback, params string) (*Reply, error) {
	return c.RetrieveEnumerations("issue_priorities", callback, params)
}

// RetrieveIssueStatuses retrieves the issue statuses
func (c *Client) RetrieveIssueStatuses(callback JSONCallback, params string) (*Reply, error) {
	return c.SendRequest("issue_statuses", callback, Get, params, nil)
}

// RetrieveMemberships retrieves the memberships of a project
func (c *Client) RetrieveMemberships(callback JSONCallback, projectID int, params string) (*Reply, error) {
	return c.SendRequest(fmt.Sprintf("projects/%d/memberships", projectID), callback, Get, params, nil)
}

// RetrieveProject retrieves a project including its modules, categories and trackers
func (c *Client) RetrieveProject(callback JSONCallback, projectID int, params string) (*Reply, error) {
	return c.SendRequest(fmt.Sprintf("projects/%d", projectID), callback, Get, JoinQuery(params, projectIncludes), nil)
}

// RetrieveProjects retrieves projects including their modules, categories and trackers
func (c *Client) RetrieveProjects(callback JSONCallback, params string) (*Reply, error) {
	return c.SendRequest("projects", callback, Get, JoinQuery(params, projectIncludes), nil)
}

// RetrieveTimeEntries retrieves time entries
func (c *Client) RetrieveTimeEntries(callback JSONCallback, params string) (*Reply, error) {
	return c.SendRequest("time_entries", callback, Get, params, nil)
}

// RetrieveTimeEntryActivities retrieves the time entry activities
func (c *Client) RetrieveTimeEntryActivities(callback JSONCallback, params string) (*Reply, error) {
	return c.RetrieveEnumerations("time_entry_activities", callback, params)
}

// RetrieveTrackers retrieves the trackers
func (c *Client) RetrieveTrackers(callback JSONCallback, params string) (*Reply, error) {
	return c.SendRequest("trackers", callback, Get, params, nil)
}

// RetrieveCurrentUser retrieves the authenticated user
func (c *Client) RetrieveCurrentUser(callback JSONCallback, params string) (*Reply, error) {
	return c.SendRequest("users/current", callback, Get, params, nil)
}

// RetrieveUsers retrieves users
func (c *Client) RetrieveUsers(callback JSONCallback, params string) (*Reply, error) {
	return c.SendRequest("users", callback, Get, params, nil)
}

// RetrieveVersion retrieves a single version
func (c *Client) RetrieveVersion(callback JSONCallback, versionID int, params string) (*Reply, error) {
	return c.SendRequest(fmt.Sprintf("versions/%d", versionID), callback, Get, params, nil)
}

// RetrieveVersions retrieves the versions of a project
func (c *Client) RetrieveVersions(callback JSONCallback, projectID int, params string) (*Reply, error) {
	return c.SendRequest(fmt.Sprintf("projects/%d/versions", projectID), callback, Get, params, nil)
}
