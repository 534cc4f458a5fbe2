package api

import (
	"time"

	"github.com/Jeffail/gabs/v2"

	"github.com/wesm/redmine-tracker/internal/models"
)

// The Encode functions render records in the shape Redmine uses in responses,
// so that parsing the output yields the record again.

func setItem(obj *gabs.Container, key string, item *models.Item) {
	if item == nil {
		return
	}
	_, _ = obj.Set(itemObject(*item), key)
}

func itemObject(item models.Item) map[string]interface{} {
	return map[string]interface{}{"id": item.ID, "name": item.Name}
}

func setItems(obj *gabs.Container, key string, items []models.Item) {
	if items == nil {
		return
	}
	arr := make([]interface{}, 0, len(items))
	for _, item := range items {
		arr = append(arr, itemObject(item))
	}
	_, _ = obj.Set(arr, key)
}

func setDate(obj *gabs.Container, key string, t time.Time) {
	if !t.IsZero() {
		_, _ = obj.Set(t.Format(dateLayout), key)
	}
}

func setDateTime(obj *gabs.Container, key string, t time.Time) {
	if !t.IsZero() {
		_, _ = obj.Set(t.UTC().Format(dateTimeLayout), key)
	}
}

func setResource(obj *gabs.Container, r models.Resource) {
	setDateTime(obj, "created_on", r.CreatedOn)
	setDateTime(obj, "updated_on", r.UpdatedOn)
	setItem(obj, "user", r.User)
}

func setCustomFieldValues(obj *gabs.Container, cfs []models.CustomField) {
	if cfs == nil {
		return
	}
	arr := make([]interface{}, 0, len(cfs))
	for _, cf := range cfs {
		entry := map[string]interface{}{"id": cf.ID, "name": cf.Name}
		if cf.Multiple {
			entry["multiple"] = true
			values := make([]interface{}, 0, len(cf.Values))
			for _, v := range cf.Values {
				values = append(values, v)
			}
			entry["value"] = values
		} else if len(cf.Values) > 0 {
			entry["value"] = cf.Values[0]
		}
		arr = append(arr, entry)
	}
	_, _ = obj.Set(arr, "custom_fields")
}

// EncodeCustomField renders a custom field definition
func EncodeCustomField(cf models.CustomField) *gabs.Container {
	obj := gabs.New()
	_, _ = obj.Set(cf.ID, "id")
	_, _ = obj.Set(cf.Name, "name")
	_, _ = obj.Set(cf.DefaultValue, "default_value")
	_, _ = obj.Set(cf.Type, "customized_type")
	_, _ = obj.Set(cf.Format, "field_format")
	_, _ = obj.Set(cf.Regex, "regex")
	_, _ = obj.Set(cf.MinLength, "min_length")
	_, _ = obj.Set(cf.MaxLength, "max_length")
	_, _ = obj.Set(cf.AllProjects, "is_for_all")
	_, _ = obj.Set(cf.IsRequired, "is_required")
	_, _ = obj.Set(cf.IsFilter, "is_filter")
	_, _ = obj.Set(cf.Searchable, "searchable")
	_, _ = obj.Set(cf.Multiple, "multiple")
	_, _ = obj.Set(cf.Visible, "visible")
	if cf.PossibleValues != nil {
		values := make([]interface{}, 0, len(cf.PossibleValues))
		for _, v := range cf.PossibleValues {
			values = append(values, map[string]interface{}{"value": v})
		}
		_, _ = obj.Set(values, "possible_values")
	}
	setItems(obj, "projects", cf.Projects)
	setItems(obj, "trackers", cf.Trackers)
	return obj
}

// EncodeEnumeration renders an issue priority or time entry activity
func EncodeEnumeration(e models.Enumeration) *gabs.Container {
	obj := gabs.New()
	_, _ = obj.Set(e.ID, "id")
	_, _ = obj.Set(e.Name, "name")
	_, _ = obj.Set(e.IsDefault, "is_default")
	setResource(obj, e.Resource)
	return obj
}

// EncodeGroup renders a group with its members
func EncodeGroup(g models.Group) *gabs.Container {
	obj := gabs.New()
	_, _ = obj.Set(g.ID, "id")
	_, _ = obj.Set(g.Name, "name")
	setItems(obj, "users", g.Members)
	setResource(obj, g.Resource)
	return obj
}

// EncodeIssue renders an issue
func EncodeIssue(issue models.Issue) *gabs.Container {
	obj := gabs.New()
	_, _ = obj.Set(issue.ID, "id")
	if id, ok := issue.ParentID.Get(); ok {
		_, _ = obj.Set(map[string]interface{}{"id": id}, "parent")
	}
	_, _ = obj.Set(issue.Subject, "subject")
	_, _ = obj.Set(issue.Description, "description")
	_, _ = obj.Set(issue.DoneRatio, "done_ratio")
	setItem(obj, "assigned_to", issue.AssignedTo)
	setItem(obj, "author", issue.Author)
	setItem(obj, "category", issue.Category)
	setItem(obj, "priority", issue.Priority)
	setItem(obj, "project", issue.Project)
	setItem(obj, "status", issue.Status)
	setItem(obj, "tracker", issue.Tracker)
	setItem(obj, "fixed_version", issue.Version)
	setDate(obj, "due_date", issue.DueDate)
	setDate(obj, "start_date", issue.StartDate)
	if issue.EstimatedHours != 0 {
		_, _ = obj.Set(issue.EstimatedHours, "estimated_hours")
	}
	setCustomFieldValues(obj, issue.CustomFields)
	setResource(obj, issue.Resource)
	return obj
}

// EncodeIssueCategory renders an issue category
func EncodeIssueCategory(ic models.IssueCategory) *gabs.Container {
	obj := gabs.New()
	_, _ = obj.Set(ic.ID, "id")
	_, _ = obj.Set(ic.Name, "name")
	setItem(obj, "project", ic.Project)
	setItem(obj, "assigned_to", ic.AssignedTo)
	return obj
}

// EncodeIssueStatus renders an issue status
func EncodeIssueStatus(s models.IssueStatus) *gabs.Container {
	obj := gabs.New()
	_, _ = obj.Set(s.ID, "id")
	_, _ = obj.Set(s.Name, "name")
	_, _ = obj.Set(s.IsClosed, "is_closed")
	_, _ = obj.Set(s.IsDefault, "is_default")
	setResource(obj, s.Resource)
	return obj
}

// EncodeMembership renders a project membership
func EncodeMembership(m models.Membership) *gabs.Container {
	obj := gabs.New()
	_, _ = obj.Set(m.ID, "id")
	setItem(obj, "project", m.Project)
	setItem(obj, "group", m.Group)
	setItems(obj, "roles", m.Roles)
	setResource(obj, m.Resource)
	setItem(obj, "user", m.User)
	return obj
}

// EncodeProject renders a project
func EncodeProject(p models.Project) *gabs.Container {
	obj := gabs.New()
	_, _ = obj.Set(p.ID, "id")
	_, _ = obj.Set(p.Name, "name")
	_, _ = obj.Set(p.Identifier, "identifier")
	_, _ = obj.Set(p.Description, "description")
	_, _ = obj.Set(p.IsPublic, "is_public")
	setItem(obj, "parent", p.Parent)
	setItems(obj, "trackers", p.Trackers)
	setItems(obj, "issue_categories", p.Categories)
	setResource(obj, p.Resource)
	return obj
}

// EncodeTimeEntry renders a time entry
func EncodeTimeEntry(te models.TimeEntry) *gabs.Container {
	obj := gabs.New()
	_, _ = obj.Set(te.ID, "id")
	_, _ = obj.Set(te.Hours, "hours")
	_, _ = obj.Set(te.Comment, "comments")
	setItem(obj, "activity", te.Activity)
	setItem(obj, "issue", te.Issue)
	setItem(obj, "project", te.Project)
	setDate(obj, "spent_on", te.SpentOn)
	setCustomFieldValues(obj, te.CustomFields)
	setResource(obj, te.Resource)
	return obj
}

// EncodeTracker renders a tracker
func EncodeTracker(t models.Tracker) *gabs.Container {
	obj := gabs.New()
	_, _ = obj.Set(t.ID, "id")
	_, _ = obj.Set(t.Name, "name")
	setResource(obj, t.Resource)
	return obj
}

// EncodeUser renders a user
func EncodeUser(u models.User) *gabs.Container {
	obj := gabs.New()
	_, _ = obj.Set(u.ID, "id")
	_, _ = obj.Set(u.Login, "login")
	_, _ = obj.Set(u.Firstname, "firstname")
	_, _ = obj.Set(u.Lastname, "lastname")
	_, _ = obj.Set(u.Mail, "mail")
	setDateTime(obj, "last_login_on", u.LastLoginOn)
	setResource(obj, u.Resource)
	return obj
}

// EncodeVersion renders a version
func EncodeVersion(v models.Version) *gabs.Container {
	obj := gabs.New()
	_, _ = obj.Set(v.ID, "id")
	_, _ = obj.Set(v.Name, "name")
	_, _ = obj.Set(v.Description, "description")
	setItem(obj, "project", v.Project)
	if v.Status != "" {
		_, _ = obj.Set(string(v.Status), "status")
	}
	if v.Sharing != "" {
		_, _ = obj.Set(string(v.Sharing), "sharing")
	}
	setDate(obj, "due_date", v.DueDate)
	setResource(obj, v.Resource)
	return obj
}

// EncodeList wraps encoded records under a plural key, as list endpoints do
func EncodeList(key string, items []*gabs.Container) *gabs.Container {
	arr := make([]interface{}, 0, len(items))
	for _, item := range items {
		arr = append(arr, item.Data())
	}
	obj := gabs.New()
	_, _ = obj.Set(arr, key)
	_, _ = obj.Set(len(items), "total_count")
	return obj
}
