package api

import (
	"time"

	"github.com/Jeffail/gabs/v2"

	"github.com/wesm/redmine-tracker/internal/models"
)

// A patch only carries the fields the caller set; unset fields are left out
// instead of being sent as null or zero.
type patch struct {
	attrs *gabs.Container
}

func newPatch() *patch {
	return &patch{attrs: gabs.New()}
}

func (p *patch) set(key string, value interface{}) {
	_, _ = p.attrs.Set(value, key)
}

func (p *patch) ref(key string, item *models.Item) {
	if item != nil {
		p.set(key, item.ID)
	}
}

func (p *patch) id(key string, id models.ID) {
	if n, ok := id.Get(); ok {
		p.set(key, n)
	}
}

func (p *patch) str(key, value string) {
	if value != "" {
		p.set(key, value)
	}
}

func (p *patch) date(key string, d time.Time) {
	if !d.IsZero() {
		p.set(key, d.Format(dateLayout))
	}
}

func (p *patch) customFields(cfs []models.CustomField) {
	if len(cfs) == 0 {
		return
	}
	arr := make([]interface{}, 0, len(cfs))
	for _, cf := range cfs {
		entry := map[string]interface{}{"id": cf.ID}
		switch {
		case cf.Multiple || len(cf.Values) > 1:
			values := make([]interface{}, 0, len(cf.Values))
			for _, v := range cf.Values {
				values = append(values, v)
			}
			entry["value"] = values
		case len(cf.Values) == 1:
			entry["value"] = cf.Values[0]
		default:
			entry["value"] = ""
		}
		arr = append(arr, entry)
	}
	p.set("custom_fields", arr)
}

// wrap puts the attributes under the singular resource key
func (p *patch) wrap(key string) *gabs.Container {
	doc := gabs.New()
	_, _ = doc.Set(p.attrs.Data(), key)
	return doc
}

func issuePatch(issue models.Issue) *gabs.Container {
	p := newPatch()
	p.ref("project_id", issue.Project)
	p.ref("tracker_id", issue.Tracker)
	p.ref("status_id", issue.Status)
	p.ref("priority_id", issue.Priority)
	p.str("subject", issue.Subject)
	p.str("description", issue.Description)
	p.ref("category_id", issue.Category)
	p.ref("fixed_version_id", issue.Version)
	p.ref("assigned_to_id", issue.AssignedTo)
	p.id("parent_issue_id", issue.ParentID)
	p.date("start_date", issue.StartDate)
	p.date("due_date", issue.DueDate)
	p.customFields(issue.CustomFields)
	if issue.EstimatedHours != 0 {
		p.set("estimated_hours", issue.EstimatedHours)
	}
	if issue.DoneRatio != 0 {
		p.set("done_ratio", issue.DoneRatio)
	}
	return p.wrap("issue")
}

func timeEntryPatch(te models.TimeEntry) *gabs.Container {
	p := newPatch()
	p.set("hours", te.Hours)
	p.ref("activity_id", te.Activity)
	p.str("comments", te.Comment)
	p.ref("issue_id", te.Issue)
	p.ref("project_id", te.Project)
	p.date("spent_on", te.SpentOn)
	p.customFields(te.CustomFields)
	return p.wrap("time_entry")
}

func projectPatch(project models.Project) *gabs.Container {
	p := newPatch()
	p.str("name", project.Name)
	p.str("identifier", project.Identifier)
	p.str("description", project.Description)
	if project.IsPublic {
		p.set("is_public", true)
	}
	p.ref("parent_id", project.Parent)
	if len(project.Trackers) > 0 {
		ids := make([]interface{}, 0, len(project.Trackers))
		for _, t := range project.Trackers {
			ids = append(ids, t.ID)
		}
		p.set("tracker_ids", ids)
	}
	return p.wrap("project")
}

func enumerationPatch(e models.Enumeration, key string) *gabs.Container {
	p := newPatch()
	p.str("name", e.Name)
	if e.IsDefault {
		p.set("is_default", true)
	}
	return p.wrap(key)
}

func issueStatusPatch(s models.IssueStatus) *gabs.Container {
	p := newPatch()
	p.str("name", s.Name)
	if s.IsClosed {
		p.set("is_closed", true)
	}
	if s.IsDefault {
		p.set("is_default", true)
	}
	return p.wrap("issue_status")
}

func issueCategoryPatch(ic models.IssueCategory) *gabs.Container {
	p := newPatch()
	p.str("name", ic.Name)
	p.ref("assigned_to_id", ic.AssignedTo)
	return p.wrap("issue_category")
}

func trackerPatch(t models.Tracker) *gabs.Container {
	p := newPatch()
	p.str("name", t.Name)
	return p.wrap("tracker")
}

func userPatch(u models.User) *gabs.Container {
	p := newPatch()
	p.str("login", u.Login)
	p.str("firstname", u.Firstname)
	p.str("lastname", u.Lastname)
	p.str("mail", u.Mail)
	return p.wrap("user")
}

func versionPatch(v models.Version) *gabs.Container {
	p := newPatch()
	p.str("name", v.Name)
	p.str("description", v.Description)
	p.str("status", string(v.Status))
	p.str("sharing", string(v.Sharing))
	p.date("due_date", v.DueDate)
	return p.wrap("version")
}
