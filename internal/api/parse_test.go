package api

import (
	"testing"
	"time"

	"github.com/Jeffail/gabs/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesm/redmine-tracker/internal/models"
)

func reparse(t *testing.T, c *gabs.Container) *gabs.Container {
	t.Helper()
	doc, err := gabs.ParseJSON(c.Bytes())
	require.NoError(t, err)
	return doc
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var (
	created = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	updated = time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	author  = models.Resource{CreatedOn: created, UpdatedOn: updated, User: models.Ref(7, "Alice")}
)

func TestIssueRoundTrip(t *testing.T) {
	issue := models.Issue{
		Resource:       author,
		ID:             101,
		ParentID:       models.SomeID(100),
		Description:    "Steps to reproduce",
		DoneRatio:      40,
		Subject:        "Crash on save",
		AssignedTo:     models.Ref(3, "Bob"),
		Author:         models.Ref(7, "Alice"),
		Category:       models.Ref(2, "Backend"),
		Priority:       models.Ref(4, "High"),
		Project:        models.Ref(1, "Tracker"),
		Status:         models.Ref(1, "New"),
		Tracker:        models.Ref(1, "Bug"),
		Version:        models.Ref(9, "1.0"),
		DueDate:        date(2024, 3, 1),
		EstimatedHours: 2.5,
		StartDate:      date(2024, 2, 1),
		CustomFields: []models.CustomField{
			{ID: 5, Name: "Severity", Values: []string{"major"}, Type: "issue"},
			{ID: 6, Name: "OS", Values: []string{"linux", "mac"}, Multiple: true, Type: "issue"},
		},
	}
	assert.Equal(t, issue, parseIssue(reparse(t, EncodeIssue(issue))))
}

func TestIssueWithoutReferencesRoundTrip(t *testing.T) {
	issue := models.Issue{ID: 1, Subject: "Bare"}
	got := parseIssue(reparse(t, EncodeIssue(issue)))
	assert.Equal(t, issue, got)
	assert.False(t, got.ParentID.IsSet())
	assert.Nil(t, got.Project)
}

func TestRecordRoundTrips(t *testing.T) {
	t.Run("custom field", func(t *testing.T) {
		cf := models.CustomField{
			ID: 5, Name: "Severity", DefaultValue: "minor", Type: "issue", Format: "list",
			Regex: "^[a-z]+$", MinLength: 1, MaxLength: 20,
			IsRequired: true, IsFilter: true, Searchable: true, Visible: true,
			PossibleValues: []string{"minor", "major"},
			Projects:       []models.Item{{ID: 1, Name: "Tracker"}},
			Trackers:       []models.Item{{ID: 2, Name: "Bug"}},
		}
		assert.Equal(t, cf, parseCustomField(reparse(t, EncodeCustomField(cf))))
	})
	t.Run("enumeration", func(t *testing.T) {
		e := models.Enumeration{Resource: author, ID: 3, Name: "Normal", IsDefault: true}
		assert.Equal(t, e, parseEnumeration(reparse(t, EncodeEnumeration(e))))
	})
	t.Run("group", func(t *testing.T) {
		g := models.Group{Resource: author, ID: 20, Name: "Developers", Members: []models.Item{{ID: 3, Name: "Bob"}}}
		assert.Equal(t, g, parseGroup(reparse(t, EncodeGroup(g))))
	})
	t.Run("issue category", func(t *testing.T) {
		ic := models.IssueCategory{ID: 2, Name: "Backend", Project: models.Ref(1, "Tracker"), AssignedTo: models.Ref(3, "Bob")}
		assert.Equal(t, ic, parseIssueCategory(reparse(t, EncodeIssueCategory(ic))))
	})
	t.Run("issue status", func(t *testing.T) {
		s := models.IssueStatus{Resource: author, ID: 5, Name: "Closed", IsClosed: true}
		assert.Equal(t, s, parseIssueStatus(reparse(t, EncodeIssueStatus(s))))
	})
	t.Run("membership", func(t *testing.T) {
		m := models.Membership{
			Resource: models.Resource{CreatedOn: created},
			ID:       8,
			Project:  models.Ref(1, "Tracker"),
			User:     models.Ref(3, "Bob"),
			Roles:    []models.Item{{ID: 4, Name: "Developer"}},
		}
		assert.Equal(t, m, parseMembership(reparse(t, EncodeMembership(m))))
	})
	t.Run("project", func(t *testing.T) {
		p := models.Project{
			Resource: author, ID: 1, Description: "Issue tracking", Identifier: "tracker",
			IsPublic: true, Name: "Tracker", Parent: models.Ref(10, "Tools"),
			Trackers:   []models.Item{{ID: 1, Name: "Bug"}, {ID: 2, Name: "Feature"}},
			Categories: []models.Item{{ID: 2, Name: "Backend"}},
		}
		assert.Equal(t, p, parseProject(reparse(t, EncodeProject(p))))
	})
	t.Run("time entry", func(t *testing.T) {
		te := models.TimeEntry{
			Resource: author, ID: 30, Activity: models.Ref(9, "Development"), Comment: "Fixing",
			Hours: 1.25, Issue: models.Ref(101, ""), Project: models.Ref(1, "Tracker"),
			SpentOn:      date(2024, 3, 4),
			CustomFields: []models.CustomField{{ID: 11, Name: "Billable", Values: []string{"1"}, Type: "time_entry"}},
		}
		assert.Equal(t, te, parseTimeEntry(reparse(t, EncodeTimeEntry(te))))
	})
	t.Run("tracker", func(t *testing.T) {
		tr := models.Tracker{Resource: author, ID: 1, Name: "Bug"}
		assert.Equal(t, tr, parseTracker(reparse(t, EncodeTracker(tr))))
	})
	t.Run("user", func(t *testing.T) {
		u := models.User{Resource: author, ID: 3, Login: "bob", Firstname: "Bob", Lastname: "Builder", Mail: "bob@example.com", LastLoginOn: updated}
		assert.Equal(t, u, parseUser(reparse(t, EncodeUser(u))))
	})
	t.Run("version", func(t *testing.T) {
		v := models.Version{
			Resource: author, ID: 9, Name: "1.0", Project: models.Ref(1, "Tracker"),
			Status: models.VersionLocked, Sharing: models.SharingTree, DueDate: date(2024, 6, 30),
			Description: "First release",
		}
		assert.Equal(t, v, parseVersion(reparse(t, EncodeVersion(v))))
	})
}

func TestParseVersionRejectsUnknownEnums(t *testing.T) {
	doc, err := gabs.ParseJSON([]byte(`{"id":1,"status":"archived","sharing":"everyone"}`))
	require.NoError(t, err)
	v := parseVersion(doc)
	assert.Empty(t, v.Status)
	assert.Empty(t, v.Sharing)
}

func TestListItemsCollectsTopLevelArrays(t *testing.T) {
	list := EncodeList("trackers", []*gabs.Container{
		EncodeTracker(models.Tracker{ID: 1, Name: "Bug"}),
		EncodeTracker(models.Tracker{ID: 2, Name: "Feature"}),
	})
	items := listItems(reparse(t, list))
	require.Len(t, items, 2)
	assert.Equal(t, "Bug", parseTracker(items[0]).Name)
	assert.Equal(t, "Feature", parseTracker(items[1]).Name)
	assert.Empty(t, listItems(gabs.New()))
}

func TestIssuePatchIsSparse(t *testing.T) {
	body := issuePatch(models.Issue{
		Subject: "Crash on save",
		Project: models.Ref(1, "Tracker"),
	})
	assert.JSONEq(t, `{"issue":{"project_id":1,"subject":"Crash on save"}}`, body.String())

	body = issuePatch(models.Issue{
		Tracker:      models.Ref(2, ""),
		ParentID:     models.SomeID(100),
		DueDate:      date(2024, 3, 1),
		DoneRatio:    50,
		CustomFields: []models.CustomField{{ID: 5, Values: []string{"major"}}, {ID: 6, Values: []string{"a", "b"}}, {ID: 7}},
	})
	assert.JSONEq(t, `{"issue":{
		"tracker_id":2,
		"parent_issue_id":100,
		"due_date":"2024-03-01",
		"done_ratio":50,
		"custom_fields":[{"id":5,"value":"major"},{"id":6,"value":["a","b"]},{"id":7,"value":""}]
	}}`, body.String())
}

func TestTimeEntryPatchAlwaysSendsHours(t *testing.T) {
	body := timeEntryPatch(models.TimeEntry{Hours: 0.5, Issue: models.Ref(101, ""), SpentOn: date(2024, 3, 4)})
	assert.JSONEq(t, `{"time_entry":{"hours":0.5,"issue_id":101,"spent_on":"2024-03-04"}}`, body.String())
}

func TestVersionPatch(t *testing.T) {
	body := versionPatch(models.Version{Name: "1.1", Status: models.VersionClosed})
	assert.JSONEq(t, `{"version":{"name":"1.1","status":"closed"}}`, body.String())
}
