package api

import (
	"net/http"
	"testing"

	"github.com/Jeffail/gabs/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesm/redmine-tracker/internal/models"
)

func customFieldIDs(cfs []models.CustomField) []int {
	ids := make([]int, 0, len(cfs))
	for _, cf := range cfs {
		ids = append(ids, cf.ID)
	}
	return ids
}

func TestRetrieveCustomFieldsFilter(t *testing.T) {
	fields := []models.CustomField{
		{ID: 1, Name: "Everywhere", Type: "issue", Format: "string", AllProjects: true, Trackers: []models.Item{{ID: 2}}},
		{ID: 2, Name: "Other project", Type: "issue", Format: "string", Projects: []models.Item{{ID: 9}}, Trackers: []models.Item{{ID: 2}}},
		{ID: 3, Name: "Other tracker", Type: "issue", Format: "string", Projects: []models.Item{{ID: 1}}, Trackers: []models.Item{{ID: 3}}},
		{ID: 4, Name: "Time entry", Type: "time_entry", Format: "string", AllProjects: true},
		{ID: 5, Name: "List", Type: "issue", Format: "list", Projects: []models.Item{{ID: 1}}, Trackers: []models.Item{{ID: 2}}},
	}
	var encoded []*gabs.Container
	for _, cf := range fields {
		encoded = append(encoded, EncodeCustomField(cf))
	}

	srv := newFakeRedmine(t)
	srv.reply("GET /shared/custom_fields.json", http.StatusOK, EncodeList("custom_fields", encoded).String())
	c := newTestClient(t, srv)

	cases := []struct {
		name   string
		filter CustomFieldFilter
		want   []int
	}{
		{"none", CustomFieldFilter{}, []int{1, 2, 3, 4, 5}},
		{"type", CustomFieldFilter{Type: "time_entry"}, []int{4}},
		{"format", CustomFieldFilter{Format: "list"}, []int{5}},
		{"project", CustomFieldFilter{ProjectID: models.SomeID(1)}, []int{1, 3, 4, 5}},
		{"project and tracker", CustomFieldFilter{ProjectID: models.SomeID(1), TrackerID: models.SomeID(2), Type: "issue"}, []int{1, 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cb, ch := collect[[]models.CustomField]()
			c.RetrieveCustomFields(cb, tc.filter)
			o := await(t, ch)
			require.Equal(t, NoError, o.code)
			assert.Equal(t, tc.want, customFieldIDs(o.result))
		})
	}
}

func TestRetrieveCurrentUser(t *testing.T) {
	srv := newFakeRedmine(t)
	user := models.User{ID: 3, Login: "bob", Firstname: "Bob", Lastname: "Builder"}
	doc := gabs.New()
	_, _ = doc.Set(EncodeUser(user).Data(), "user")
	srv.reply("GET /users/current.json", http.StatusOK, doc.String())
	c := newTestClient(t, srv)

	cb, ch := collect[models.User]()
	c.RetrieveCurrentUser(cb)
	o := await(t, ch)

	require.Equal(t, NoError, o.code)
	assert.Equal(t, user, o.result)
}

func TestRetrieveCurrentUserUnauthorized(t *testing.T) {
	srv := newFakeRedmine(t)
	srv.reply("GET /users/current.json", http.StatusUnauthorized, ``)
	c := newTestClient(t, srv)

	cb, ch := collect[models.User]()
	c.RetrieveCurrentUser(cb)
	o := await(t, ch)

	assert.Equal(t, ErrNetwork, o.code)
	assert.Equal(t, models.User{}, o.result)
	require.Len(t, o.errs, 1)
	assert.Contains(t, o.errs[0], "401")
}

func TestRetrieveProjectsIncludesDetails(t *testing.T) {
	srv := newFakeRedmine(t)
	projects := []*gabs.Container{
		EncodeProject(models.Project{ID: 1, Name: "Tracker", Identifier: "tracker"}),
		EncodeProject(models.Project{ID: 2, Name: "Website", Identifier: "web"}),
	}
	srv.reply("GET /projects.json", http.StatusOK, EncodeList("projects", projects).String())
	c := newTestClient(t, srv)

	cb, ch := collect[[]models.Project]()
	c.RetrieveProjects(cb, "limit=100")
	o := await(t, ch)

	require.Equal(t, NoError, o.code)
	require.Len(t, o.result, 2)
	assert.Equal(t, "Website", o.result[1].Name)

	reqs := srv.matching(onPath(http.MethodGet, "/projects.json"))
	require.Len(t, reqs, 1)
	assert.Equal(t, "enabled_modules,issue_categories,trackers", reqs[0].Query.Get("include"))
	assert.Equal(t, "100", reqs[0].Query.Get("limit"))
}

func TestRetrieveEnumerationShortcuts(t *testing.T) {
	srv := newFakeRedmine(t)
	list := EncodeList("time_entry_activities", []*gabs.Container{
		EncodeEnumeration(models.Enumeration{ID: 9, Name: "Development", IsDefault: true}),
	})
	srv.reply("GET /enumerations/time_entry_activities.json", http.StatusOK, list.String())
	c := newTestClient(t, srv)

	cb, ch := collect[[]models.Enumeration]()
	c.RetrieveTimeEntryActivities(cb, "")
	o := await(t, ch)

	require.Equal(t, NoError, o.code)
	assert.Equal(t, []models.Enumeration{{ID: 9, Name: "Development", IsDefault: true}}, o.result)
}

func TestRetrieveWithoutConnection(t *testing.T) {
	c := NewClient("")
	t.Cleanup(func() { _ = c.Close() })

	cb, ch := collect[[]models.Tracker]()
	c.RetrieveTrackers(cb, "")
	o := await(t, ch)

	assert.Equal(t, ErrNetwork, o.code)
	assert.Nil(t, o.result)
	require.Len(t, o.errs, 1)
	assert.Contains(t, o.errs[0], "not yet initialised")
}
