package api

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/Jeffail/gabs/v2"

	"github.com/wesm/redmine-tracker/internal/models"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = time.RFC3339
)

func number(c *gabs.Container) (float64, bool) {
	switch v := c.Data().(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func intValue(c *gabs.Container) int {
	f, _ := number(c)
	return int(math.Round(f))
}

func floatValue(c *gabs.Container) float64 {
	f, _ := number(c)
	return f
}

func stringValue(c *gabs.Container) string {
	s, _ := c.Data().(string)
	return s
}

func boolValue(c *gabs.Container) bool {
	b, _ := c.Data().(bool)
	return b
}

func dateValue(c *gabs.Container) time.Time {
	t, err := time.Parse(dateLayout, stringValue(c))
	if err != nil {
		return time.Time{}
	}
	return t
}

func dateTimeValue(c *gabs.Container) time.Time {
	t, err := time.Parse(dateTimeLayout, stringValue(c))
	if err != nil {
		return time.Time{}
	}
	return t
}

func isObject(c *gabs.Container) bool {
	m, ok := c.Data().(map[string]interface{})
	return ok && len(m) > 0
}

func arrayOf(c *gabs.Container) []*gabs.Container {
	if _, ok := c.Data().([]interface{}); !ok {
		return nil
	}
	return c.Children()
}

// listItems returns the elements of every top-level array of a list response,
// e.g. "issues" in {"issues": [...], "total_count": 3}
func listItems(doc *gabs.Container) []*gabs.Container {
	children := doc.ChildrenMap()
	keys := make([]string, 0, len(children))
	for k := range children {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var items []*gabs.Container
	for _, k := range keys {
		items = append(items, arrayOf(children[k])...)
	}
	return items
}

func parseItem(c *gabs.Container) models.Item {
	return models.Item{ID: intValue(c.S("id")), Name: stringValue(c.S("name"))}
}

// fillItem returns the {id, name} reference under key, or nil when absent
func fillItem(obj *gabs.Container, key string) *models.Item {
	sub := obj.S(key)
	if !isObject(sub) {
		return nil
	}
	item := parseItem(sub)
	return &item
}

func fillItems(obj *gabs.Container, key string) []models.Item {
	var items []models.Item
	for _, c := range arrayOf(obj.S(key)) {
		items = append(items, parseItem(c))
	}
	return items
}

func fillResource(obj *gabs.Container) models.Resource {
	return models.Resource{
		CreatedOn: dateTimeValue(obj.S("created_on")),
		UpdatedOn: dateTimeValue(obj.S("updated_on")),
		User:      fillItem(obj, "user"),
	}
}

func parseCustomField(obj *gabs.Container) models.CustomField {
	cf := models.CustomField{
		ID:           intValue(obj.S("id")),
		Name:         stringValue(obj.S("name")),
		DefaultValue: stringValue(obj.S("default_value")),
		Type:         stringValue(obj.S("customized_type")),
		Format:       stringValue(obj.S("field_format")),
		Regex:        stringValue(obj.S("regex")),
		MinLength:    intValue(obj.S("min_length")),
		MaxLength:    intValue(obj.S("max_length")),
		AllProjects:  boolValue(obj.S("is_for_all")),
		IsRequired:   boolValue(obj.S("is_required")),
		IsFilter:     boolValue(obj.S("is_filter")),
		Searchable:   boolValue(obj.S("searchable")),
		Multiple:     boolValue(obj.S("multiple")),
		Visible:      boolValue(obj.S("visible")),
		Projects:     fillItems(obj, "projects"),
		Trackers:     fillItems(obj, "trackers"),
	}
	for _, pv := range arrayOf(obj.S("possible_values")) {
		cf.PossibleValues = append(cf.PossibleValues, stringValue(pv.S("value")))
	}
	return cf
}

// parseCustomFieldValue parses a custom field attached to an issue or time entry
func parseCustomFieldValue(obj *gabs.Container, customizedType string) models.CustomField {
	cf := models.CustomField{
		ID:       intValue(obj.S("id")),
		Name:     stringValue(obj.S("name")),
		Multiple: boolValue(obj.S("multiple")),
		Type:     customizedType,
	}
	value := obj.S("value")
	if s, ok := value.Data().(string); ok {
		cf.Values = append(cf.Values, s)
	}
	for _, v := range arrayOf(value) {
		cf.Values = append(cf.Values, stringValue(v))
	}
	return cf
}

func parseCustomFieldValues(obj *gabs.Container, customizedType string) []models.CustomField {
	var cfs []models.CustomField
	for _, c := range arrayOf(obj.S("custom_fields")) {
		cfs = append(cfs, parseCustomFieldValue(c, customizedType))
	}
	return cfs
}

func parseEnumeration(obj *gabs.Container) models.Enumeration {
	return models.Enumeration{
		Resource:  fillResource(obj),
		ID:        intValue(obj.S("id")),
		Name:      stringValue(obj.S("name")),
		IsDefault: boolValue(obj.S("is_default")),
	}
}

func parseGroup(obj *gabs.Container) models.Group {
	return models.Group{
		Resource: fillResource(obj),
		ID:       intValue(obj.S("id")),
		Name:     stringValue(obj.S("name")),
		Members:  fillItems(obj, "users"),
	}
}

func parseIssue(obj *gabs.Container) models.Issue {
	issue := models.Issue{
		Resource:    fillResource(obj),
		ID:          intValue(obj.S("id")),
		Description: stringValue(obj.S("description")),
		DoneRatio:   floatValue(obj.S("done_ratio")),
		Subject:     stringValue(obj.S("subject")),

		AssignedTo: fillItem(obj, "assigned_to"),
		Author:     fillItem(obj, "author"),
		Category:   fillItem(obj, "category"),
		Priority:   fillItem(obj, "priority"),
		Project:    fillItem(obj, "project"),
		Status:     fillItem(obj, "status"),
		Tracker:    fillItem(obj, "tracker"),
		Version:    fillItem(obj, "fixed_version"),

		DueDate:        dateValue(obj.S("due_date")),
		EstimatedHours: floatValue(obj.S("estimated_hours")),
		StartDate:      dateValue(obj.S("start_date")),

		CustomFields: parseCustomFieldValues(obj, "issue"),
	}
	if parent := obj.S("parent"); isObject(parent) {
		issue.ParentID = models.SomeID(intValue(parent.S("id")))
	}
	return issue
}

func parseIssueCategory(obj *gabs.Container) models.IssueCategory {
	return models.IssueCategory{
		ID:         intValue(obj.S("id")),
		Name:       stringValue(obj.S("name")),
		Project:    fillItem(obj, "project"),
		AssignedTo: fillItem(obj, "assigned_to"),
	}
}

func parseIssueStatus(obj *gabs.Container) models.IssueStatus {
	return models.IssueStatus{
		Resource:  fillResource(obj),
		ID:        intValue(obj.S("id")),
		Name:      stringValue(obj.S("name")),
		IsClosed:  boolValue(obj.S("is_closed")),
		IsDefault: boolValue(obj.S("is_default")),
	}
}

func parseMembership(obj *gabs.Container) models.Membership {
	// "user" is the member, not the creator
	res := fillResource(obj)
	res.User = nil
	return models.Membership{
		Resource: res,
		ID:       intValue(obj.S("id")),
		Project:  fillItem(obj, "project"),
		User:     fillItem(obj, "user"),
		Group:    fillItem(obj, "group"),
		Roles:    fillItems(obj, "roles"),
	}
}

func parseProject(obj *gabs.Container) models.Project {
	return models.Project{
		Resource:    fillResource(obj),
		ID:          intValue(obj.S("id")),
		Description: stringValue(obj.S("description")),
		Identifier:  stringValue(obj.S("identifier")),
		IsPublic:    boolValue(obj.S("is_public")),
		Name:        stringValue(obj.S("name")),
		Parent:      fillItem(obj, "parent"),
		Trackers:    fillItems(obj, "trackers"),
		Categories:  fillItems(obj, "issue_categories"),
	}
}

func parseTimeEntry(obj *gabs.Container) models.TimeEntry {
	return models.TimeEntry{
		Resource:     fillResource(obj),
		ID:           intValue(obj.S("id")),
		Activity:     fillItem(obj, "activity"),
		Comment:      stringValue(obj.S("comments")),
		Hours:        floatValue(obj.S("hours")),
		Issue:        fillItem(obj, "issue"),
		Project:      fillItem(obj, "project"),
		SpentOn:      dateValue(obj.S("spent_on")),
		CustomFields: parseCustomFieldValues(obj, "time_entry"),
	}
}

func parseTracker(obj *gabs.Container) models.Tracker {
	return models.Tracker{
		Resource: fillResource(obj),
		ID:       intValue(obj.S("id")),
		Name:     stringValue(obj.S("name")),
	}
}

func parseUser(obj *gabs.Container) models.User {
	return models.User{
		Resource:    fillResource(obj),
		ID:          intValue(obj.S("id")),
		Login:       stringValue(obj.S("login")),
		Firstname:   stringValue(obj.S("firstname")),
		Lastname:    stringValue(obj.S("lastname")),
		Mail:        stringValue(obj.S("mail")),
		LastLoginOn: dateTimeValue(obj.S("last_login_on")),
	}
}

func parseVersion(obj *gabs.Container) models.Version {
	v := models.Version{
		Resource:    fillResource(obj),
		ID:          intValue(obj.S("id")),
		Name:        stringValue(obj.S("name")),
		Project:     fillItem(obj, "project"),
		Description: stringValue(obj.S("description")),
		DueDate:     dateValue(obj.S("due_date")),
	}
	switch s := models.VersionStatus(stringValue(obj.S("status"))); s {
	case models.VersionOpen, models.VersionLocked, models.VersionClosed:
		v.Status = s
	}
	switch s := models.VersionSharing(stringValue(obj.S("sharing"))); s {
	case models.SharingNone, models.SharingDescendants, models.SharingHierarchy, models.SharingTree, models.SharingSystem:
		v.Sharing = s
	}
	return v
}
