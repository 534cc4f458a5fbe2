package models

import (
	"strconv"
	"time"
)

// ID is an optional Redmine identifier. The zero value means "no id".
type ID struct {
	n  int
	ok bool
}

// NoID is the absent identifier; sends with NoID create a new resource.
var NoID ID

// SomeID wraps an existing Redmine identifier
func SomeID(n int) ID {
	return ID{n: n, ok: true}
}

// Get returns the identifier and whether it is set
func (id ID) Get() (int, bool) {
	return id.n, id.ok
}

// IsSet reports whether the identifier is present
func (id ID) IsSet() bool {
	return id.ok
}

func (id ID) String() string {
	if !id.ok {
		return "<none>"
	}
	return strconv.Itoa(id.n)
}

// Item is a lightweight reference to another resource
type Item struct {
	ID   int
	Name string
}

// Ref builds a reference; handy when filling records for sends
func Ref(id int, name string) *Item {
	return &Item{ID: id, Name: name}
}

// Resource holds the fields shared by most Redmine records
type Resource struct {
	CreatedOn time.Time
	UpdatedOn time.Time
	User      *Item
}

// Enumeration represents an issue priority or a time entry activity
type Enumeration struct {
	Resource
	ID        int
	Name      string
	IsDefault bool
}

// CustomField represents a custom field definition or a custom field value on a record
type CustomField struct {
	ID   int
	Name string

	Values         []string
	PossibleValues []string
	DefaultValue   string

	Type      string
	Format    string
	Regex     string
	MinLength int
	MaxLength int

	AllProjects bool
	IsRequired  bool
	IsFilter    bool
	Searchable  bool
	Multiple    bool
	Visible     bool

	Projects []Item
	Trackers []Item
}

// Group represents a Redmine user group
type Group struct {
	Resource
	ID      int
	Name    string
	Members []Item
}

// Issue represents a Redmine issue
type Issue struct {
	Resource
	ID       int
	ParentID ID

	Description string
	DoneRatio   float64
	Subject     string

	AssignedTo *Item
	Author     *Item
	Category   *Item
	Priority   *Item
	Project    *Item
	Status     *Item
	Tracker    *Item
	Version    *Item

	DueDate        time.Time
	EstimatedHours float64
	StartDate      time.Time

	CustomFields []CustomField
}

// IssueCategory represents a category of issues within a project
type IssueCategory struct {
	ID         int
	Name       string
	Project    *Item
	AssignedTo *Item
}

// IssueStatus represents an issue status
type IssueStatus struct {
	Resource
	ID        int
	Name      string
	IsClosed  bool
	IsDefault bool
}

// Membership represents the membership of a user or a group in a project
type Membership struct {
	Resource
	ID      int
	Project *Item
	// User and Group are exclusive
	User  *Item
	Group *Item
	Roles []Item
}

// Project represents a Redmine project
type Project struct {
	Resource
	ID          int
	Description string
	Identifier  string
	IsPublic    bool
	Name        string
	Parent      *Item

	Trackers   []Item
	Categories []Item
}

// TimeEntry represents time spent on an issue or a project
type TimeEntry struct {
	Resource
	ID       int
	Activity *Item
	Comment  string
	Hours    float64
	// Issue is required if no project is given and vice versa
	Issue   *Item
	Project *Item
	SpentOn time.Time

	CustomFields []CustomField
}

// Tracker represents an issue tracker
type Tracker struct {
	Resource
	ID   int
	Name string
}

// User represents a Redmine user
type User struct {
	Resource
	ID          int
	Login       string
	Firstname   string
	Lastname    string
	Mail        string
	LastLoginOn time.Time
}

// VersionStatus is the open/close state of a version
type VersionStatus string

const (
	VersionOpen   VersionStatus = "open"
	VersionLocked VersionStatus = "locked"
	VersionClosed VersionStatus = "closed"
)

// VersionSharing defines which projects can use a version
type VersionSharing string

const (
	SharingNone        VersionSharing = "none"
	SharingDescendants VersionSharing = "descendants"
	SharingHierarchy   VersionSharing = "hierarchy"
	SharingTree        VersionSharing = "tree"
	SharingSystem      VersionSharing = "system"
)

// Version represents a project version (milestone)
type Version struct {
	Resource
	ID          int
	Name        string
	Project     *Item
	Status      VersionStatus
	Sharing     VersionSharing
	DueDate     time.Time
	Description string
}
