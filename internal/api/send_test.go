package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesm/redmine-tracker/internal/models"
)

type sendOutcome struct {
	ok   bool
	id   int
	code ErrorCode
	errs []string
}

func collectSend() (SuccessCallback, chan sendOutcome) {
	ch := make(chan sendOutcome, 4)
	return func(ok bool, id int, code ErrorCode, errs []string) {
		ch <- sendOutcome{ok: ok, id: id, code: code, errs: errs}
	}, ch
}

func awaitSend(t *testing.T, ch chan sendOutcome) sendOutcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
	return sendOutcome{}
}

func onPath(method, path string) func(recordedRequest) bool {
	return func(r recordedRequest) bool { return r.Method == method && r.Path == path }
}

func TestSendIssueReturnsCreatedID(t *testing.T) {
	srv := newFakeRedmine(t)
	srv.reply("POST /issues.json", http.StatusCreated, `{"issue":{"id":42,"subject":"Crash on save"}}`)
	c := newTestClient(t, srv)

	cb, ch := collectSend()
	c.SendIssue(models.Issue{Subject: "Crash on save", Project: models.Ref(1, "")}, cb, models.NoID, "")
	o := awaitSend(t, ch)

	assert.True(t, o.ok)
	assert.Equal(t, 42, o.id)
	assert.Equal(t, NoError, o.code)

	reqs := srv.matching(onPath(http.MethodPost, "/issues.json"))
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"issue":{"project_id":1,"subject":"Crash on save"}}`, reqs[0].Body)
}

func TestSendIssueUpdate(t *testing.T) {
	srv := newFakeRedmine(t)
	srv.reply("PUT /issues/42.json", http.StatusNoContent, ``)
	c := newTestClient(t, srv)

	cb, ch := collectSend()
	c.SendIssue(models.Issue{DoneRatio: 80}, cb, models.SomeID(42), "")
	o := awaitSend(t, ch)

	assert.True(t, o.ok)
	assert.Equal(t, 42, o.id)
	assert.Equal(t, 1, srv.count(onPath(http.MethodPut, "/issues/42.json")))
}

func TestSendIssueErrorList(t *testing.T) {
	srv := newFakeRedmine(t)
	srv.reply("POST /issues.json", http.StatusUnprocessableEntity, `{"errors":["Subject cannot be blank","Tracker cannot be blank"]}`)
	c := newTestClient(t, srv)

	cb, ch := collectSend()
	c.SendIssue(models.Issue{Project: models.Ref(1, "")}, cb, models.NoID, "")
	o := awaitSend(t, ch)

	assert.False(t, o.ok)
	assert.Equal(t, ErrNetwork, o.code)
	require.Len(t, o.errs, 3)
	assert.Contains(t, o.errs[0], "422")
	assert.Equal(t, []string{"Subject cannot be blank", "Tracker cannot be blank"}, o.errs[1:])
}

func TestSendTimeEntryTooShort(t *testing.T) {
	srv := newFakeRedmine(t)
	srv.reply("POST /time_entries.json", http.StatusCreated, `{"time_entry":{"id":30}}`)
	c := newTestClient(t, srv)

	cb, ch := collectSend()
	c.SendTimeEntry(models.TimeEntry{Hours: 0.009, Issue: models.Ref(101, "")}, cb, models.NoID, "")
	o := awaitSend(t, ch)
	assert.False(t, o.ok)
	assert.Equal(t, ErrTimeEntryTooShort, o.code)
	assert.Zero(t, srv.count(onPath(http.MethodPost, "/time_entries.json")))

	c.SendTimeEntry(models.TimeEntry{Hours: 0.01, Issue: models.Ref(101, "")}, cb, models.NoID, "")
	o = awaitSend(t, ch)
	assert.True(t, o.ok)
	assert.Equal(t, 30, o.id)
	assert.Equal(t, 1, srv.count(onPath(http.MethodPost, "/time_entries.json")))
}

func TestSendTimeEntryIncomplete(t *testing.T) {
	srv := newFakeRedmine(t)
	c := newTestClient(t, srv)

	cb, ch := collectSend()
	c.SendTimeEntry(models.TimeEntry{Hours: 1}, cb, models.NoID, "")
	o := awaitSend(t, ch)
	assert.Equal(t, ErrIncompleteData, o.code)
	assert.Zero(t, srv.count(onPath(http.MethodPost, "/time_entries.json")))

	// Updates may leave the references alone
	srv.reply("PUT /time_entries/30.json", http.StatusNoContent, ``)
	c.SendTimeEntry(models.TimeEntry{Hours: 1}, cb, models.SomeID(30), "")
	o = awaitSend(t, ch)
	assert.True(t, o.ok)
	assert.Equal(t, 1, srv.count(onPath(http.MethodPut, "/time_entries/30.json")))
}

func TestSendVersionGoesToProject(t *testing.T) {
	srv := newFakeRedmine(t)
	srv.reply("POST /projects/1/versions.json", http.StatusCreated, `{"version":{"id":9}}`)
	c := newTestClient(t, srv)

	cb, ch := collectSend()
	c.SendVersion(models.Version{Name: "1.0", Project: models.Ref(1, "")}, cb, models.NoID, "")
	o := awaitSend(t, ch)
	assert.True(t, o.ok)
	assert.Equal(t, 9, o.id)

	c.SendVersion(models.Version{Name: "orphan"}, cb, models.NoID, "")
	o = awaitSend(t, ch)
	assert.Equal(t, ErrIncompleteData, o.code)
}

func TestSendEnumerations(t *testing.T) {
	srv := newFakeRedmine(t)
	srv.reply("POST /enumerations/issue_priorities.json", http.StatusCreated, `{"issue_priority":{"id":12}}`)
	c := newTestClient(t, srv)

	cb, ch := collectSend()
	c.SendIssuePriority(models.Enumeration{Name: "Urgent"}, cb, models.NoID, "")
	o := awaitSend(t, ch)
	assert.True(t, o.ok)
	assert.Equal(t, 12, o.id)

	reqs := srv.matching(onPath(http.MethodPost, "/enumerations/issue_priorities.json"))
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"issue_priority":{"name":"Urgent"}}`, reqs[0].Body)
}

func TestSendWithoutConnection(t *testing.T) {
	c := NewClient("")
	t.Cleanup(func() { _ = c.Close() })

	cb, ch := collectSend()
	c.SendProject(models.Project{Name: "Tracker"}, cb, models.NoID, "")
	o := awaitSend(t, ch)
	assert.False(t, o.ok)
	assert.Equal(t, ErrNetwork, o.code)
	require.Len(t, o.errs, 1)
}
