package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-incident-report/pkg/incident"
	"github.com/goliatone/go-incident-report/pkg/payload"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, append(opts, WithHTTPClient(srv.Client()))...)
	require.NoError(t, err)
	return c
}

func TestListMailGroupsAcceptsArrayAndWrappedData(t *testing.T) {
	bodies := []string{
		`[{"id": 1, "name": "EHS", "key": "ehs"}, {"id": "2", "name": "Ops"}]`,
		`{"data": [{"id": 1, "name": "EHS", "key": "ehs"}, {"id": "2", "name": "Ops"}]}`,
	}
	want := []incident.MailGroup{
		{ID: "1", Name: "EHS", Key: "ehs"},
		{ID: "2", Name: "Ops"},
	}
	for _, body := range bodies {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/api/mail-groups", r.URL.Path)
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
			_, _ = io.WriteString(w, body)
		}, WithToken("secret"))

		groups, err := c.ListMailGroups(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, groups)
	}
}

func TestListMailGroupsWithoutToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[]`)
	})
	groups, err := c.ListMailGroups(context.Background())
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func testPayload(t *testing.T) *payload.Payload {
	t.Helper()
	p, err := payload.Build(incident.FormState{
		TypeOfAct:           "Unsafe Act",
		EmploymentType:      "Employee",
		Date:                "2024-01-05",
		Time:                "11:30",
		AMPM:                "PM",
		Location:            "Dock 4",
		AreaName:            "Warehouse",
		ReportedToOfficials: "No",
		Details:             "Spill near the loading bay",
	}, []incident.Attachment{{Name: "a.png", MIMEType: "image/png", Data: []byte("x")}}, nil)
	require.NoError(t, err)
	return p
}

func TestCreateComplaintPostsMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/complaints", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "2024-01-05 23:30:00", r.FormValue("incident_date"))
		assert.Equal(t, "NA", r.FormValue("complainant_emp_id"))
		if _, fh, err := r.FormFile("file_1"); assert.NoError(t, err) {
			assert.Equal(t, "a.png", fh.Filename)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"c-1"}`)
	}, WithRequestIDFunc(func() string { return "req-1" }))

	resp, err := c.CreateComplaint(context.Background(), testPayload(t))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.JSONEq(t, `{"id":"c-1"}`, string(resp.Body))
}

func TestCreateComplaintSurfacesServerBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"message":"location is invalid"}`)
	})

	_, err := c.CreateComplaint(context.Background(), testPayload(t))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, `{"message":"location is invalid"}`, apiErr.Body)
	assert.False(t, errors.Is(err, ErrNetwork))
}

func TestCreateComplaintNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url)
	require.NoError(t, err)
	_, err = c.CreateComplaint(context.Background(), testPayload(t))
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestCreateReviewAction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/complaints/c-7/actions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var got ReviewAction
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, ReviewAction{Action: "Barrier installed", Status: "resolved"}, got)
		w.WriteHeader(http.StatusCreated)
	})

	_, err := c.CreateReviewAction(context.Background(), "c-7", ReviewAction{Action: "Barrier installed", Status: "resolved"})
	require.NoError(t, err)

	_, err = c.CreateReviewAction(context.Background(), " ", ReviewAction{})
	assert.Error(t, err)
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("/api")
	assert.Error(t, err)
}
