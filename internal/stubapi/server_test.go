package stubapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-incident-report/pkg/client"
	"github.com/goliatone/go-incident-report/pkg/incident"
	"github.com/goliatone/go-incident-report/pkg/payload"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newStub(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(append([]Option{WithIDFunc(func() string { return "c-1" })}, opts...)...)
	require.NoError(t, err)
	h, err := s.Handler()
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return s, srv
}

func samplePayload(t *testing.T) *payload.Payload {
	t.Helper()
	p, err := payload.Build(incident.FormState{
		TypeOfAct:           "Unsafe Act",
		FirstName:           "Ada",
		LastName:            "Lovelace",
		EmploymentType:      "Employee",
		Date:                "2024-03-02",
		Time:                "09:15",
		AMPM:                "AM",
		Location:            "Bay 3",
		AreaName:            "Warehouse",
		ReportedToOfficials: "No",
		Details:             "Forklift reversing without a spotter",
	}, []incident.Attachment{
		{Name: "photo.png", MIMEType: "image/png", Data: []byte("png-bytes")},
	}, &incident.MailGroup{ID: "2", Name: "Facilities"})
	require.NoError(t, err)
	return p
}

func TestClientRoundTripAgainstStub(t *testing.T) {
	stub, srv := newStub(t, WithToken("secret"))
	c, err := client.New(srv.URL, client.WithToken("secret"), client.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	ctx := context.Background()

	groups, err := c.ListMailGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultMailGroups, groups)

	resp, err := c.CreateComplaint(ctx, samplePayload(t))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)

	var created complaintResponse
	require.NoError(t, json.Unmarshal(resp.Body, &created))
	assert.Equal(t, "c-1", created.ID)
	assert.Equal(t, "2024-03-02 09:15:00", created.IncidentDate)

	stored, ok := stub.Complaint("c-1")
	require.True(t, ok)
	assert.Equal(t, "1", stored.Fields[payload.KeyObservanceType])
	assert.Equal(t, "2", stored.Fields[payload.KeyMailGroupID])
	assert.Equal(t, payload.ComplainantEmpID, stored.Fields[payload.KeyComplainantEmpID])
	require.Len(t, stored.Files, 1)
	assert.Equal(t, StoredFile{Field: "file_1", Name: "photo.png", ContentType: "image/png", Size: 9}, stored.Files[0])

	_, err = c.CreateReviewAction(ctx, "c-1", client.ReviewAction{Action: "Spotter assigned", Status: "resolved"})
	require.NoError(t, err)
	stored, _ = stub.Complaint("c-1")
	assert.Equal(t, []client.ReviewAction{{Action: "Spotter assigned", Status: "resolved"}}, stored.Actions)
	assert.Len(t, stub.Complaints(), 1)
}

func TestBearerTokenRequired(t *testing.T) {
	_, srv := newStub(t, WithToken("secret"))
	c, err := client.New(srv.URL, client.WithToken("wrong"), client.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = c.ListMailGroups(context.Background())
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func multipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestCreateComplaintRejectsMissingFields(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	h, err := s.Handler()
	require.NoError(t, err)

	body, contentType := multipartBody(t, map[string]string{
		payload.KeyObservanceType: "1",
		payload.KeyLocation:       "Bay 3",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/complaints", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Missing, payload.KeyDescription)
	assert.Contains(t, resp.Missing, payload.KeyIncidentDate)
	assert.NotContains(t, resp.Missing, payload.KeyLocation)
	assert.Empty(t, s.Complaints())
}

func TestCreateComplaintRejectsBadValues(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	h, err := s.Handler()
	require.NoError(t, err)

	valid := samplePayload(t).Values()
	cases := map[string]func(map[string]string){
		"anonymous flag": func(v map[string]string) { v[payload.KeyIsAnonymous] = "yes" },
		"incident date":  func(v map[string]string) { v[payload.KeyIncidentDate] = "2024-03-02T09:15" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			fields := map[string]string{}
			for k, v := range valid {
				fields[k] = v
			}
			mutate(fields)
			body, contentType := multipartBody(t, fields)
			req := httptest.NewRequest(http.MethodPost, "/api/complaints", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		})
	}
}

func TestReviewActionErrors(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	h, err := s.Handler()
	require.NoError(t, err)

	post := func(path, body string) int {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNotFound, post("/api/complaints/nope/actions", `{"action":"x","status":"open"}`))
	assert.Equal(t, http.StatusUnprocessableEntity, post("/api/complaints/nope/actions", `{"action":"x","status":"done"}`))
	assert.Equal(t, http.StatusUnprocessableEntity, post("/api/complaints/nope/actions", `{"action":"","status":"open"}`))
	assert.Equal(t, http.StatusBadRequest, post("/api/complaints/nope/actions", `{`))
}

func TestServeStopsOnCancel(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/mail-groups")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestGinPath(t *testing.T) {
	assert.Equal(t, "/api/complaints/:id/actions", ginPath("/api/complaints/{id}/actions"))
	assert.Equal(t, "/api/mail-groups", ginPath("/api/mail-groups"))
}
