package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"cusext/activity"
	"cusext/auth"
	"cusext/dberr"
	"cusext/disagreement"
)

type stubRecords struct {
	items     []disagreement.Summary
	detail    disagreement.Detail
	err       error
	gotScope  disagreement.Scope
	gotForm   disagreement.Form
	gotActor  string
	deletedNo string
}

func (s *stubRecords) List(_ context.Context, _ string, scope disagreement.Scope) ([]disagreement.Summary, error) {
	s.gotScope = scope
	return s.items, s.err
}

func (s *stubRecords) Get(_ context.Context, _ string, scope disagreement.Scope) (disagreement.Detail, error) {
	s.gotScope = scope
	return s.detail, s.err
}

func (s *stubRecords) Create(_ context.Context, form disagreement.Form, actorID string) (disagreement.Detail, error) {
	s.gotForm, s.gotActor = form, actorID
	return s.detail, s.err
}

func (s *stubRecords) Update(_ context.Context, form disagreement.Form, actorID string) (disagreement.Detail, error) {
	s.gotForm, s.gotActor = form, actorID
	return s.detail, s.err
}

func (s *stubRecords) Delete(_ context.Context, recordNumber string) error {
	s.deletedNo = recordNumber
	return s.err
}

type stubActivities struct {
	deleted activity.DeleteResult
	err     error
}

func (s *stubActivities) Create(_ context.Context, a activity.Activity, _ string) (activity.Activity, error) {
	return a, s.err
}

func (s *stubActivities) Get(_ context.Context, id string) (activity.Activity, error) {
	return activity.Activity{ID: id}, s.err
}

func (s *stubActivities) Delete(_ context.Context, id string) (activity.DeleteResult, error) {
	s.deleted.ActivityID = id
	return s.deleted, s.err
}

type stubAuth struct {
	operator string
	loginErr error
}

func (s *stubAuth) Login(_ context.Context, req auth.LoginRequest) (auth.LoginResult, error) {
	if s.loginErr != nil {
		return auth.LoginResult{}, s.loginErr
	}
	return auth.LoginResult{Token: "token-for-" + req.OperatorID}, nil
}

func (s *stubAuth) VerifyToken(token string) (string, error) {
	if token != "good" {
		return "", auth.ErrInvalidToken
	}
	return s.operator, nil
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func newTestServer(records *stubRecords) *Server {
	return &Server{
		records:    records,
		activities: &stubActivities{deleted: activity.DeleteResult{RecordsDeleted: 2}},
		auth:       &stubAuth{operator: "OPE001"},
		db:         stubPinger{},
	}
}

func serve(s *Server, method, target, body string, authed bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if authed {
		req.Header.Set("Authorization", "Bearer good")
	}
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	return rec
}

func TestHandleListRecords_Success(t *testing.T) {
	records := &stubRecords{items: []disagreement.Summary{{RecordNumber: "EN1"}, {RecordNumber: "EN2"}}}
	rec := serve(newTestServer(records), http.MethodGet, "/api/activities/ACT-1/disagreements?scope=hq", "", false)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		Items []disagreement.Summary `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Items) != 2 || payload.Items[1].RecordNumber != "EN2" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if records.gotScope != disagreement.ScopeHeadquarters {
		t.Fatalf("expected hq scope, got %s", records.gotScope)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestHandleListRecords_BadScope(t *testing.T) {
	rec := serve(newTestServer(&stubRecords{}), http.MethodGet, "/api/activities/ACT-1/disagreements?scope=region", "", false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleGetRecord_NotFound(t *testing.T) {
	rec := serve(newTestServer(&stubRecords{err: disagreement.ErrNotFound}), http.MethodGet, "/api/disagreements/EN404", "", false)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleCreateRecord_RequiresToken(t *testing.T) {
	records := &stubRecords{}
	rec := serve(newTestServer(records), http.MethodPost, "/api/disagreements", `{"activity_id":"ACT-1"}`, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if records.gotActor != "" {
		t.Fatal("service must not be called without a token")
	}
}

func TestHandleCreateRecord_UsesTokenOperator(t *testing.T) {
	records := &stubRecords{detail: disagreement.Detail{RecordNumber: "EN10"}}
	body := `{"activity_id":"ACT-100","subject":"s1","no_contact":"Y","memo":"m1","competitors":[{"company":"CompA","product":"ProdA"},{},{}]}`
	rec := serve(newTestServer(records), http.MethodPost, "/api/disagreements", body, true)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if records.gotActor != "OPE001" {
		t.Fatalf("expected actor from token, got %q", records.gotActor)
	}
	if records.gotForm.Competitors[0].Company != "CompA" || records.gotForm.ActivityID != "ACT-100" {
		t.Fatalf("unexpected form: %+v", records.gotForm)
	}
	var d disagreement.Detail
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if d.RecordNumber != "EN10" {
		t.Fatalf("expected EN10, got %q", d.RecordNumber)
	}
}

func TestHandleCreateRecord_ValidationError(t *testing.T) {
	records := &stubRecords{err: disagreement.ErrInvalidForm}
	rec := serve(newTestServer(records), http.MethodPost, "/api/disagreements", `{"activity_id":""}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = serve(newTestServer(records), http.MethodPost, "/api/disagreements", `{"bogus":1}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestHandleUpdateRecord_TakesNumberFromPath(t *testing.T) {
	records := &stubRecords{}
	rec := serve(newTestServer(records), http.MethodPut, "/api/disagreements/EN7", `{"record_number":"EN999","subject":"s2"}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if records.gotForm.RecordNumber != "EN7" {
		t.Fatalf("expected record number from path, got %q", records.gotForm.RecordNumber)
	}
}

func TestHandleDeleteRecord(t *testing.T) {
	records := &stubRecords{}
	rec := serve(newTestServer(records), http.MethodDelete, "/api/disagreements/EN3", "", true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if records.deletedNo != "EN3" {
		t.Fatalf("expected EN3 deleted, got %q", records.deletedNo)
	}
}

func TestHandleDeleteActivity(t *testing.T) {
	rec := serve(newTestServer(&stubRecords{}), http.MethodDelete, "/api/activities/ACT-1", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res activity.DeleteResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.ActivityID != "ACT-1" || res.RecordsDeleted != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	s := newTestServer(&stubRecords{})
	s.auth = &stubAuth{loginErr: auth.ErrInvalidCredentials}
	rec := serve(s, http.MethodPost, "/api/operators/login", `{"operator_id":"OPE001","password":"x"}`, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleErrors_DataAccess(t *testing.T) {
	transient := dberr.Classify("disagreement: list", &pgconn.PgError{Code: "57P01"})
	rec := serve(newTestServer(&stubRecords{err: transient}), http.MethodGet, "/api/activities/ACT-1/disagreements", "", false)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	permanent := dberr.Classify("disagreement: list", errors.New("boom"))
	rec = serve(newTestServer(&stubRecords{err: permanent}), http.MethodGet, "/api/activities/ACT-1/disagreements", "", false)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var payload errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Code != "E0003" || strings.Contains(payload.Error, "boom") {
		t.Fatalf("unexpected error payload: %+v", payload)
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(&stubRecords{})
	if rec := serve(s, http.MethodGet, "/healthz", "", false); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	s.db = stubPinger{err: errors.New("down")}
	if rec := serve(s, http.MethodGet, "/healthz", "", false); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
