package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medhelp/medhelp/internal/platform/auth"
)

func doRequest(t *testing.T, h echo.HandlerFunc, method, target, body string, claims *auth.Claims, pathParams map[string]string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for k, v := range pathParams {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	c.SetRequest(req.WithContext(auth.WithIdentity(req.Context(), claims)))
	return rec, h(c)
}

func statusOf(rec *httptest.ResponseRecorder, err error) int {
	if err != nil {
		if httpErr, ok := err.(*echo.HTTPError); ok {
			return httpErr.Code
		}
		return http.StatusInternalServerError
	}
	return rec.Code
}

func TestHandler_Book(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	doc := env.dir.add(true)
	env.addWindow(doc.ID, "Monday", mustTime(t, "09:00"), mustTime(t, "17:00"))
	patient := &auth.Claims{Role: auth.RoleUser}
	patient.Subject = uuid.New().String()

	bookBody := func(doctorID uuid.UUID, clock string) string {
		return fmt.Sprintf(`{"doctor_id":%q,"appointment_date":%q,"appointment_time":%q,"appointment_type":"IN_PERSON"}`,
			doctorID.String(), DateOf(testNow).String(), clock)
	}

	rec, err := doRequest(t, h.Book, http.MethodPost, "/appointments/book", bookBody(doc.ID, "10:00"), patient, nil)
	if got := statusOf(rec, err); got != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", got, err)
	}
	var resp struct {
		AppointmentID string `json:"appointment_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.AppointmentID == "" {
		t.Error("expected appointment_id in response")
	}

	// Same slot again: conflict.
	rec, err = doRequest(t, h.Book, http.MethodPost, "/appointments/book", bookBody(doc.ID, "10:00"), patient, nil)
	if got := statusOf(rec, err); got != http.StatusConflict {
		t.Errorf("expected 409, got %d", got)
	}

	// Outside window: validation failure.
	rec, err = doRequest(t, h.Book, http.MethodPost, "/appointments/book", bookBody(doc.ID, "08:00"), patient, nil)
	if got := statusOf(rec, err); got != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", got)
	}

	// Unknown doctor.
	rec, err = doRequest(t, h.Book, http.MethodPost, "/appointments/book", bookBody(uuid.New(), "10:00"), patient, nil)
	if got := statusOf(rec, err); got != http.StatusNotFound {
		t.Errorf("expected 404, got %d", got)
	}
}

func TestHandler_UpdateStatus(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	doc := env.dir.add(true)
	env.addWindow(doc.ID, "Monday", mustTime(t, "09:00"), mustTime(t, "17:00"))
	appt := bookPending(t, env, doc, "10:00")

	doctorClaims := &auth.Claims{Role: auth.RoleDoctor, Verified: true}
	doctorClaims.Subject = doc.UserID.String()

	rec, err := doRequest(t, h.UpdateStatus, http.MethodPut, "/appointments/"+appt.ID.String()+"/status",
		`{"status":"CONFIRMED"}`, doctorClaims, map[string]string{"id": appt.ID.String()})
	if got := statusOf(rec, err); got != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", got, err)
	}

	// Confirming again is an invalid transition.
	rec, err = doRequest(t, h.UpdateStatus, http.MethodPut, "/appointments/"+appt.ID.String()+"/status",
		`{"status":"CONFIRMED"}`, doctorClaims, map[string]string{"id": appt.ID.String()})
	if got := statusOf(rec, err); got != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", got)
	}

	// A stranger is forbidden.
	stranger := &auth.Claims{Role: auth.RoleUser}
	stranger.Subject = uuid.New().String()
	rec, err = doRequest(t, h.UpdateStatus, http.MethodPut, "/appointments/"+appt.ID.String()+"/status",
		`{"status":"CANCELLED"}`, stranger, map[string]string{"id": appt.ID.String()})
	if got := statusOf(rec, err); got != http.StatusForbidden {
		t.Errorf("expected 403, got %d", got)
	}

	// Unknown appointment.
	missing := uuid.New().String()
	rec, err = doRequest(t, h.UpdateStatus, http.MethodPut, "/appointments/"+missing+"/status",
		`{"status":"CONFIRMED"}`, doctorClaims, map[string]string{"id": missing})
	if got := statusOf(rec, err); got != http.StatusNotFound {
		t.Errorf("expected 404, got %d", got)
	}
}

func TestHandler_ListMine_RunsSweep(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	doc := env.dir.add(true)
	env.addWindow(doc.ID, "Monday", mustTime(t, "09:00"), mustTime(t, "17:00"))
	appt := bookPending(t, env, doc, "10:00")
	if _, err := env.svc.UpdateStatus(context.Background(), appt.ID, doc.UserID, StatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	env.svc.now = func() time.Time { return testNow.Add(3 * time.Hour) }

	patient := &auth.Claims{Role: auth.RoleUser}
	patient.Subject = appt.PatientID.String()
	rec, err := doRequest(t, h.ListMine, http.MethodGet, "/appointments", "", patient, nil)
	if got := statusOf(rec, err); got != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", got, err)
	}

	var items []Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(items) != 1 || items[0].Status != StatusCompleted {
		t.Errorf("expected one COMPLETED appointment after sweep, got %+v", items)
	}
}
