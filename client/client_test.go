package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mlopez/surveyforge/model"
)

func TestAPIErrorCarriesServerDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"detail": "link not valid"})
	}))
	t.Cleanup(srv.Close)

	_, err := New(srv.URL).GetSurvey(context.Background(), "s1")
	apiErr := &APIError{}
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusForbidden || apiErr.Detail != "link not valid" {
		t.Errorf("APIError = %+v", apiErr)
	}
	if apiErr.Error() != "api: 403 link not valid" {
		t.Errorf("Error() = %q", apiErr.Error())
	}
}

func TestAPIErrorFallsBackOnUnparsableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	_, err := New(srv.URL).ListSurveys(context.Background())
	apiErr := &APIError{}
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Detail != genericErrorDetail {
		t.Errorf("Detail = %q, want %q", apiErr.Detail, genericErrorDetail)
	}
}

func TestListSurveysUnwrapsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/surveys" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"surveys": []model.Survey{{ID: "s1", Title: "One"}, {ID: "s2", Title: "Two"}},
		})
	}))
	t.Cleanup(srv.Close)

	surveys, err := New(srv.URL).ListSurveys(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(surveys) != 2 || surveys[0].ID != "s1" || surveys[1].Title != "Two" {
		t.Errorf("surveys = %+v", surveys)
	}
}

func TestLoginInstallsBearerToken(t *testing.T) {
	var sawAuthorization string
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok123"})
	})
	mux.HandleFunc("/surveys", func(w http.ResponseWriter, r *http.Request) {
		sawAuthorization = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"surveys": []model.Survey{}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := New(srv.URL)
	if err := c.Login(context.Background(), "admin", "hunter2"); err != nil {
		t.Fatalf("Login() = %s", err)
	}
	if _, err := c.ListSurveys(context.Background()); err != nil {
		t.Fatal(err)
	}
	if sawAuthorization != "Bearer tok123" {
		t.Errorf("Authorization = %q, want Bearer tok123", sawAuthorization)
	}
}

func TestLoginRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL)
	err := c.Login(context.Background(), "admin", "wrong")
	apiErr := &APIError{}
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Login() = %v, want 401 *APIError", err)
	}
	if c.token != "" {
		t.Error("failed login must not install a token")
	}
}

func TestDownloadSurveyPDFFilename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="customer-survey_2024-06-01.pdf"`)
		w.Write([]byte("%PDF-1.4 fake"))
	}))
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	filename, err := New(srv.URL).DownloadSurveyPDF(context.Background(), "s1", &buf)
	if err != nil {
		t.Fatal(err)
	}
	if filename != "customer-survey_2024-06-01.pdf" {
		t.Errorf("filename = %q", filename)
	}
	if !strings.HasPrefix(buf.String(), "%PDF") {
		t.Errorf("body = %q, want PDF bytes", buf.String())
	}
}

func TestUploadFileSendsMultipartPart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %s", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Filename != "logo.png" {
			t.Errorf("filename = %q", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "image/png" {
			t.Errorf("part content type = %q", ct)
		}
		content := make([]byte, 4)
		file.Read(content)
		if string(content) != "\x89PNG" {
			t.Errorf("content = %q", content)
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"url": "/files/abc.png", "filename": "abc.png"})
	}))
	t.Cleanup(srv.Close)

	uploaded, err := New(srv.URL).UploadFile(context.Background(), "logo.png", "image/png", strings.NewReader("\x89PNG fake image"))
	if err != nil {
		t.Fatal(err)
	}
	if uploaded.URL != "/files/abc.png" || uploaded.Filename != "abc.png" {
		t.Errorf("uploaded = %+v", uploaded)
	}
}

func TestValidateInvitationQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/invitations/validate" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]bool{"valid": r.URL.Query().Get("token") == "good"})
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL)
	if valid, err := c.ValidateInvitation(context.Background(), "good"); err != nil || !valid {
		t.Errorf("ValidateInvitation(good) = %v, %v", valid, err)
	}
	if valid, err := c.ValidateInvitation(context.Background(), "bad"); err != nil || valid {
		t.Errorf("ValidateInvitation(bad) = %v, %v", valid, err)
	}
}
