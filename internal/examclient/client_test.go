package examclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cgpaplus/exam-core/internal/model"
	"github.com/google/uuid"
)

func writeEnvelope(w http.ResponseWriter, status int, data interface{}, code, message string) {
	body := map[string]interface{}{"data": data, "metadata": map[string]string{"request_id": "r"}}
	if code != "" {
		body["error"] = map[string]string{"code": code, "message": message}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestSubmitSendsBodyAndToken(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody model.SubmitExamRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		writeEnvelope(w, http.StatusOK, model.SubmitExamResponse{
			ResultSummary: model.ResultSummary{TotalCorrect: 3, TotalQuestions: 72, Accuracy: 4.2, TimeTakenSeconds: 61},
			Message:       "Exam submitted successfully",
		}, "", "")
	}))
	defer srv.Close()

	started := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	c := New(srv.URL+"/api/", "tok")
	res, err := c.Submit(context.Background(), model.SubmitExamRequest{
		Answers:   []model.SubmittedAnswer{{QuestionID: "R1_FCP_P1_Q1", SelectedOption: "C"}},
		StartedAt: &started,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if gotAuth != "Bearer tok" || gotPath != "/api/exam/submit" {
		t.Errorf("auth=%q path=%q", gotAuth, gotPath)
	}
	if len(gotBody.Answers) != 1 || gotBody.StartedAt == nil || !gotBody.StartedAt.Equal(started) {
		t.Errorf("body = %+v", gotBody)
	}
	if res.TotalCorrect != 3 || res.TimeTakenSeconds != 61 {
		t.Errorf("result = %+v", res)
	}
}

func TestErrorEnvelopeBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusConflict, nil, "ALREADY_SUBMITTED", "Exam already submitted.")
	}))
	defer srv.Close()

	_, err := New(srv.URL, "tok").Submit(context.Background(), model.SubmitExamRequest{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.Code != "ALREADY_SUBMITTED" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if err.Error() != "Exam already submitted." {
		t.Errorf("message = %q, want pass-through", err.Error())
	}
	if !HasCode(err, "ALREADY_SUBMITTED") || HasCode(err, "NOT_FOUND") {
		t.Error("HasCode mismatch")
	}
}

func TestNonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := New(srv.URL, "").UpdateProgress(context.Background(), model.UpdateProgressRequest{AnsweredCount: 1})

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway || apiErr.Message != "Bad Gateway" {
		t.Errorf("err = %v", err)
	}
}

func TestAdminCalls(t *testing.T) {
	archiveID := uuid.New()
	mux := http.NewServeMux()
	mux.HandleFunc("/exam/live", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, model.LiveView{ActiveCount: 2, CompletedCount: 1,
			Active: []model.ActiveParticipant{{}, {}}, Completed: []model.RankedResult{{Rank: 1}}}, "", "")
	})
	mux.HandleFunc("/exam/reset", func(w http.ResponseWriter, r *http.Request) {
		var req model.ResetExamRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeEnvelope(w, http.StatusOK, model.ResetExamResponse{ArchivedCount: 1, ArchiveID: archiveID, Message: req.Label}, "", "")
	})
	mux.HandleFunc("/exam/history/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/exam/history/"+archiveID.String() {
			writeEnvelope(w, http.StatusNotFound, nil, "NOT_FOUND", "Resource not found.")
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]string{"message": "Archive deleted"}, "", "")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, "admin")
	ctx := context.Background()

	view, err := c.LiveView(ctx)
	if err != nil || view.ActiveCount != 2 || len(view.Completed) != 1 {
		t.Fatalf("LiveView = %+v, %v", view, err)
	}

	reset, err := c.Reset(ctx, "Batch B")
	if err != nil || reset.ArchiveID != archiveID || reset.Message != "Batch B" {
		t.Fatalf("Reset = %+v, %v", reset, err)
	}

	if err := c.DeleteArchive(ctx, archiveID); err != nil {
		t.Errorf("DeleteArchive: %v", err)
	}
	if err := c.DeleteArchive(ctx, uuid.New()); !HasCode(err, "NOT_FOUND") {
		t.Errorf("DeleteArchive(unknown) = %v", err)
	}
}
