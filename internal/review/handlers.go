package review

import (
	"encoding/json"
	"net/http"
)

// Submit task completion (POST /api/tasks/{taskID}/submissions/{telegramID}).
func (s *Service) HandleCreateSubmission(w http.ResponseWriter, r *http.Request, params SubmitParams) {
	sub, err := s.CreateSubmission(r.Context(), params.TelegramID, params.TaskID, params.ScreenshotURL)
	if err != nil {
		ErrorHandlerFunc(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, r, sub)
}

// Submission history (GET /api/tasks/user/{telegramID}/submissions).
func (s *Service) HandleUserSubmissions(w http.ResponseWriter, r *http.Request, params UserParams) {
	submissions, err := s.UserSubmissions(r.Context(), params.TelegramID)
	if err != nil {
		ErrorHandlerFunc(w, r, err)
		return
	}

	writeJSON(w, r, submissions)
}

// Admin review queue (GET /api/admin/submissions/pending).
func (s *Service) HandlePendingSubmissions(w http.ResponseWriter, r *http.Request) {
	submissions, err := s.PendingSubmissions(r.Context())
	if err != nil {
		ErrorHandlerFunc(w, r, err)
		return
	}

	writeJSON(w, r, submissions)
}

// Approve or reject a submission (POST /api/admin/submissions/{id}/review).
func (s *Service) HandleReviewSubmission(w http.ResponseWriter, r *http.Request, params ReviewParams) {
	sub, err := s.ReviewSubmission(r.Context(), params.ID, params.Status, params.AdminReview, params.AdjustedAmount)
	if err != nil {
		ErrorHandlerFunc(w, r, err)
		return
	}

	writeJSON(w, r, sub)
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ErrorHandlerFunc(w, r, err)
	}
}
