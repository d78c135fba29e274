package handler

import (
	"github.com/coursecatalog/catalog-api/internal/core/domain"
	"github.com/coursecatalog/catalog-api/internal/core/ports"
)

// --- Request / Response types ---

// errorBody documents the error envelope written by the central error handler.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type batchRequest struct {
	Rows []domain.RawRow `json:"rows" validate:"required,min=1"`
}

type courseLinks struct {
	Self string `json:"self"`
}

type courseResponse struct {
	*domain.Course
	Links courseLinks `json:"_links"`
}

type listCoursesResponse struct {
	Items []courseResponse `json:"items"`
	Total int              `json:"total"`
}

type itemOutcomeResponse struct {
	Index    int            `json:"index"`
	CourseID string         `json:"courseId,omitempty"`
	Course   *domain.Course `json:"course,omitempty"`
	Kind     string         `json:"kind,omitempty"`
	Detail   string         `json:"detail,omitempty"`
}

type batchResponse struct {
	BatchID   string                `json:"batchId,omitempty"`
	Succeeded int                   `json:"succeeded"`
	Failed    int                   `json:"failed"`
	Items     []itemOutcomeResponse `json:"items"`
	// Error is set when the batch itself was aborted; Items then holds the
	// partial progress.
	Error string `json:"error,omitempty"`
}

type reconcileResponse struct {
	UserID  string   `json:"userId"`
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

func toCourseResponse(c *domain.Course) courseResponse {
	return courseResponse{Course: c, Links: courseLinks{Self: "/v1/courses/" + c.ID}}
}

func toBatchResponse(r *ports.BatchResult) batchResponse {
	resp := batchResponse{
		BatchID:   r.BatchID,
		Succeeded: r.Succeeded,
		Failed:    r.Failed,
		Items:     make([]itemOutcomeResponse, 0, len(r.Items)),
	}
	for _, it := range r.Items {
		resp.Items = append(resp.Items, itemOutcomeResponse{
			Index:    it.Index,
			CourseID: it.CourseID,
			Course:   it.Course,
			Kind:     it.Kind,
			Detail:   it.Detail,
		})
	}
	return resp
}

func toReconcileResponse(r *ports.ReconcileReport) reconcileResponse {
	added, removed := r.Added, r.Removed
	if added == nil {
		added = []string{}
	}
	if removed == nil {
		removed = []string{}
	}
	return reconcileResponse{UserID: r.UserID, Added: added, Removed: removed}
}
