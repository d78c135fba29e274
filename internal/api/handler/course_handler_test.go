package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/coursecatalog/catalog-api/internal/core/domain"
	"github.com/coursecatalog/catalog-api/internal/core/ports"
)

type stubCourseService struct {
	getFn       func(ctx context.Context, id string, who domain.Identity) (*domain.Course, error)
	listFn      func(ctx context.Context, who domain.Identity, owner string) ([]*domain.Course, error)
	addFn       func(ctx context.Context, row domain.RawRow, who domain.Identity) (*domain.Course, error)
	importFn    func(ctx context.Context, rows []domain.RawRow, who domain.Identity) (*ports.BatchResult, error)
	updateFn    func(ctx context.Context, id string, updates map[string]any, who domain.Identity) (*domain.Course, error)
	deleteFn    func(ctx context.Context, id string, who domain.Identity) error
	deleteAllFn func(ctx context.Context, who domain.Identity) (*ports.BatchResult, error)
	reconcileFn func(ctx context.Context, userID string, who domain.Identity) (*ports.ReconcileReport, error)
}

func (s *stubCourseService) Get(ctx context.Context, id string, who domain.Identity) (*domain.Course, error) {
	return s.getFn(ctx, id, who)
}

func (s *stubCourseService) List(ctx context.Context, who domain.Identity, owner string) ([]*domain.Course, error) {
	return s.listFn(ctx, who, owner)
}

func (s *stubCourseService) Add(ctx context.Context, row domain.RawRow, who domain.Identity) (*domain.Course, error) {
	return s.addFn(ctx, row, who)
}

func (s *stubCourseService) Import(ctx context.Context, rows []domain.RawRow, who domain.Identity) (*ports.BatchResult, error) {
	return s.importFn(ctx, rows, who)
}

func (s *stubCourseService) Update(ctx context.Context, id string, updates map[string]any, who domain.Identity) (*domain.Course, error) {
	return s.updateFn(ctx, id, updates, who)
}

func (s *stubCourseService) Delete(ctx context.Context, id string, who domain.Identity) error {
	return s.deleteFn(ctx, id, who)
}

func (s *stubCourseService) DeleteAll(ctx context.Context, who domain.Identity) (*ports.BatchResult, error) {
	return s.deleteAllFn(ctx, who)
}

func (s *stubCourseService) Reconcile(ctx context.Context, userID string, who domain.Identity) (*ports.ReconcileReport, error) {
	return s.reconcileFn(ctx, userID, who)
}

type stubRowReader struct {
	rows []domain.RawRow
	err  error
	got  []byte
}

func (r *stubRowReader) Read(src io.Reader) ([]domain.RawRow, error) {
	r.got, _ = io.ReadAll(src)
	return r.rows, r.err
}

// authed builds a context as the Auth middleware would leave it.
func authed(c echo.Context, uid, role string) echo.Context {
	c.Set("uid", uid)
	c.Set("role", role)
	return c
}

func sampleCourse(id, title string) *domain.Course {
	return &domain.Course{ID: id, Title: title, Instructor: "Jane Doe", Creator: "u1", Provider: "Udemy"}
}

func TestCourseHandler_RequiresIdentity(t *testing.T) {
	h := NewCourseHandler(&stubCourseService{}, nil, 0)

	c, _ := newJSONContext(http.MethodGet, "/v1/courses", "")
	if code := httpStatus(t, h.List(c)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestCourseHandler_List(t *testing.T) {
	svc := &stubCourseService{
		listFn: func(ctx context.Context, who domain.Identity, owner string) ([]*domain.Course, error) {
			if who.UserID != "u1" || who.IsAdmin || owner != "u2" {
				t.Fatalf("unexpected args: %+v %q", who, owner)
			}
			return []*domain.Course{sampleCourse("c1", "Go"), sampleCourse("c2", "Rust")}, nil
		},
	}
	h := NewCourseHandler(svc, nil, 0)

	c, rec := newJSONContext(http.MethodGet, "/v1/courses?owner=u2", "")
	if err := h.List(authed(c, "u1", "member")); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp struct {
		Items []map[string]any `json:"items"`
		Total int              `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Total != 2 || len(resp.Items) != 2 {
		t.Fatalf("unexpected list: %+v", resp)
	}
	if resp.Items[0]["title"] != "Go" {
		t.Fatalf("expected course fields inline, got %+v", resp.Items[0])
	}
	links, _ := resp.Items[0]["_links"].(map[string]any)
	if links["self"] != "/v1/courses/c1" {
		t.Fatalf("unexpected links: %+v", resp.Items[0]["_links"])
	}
}

func TestCourseHandler_Get_PassesServiceErrors(t *testing.T) {
	svc := &stubCourseService{
		getFn: func(ctx context.Context, id string, who domain.Identity) (*domain.Course, error) {
			return nil, domain.Errorf(domain.ErrForbidden, "not the owner")
		},
	}
	h := NewCourseHandler(svc, nil, 0)

	c, _ := newJSONContext(http.MethodGet, "/v1/courses/c1", "")
	c.SetParamNames("id")
	c.SetParamValues("c1")

	if err := h.Get(authed(c, "u2", "member")); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCourseHandler_Add_KeepsLooseTypes(t *testing.T) {
	svc := &stubCourseService{
		addFn: func(ctx context.Context, row domain.RawRow, who domain.Identity) (*domain.Course, error) {
			if _, ok := row["Hours"].(json.Number); !ok {
				t.Fatalf("expected json.Number for Hours, got %T", row["Hours"])
			}
			if row["Title"] != "Go" {
				t.Fatalf("unexpected row: %+v", row)
			}
			return sampleCourse("c1", "Go"), nil
		},
	}
	h := NewCourseHandler(svc, nil, 0)

	c, rec := newJSONContext(http.MethodPost, "/v1/courses", `{"Title":"Go","Instructor":"Jane Doe","Hours":12.5}`)
	if err := h.Add(authed(c, "u1", "member")); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestCourseHandler_Add_InvalidBody(t *testing.T) {
	h := NewCourseHandler(&stubCourseService{}, nil, 0)

	c, _ := newJSONContext(http.MethodPost, "/v1/courses", `[1,2`)
	if code := httpStatus(t, h.Add(authed(c, "u1", "member"))); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestCourseHandler_Batch(t *testing.T) {
	svc := &stubCourseService{
		importFn: func(ctx context.Context, rows []domain.RawRow, who domain.Identity) (*ports.BatchResult, error) {
			if len(rows) != 2 {
				t.Fatalf("expected 2 rows, got %d", len(rows))
			}
			res := &ports.BatchResult{BatchID: "b1"}
			res.Record(ports.ItemOutcome{Index: 0, CourseID: "c1", Course: sampleCourse("c1", "Go")})
			res.Record(ports.ItemOutcome{Index: 1, Kind: domain.KindConflict, Detail: "duplicate"})
			return res, nil
		},
	}
	h := NewCourseHandler(svc, nil, 0)

	c, rec := newJSONContext(http.MethodPost, "/v1/courses/batch",
		`{"rows":[{"Title":"Go","Instructor":"Jane"},{"Title":"Go","Instructor":"Jane"}]}`)
	if err := h.Batch(authed(c, "u1", "member")); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp batchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.BatchID != "b1" || resp.Succeeded != 1 || resp.Failed != 1 {
		t.Fatalf("unexpected counters: %+v", resp)
	}
	if resp.Items[1].Kind != domain.KindConflict {
		t.Fatalf("expected conflict on item 1, got %+v", resp.Items[1])
	}
}

func TestCourseHandler_Batch_EmptyRows(t *testing.T) {
	h := NewCourseHandler(&stubCourseService{}, nil, 0)

	c, _ := newJSONContext(http.MethodPost, "/v1/courses/batch", `{"rows":[]}`)
	if code := httpStatus(t, h.Batch(authed(c, "u1", "member"))); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestCourseHandler_Batch_RowCap(t *testing.T) {
	called := false
	svc := &stubCourseService{
		importFn: func(ctx context.Context, rows []domain.RawRow, who domain.Identity) (*ports.BatchResult, error) {
			called = true
			return &ports.BatchResult{}, nil
		},
	}
	h := NewCourseHandler(svc, nil, 2)

	c, _ := newJSONContext(http.MethodPost, "/v1/courses/batch", `{"rows":[{"Title":"a"},{"Title":"b"},{"Title":"c"}]}`)
	if code := httpStatus(t, h.Batch(authed(c, "u1", "member"))); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if called {
		t.Fatal("service must not see an oversized batch")
	}

	c, rec := newJSONContext(http.MethodPost, "/v1/courses/batch", `{"rows":[{"Title":"a"},{"Title":"b"}]}`)
	if err := h.Batch(authed(c, "u1", "member")); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || !called {
		t.Fatalf("expected a batch at the cap to pass, got %d", rec.Code)
	}
}

func TestCourseHandler_Batch_AbortedReportsPartialProgress(t *testing.T) {
	svc := &stubCourseService{
		importFn: func(ctx context.Context, rows []domain.RawRow, who domain.Identity) (*ports.BatchResult, error) {
			res := &ports.BatchResult{BatchID: "b2"}
			res.Record(ports.ItemOutcome{Index: 0, CourseID: "c1"})
			res.Record(ports.ItemOutcome{Index: 1, Kind: domain.KindBatchAborted, Detail: "not processed"})
			return res, &domain.Error{Kind: domain.ErrBatchAborted, Detail: "import dispatch failed"}
		},
	}
	h := NewCourseHandler(svc, nil, 0)

	c, rec := newJSONContext(http.MethodPost, "/v1/courses/batch", `{"rows":[{"Title":"a"},{"Title":"b"}]}`)
	if err := h.Batch(authed(c, "u1", "member")); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	var resp batchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Error != "import dispatch failed" || resp.Succeeded != 1 {
		t.Fatalf("unexpected aborted response: %+v", resp)
	}
}

func TestCourseHandler_Import(t *testing.T) {
	reader := &stubRowReader{rows: []domain.RawRow{{"Title": "Go", "Instructor": "Jane"}}}
	svc := &stubCourseService{
		importFn: func(ctx context.Context, rows []domain.RawRow, who domain.Identity) (*ports.BatchResult, error) {
			res := &ports.BatchResult{BatchID: "b3"}
			for i := range rows {
				res.Record(ports.ItemOutcome{Index: i, CourseID: "c1"})
			}
			return res, nil
		},
	}
	h := NewCourseHandler(svc, reader, 0)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "courses.xlsx")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("workbook-bytes"))
	_ = mw.Close()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/courses/import", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	c := authed(e.NewContext(req, rec), "u1", "member")

	if err := h.Import(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if string(reader.got) != "workbook-bytes" {
		t.Fatalf("reader got %q", reader.got)
	}
}

func TestCourseHandler_Import_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		h := NewCourseHandler(&stubCourseService{}, &stubRowReader{}, 0)
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/v1/courses/import", strings.NewReader(""))
		rec := httptest.NewRecorder()
		c := authed(e.NewContext(req, rec), "u1", "member")

		if code := httpStatus(t, h.Import(c)); code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", code)
		}
	})

	t.Run("unreadable workbook", func(t *testing.T) {
		reader := &stubRowReader{err: domain.Errorf(domain.ErrMalformedInput, "not a workbook")}
		h := NewCourseHandler(&stubCourseService{}, reader, 0)

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, _ := mw.CreateFormFile("file", "courses.xlsx")
		_, _ = part.Write([]byte("garbage"))
		_ = mw.Close()

		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/v1/courses/import", &body)
		req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
		c := authed(e.NewContext(req, httptest.NewRecorder()), "u1", "member")

		if err := h.Import(c); !errors.Is(err, domain.ErrMalformedInput) {
			t.Fatalf("expected malformed input, got %v", err)
		}
	})
}

func TestCourseHandler_Update(t *testing.T) {
	svc := &stubCourseService{
		updateFn: func(ctx context.Context, id string, updates map[string]any, who domain.Identity) (*domain.Course, error) {
			if id != "c1" || updates["notes"] != "rewatch" {
				t.Fatalf("unexpected args: %s %+v", id, updates)
			}
			course := sampleCourse(id, "Go")
			course.Notes = "rewatch"
			return course, nil
		},
	}
	h := NewCourseHandler(svc, nil, 0)

	c, rec := newJSONContext(http.MethodPatch, "/v1/courses/c1", `{"notes":"rewatch","creator":"u9"}`)
	c.SetParamNames("id")
	c.SetParamValues("c1")

	if err := h.Update(authed(c, "u1", "member")); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCourseHandler_Delete(t *testing.T) {
	var deleted string
	svc := &stubCourseService{
		deleteFn: func(ctx context.Context, id string, who domain.Identity) error {
			deleted = id
			return nil
		},
	}
	h := NewCourseHandler(svc, nil, 0)

	c, rec := newJSONContext(http.MethodDelete, "/v1/courses/c1", "")
	c.SetParamNames("id")
	c.SetParamValues("c1")

	if err := h.Delete(authed(c, "u1", "member")); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent || deleted != "c1" {
		t.Fatalf("expected 204 for c1, got %d for %q", rec.Code, deleted)
	}
}

func TestCourseHandler_DeleteAll(t *testing.T) {
	svc := &stubCourseService{
		deleteAllFn: func(ctx context.Context, who domain.Identity) (*ports.BatchResult, error) {
			res := &ports.BatchResult{}
			res.Record(ports.ItemOutcome{Index: 0, CourseID: "c1"})
			return res, nil
		},
	}
	h := NewCourseHandler(svc, nil, 0)

	c, rec := newJSONContext(http.MethodDelete, "/v1/courses", "")
	if err := h.DeleteAll(authed(c, "u1", "member")); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCourseHandler_Reconcile(t *testing.T) {
	svc := &stubCourseService{
		reconcileFn: func(ctx context.Context, userID string, who domain.Identity) (*ports.ReconcileReport, error) {
			if !who.IsAdmin || userID != "u2" {
				t.Fatalf("unexpected args: %s %+v", userID, who)
			}
			return &ports.ReconcileReport{UserID: userID, Added: []string{"c9"}}, nil
		},
	}
	h := NewCourseHandler(svc, nil, 0)

	c, rec := newJSONContext(http.MethodPost, "/v1/admin/users/u2/reconcile", "")
	c.SetParamNames("id")
	c.SetParamValues("u2")

	if err := h.Reconcile(authed(c, "root", domain.RoleAdmin)); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp reconcileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Added) != 1 || resp.Removed == nil {
		t.Fatalf("unexpected report: %+v", resp)
	}
}
