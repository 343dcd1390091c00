package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/MarcoPoloResearchLab/foodgram/internal/apperror"
	"github.com/gin-gonic/gin"
)

func newPaginationContext(target string) *gin.Context {
	gin.SetMode(gin.TestMode)
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	ctx.Request = httptest.NewRequest(http.MethodGet, target, http.NoBody)
	return ctx
}

func TestParsePagination(t *testing.T) {
	testCases := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
		wantField string
	}{
		{name: "defaults", query: "", wantPage: 1, wantLimit: 6},
		{name: "explicit", query: "?page=3&limit=10", wantPage: 3, wantLimit: 10},
		{name: "largest page", query: "?page=" + strconv.Itoa(maxPage), wantPage: maxPage, wantLimit: 6},
		{name: "zero page", query: "?page=0", wantField: "page"},
		{name: "page past cap", query: "?page=" + strconv.Itoa(maxPage+1), wantField: "page"},
		{name: "page near max int", query: "?page=9223372036854775807", wantField: "page"},
		{name: "limit too large", query: "?limit=101", wantField: "limit"},
		{name: "limit not a number", query: "?limit=ten", wantField: "limit"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got, err := parsePagination(newPaginationContext("/api/recipes/"+testCase.query), 6)
			if testCase.wantField != "" {
				var serviceErr *apperror.ServiceError
				if !errors.As(err, &serviceErr) || !errors.Is(err, apperror.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				if _, ok := serviceErr.Fields()[testCase.wantField]; !ok {
					t.Fatalf("expected %s field error, got %v", testCase.wantField, serviceErr.Fields())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.page != testCase.wantPage || got.limit != testCase.wantLimit {
				t.Fatalf("unexpected pagination %+v", got)
			}
		})
	}
}

func TestPaginationWindowAndLinksAtLargestPage(t *testing.T) {
	ctx := newPaginationContext("/api/recipes/?page=" + strconv.Itoa(maxPage) + "&limit=100")
	page, err := parsePagination(ctx, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	window := page.window()
	if window.Offset < 0 || window.Offset != (maxPage-1)*maxPageLimit {
		t.Fatalf("unexpected offset %d", window.Offset)
	}

	envelope := page.envelope(ctx, 5, []int{})
	if envelope.Next != nil {
		t.Fatalf("expected no next link past the total, got %q", *envelope.Next)
	}
	if envelope.Previous == nil {
		t.Fatalf("expected a previous link")
	}
}

func TestPaginationEnvelopeLinks(t *testing.T) {
	ctx := newPaginationContext("/api/recipes/?page=2&limit=2&tags=lunch")
	page, err := parsePagination(ctx, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	envelope := page.envelope(ctx, 5, []int{})
	if envelope.Next == nil || *envelope.Next != "http://example.com/api/recipes/?limit=2&page=3&tags=lunch" {
		t.Fatalf("unexpected next link %v", envelope.Next)
	}
	if envelope.Previous == nil || *envelope.Previous != "http://example.com/api/recipes/?limit=2&page=1&tags=lunch" {
		t.Fatalf("unexpected previous link %v", envelope.Previous)
	}
}
