package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestIsValidUserID(t *testing.T) {
	valid := []string{"alice", "user-42", "bot_007", "a.b@example.com", "U"}
	for _, id := range valid {
		if !IsValidUserID(id) {
			t.Errorf("expected %q to be valid", id)
		}
	}

	invalid := []string{"", "has space", "semi;colon", "slash/y", strings.Repeat("x", MaxUserIDLength+1)}
	for _, id := range invalid {
		if IsValidUserID(id) {
			t.Errorf("expected %q to be invalid", id)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello\x00world  ", 100); got != "helloworld" {
		t.Errorf("got %q", got)
	}
	if got := SanitizeString("abcdef", 3); got != "abc" {
		t.Errorf("got %q", got)
	}
}

func TestValidate(t *testing.T) {
	errs := Validate(
		Required("userId", ""),
		MaxLength("prompt", strings.Repeat("a", 20), 10),
	)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(errs))
	}
	if errs.Error() != "userId: is required" {
		t.Errorf("unexpected error string: %s", errs.Error())
	}

	if errs := Validate(Required("userId", "alice"), ValidUserID("userId", "alice")); len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestUserIDParamMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/users/:userId", UserIDParamMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/users/alice", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/users/bad%3Bid", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
