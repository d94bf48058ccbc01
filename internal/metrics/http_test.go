package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler(t *testing.T) {
	SetState("steady")
	SetBuildInfo("v0.1.0", "old")
	SetBuildInfo("v0.2.0", "0123456")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`videoloop_pipeline_state{state="steady"} 1`,
		`videoloop_build_info{commit="0123456",version="v0.2.0"} 1`,
		"videoloop_pipeline_frames_forwarded_total",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("response missing %q", want)
		}
	}
	if strings.Contains(body, `version="v0.1.0"`) {
		t.Error("build info should only carry the current build")
	}
}
