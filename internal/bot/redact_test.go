package bot

import (
	"net/http"
	"testing"
)

func TestRedactHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer sk-secret")
	h.Set("Cookie", "session=abc")
	h.Set("Api-Key", "12345")
	h.Set("X-Access-Token", "tok")
	h.Set("Content-Type", "application/json")
	h.Add("Accept", "application/json")
	h.Add("Accept", "text/plain")

	got := redactHeaders(h)

	for _, name := range []string{"Authorization", "Cookie", "Api-Key", "X-Access-Token"} {
		if got[name] != redactedValue {
			t.Errorf("%s = %q, want redacted", name, got[name])
		}
	}
	if got["Content-Type"] != "application/json" {
		t.Errorf("Content-Type = %q, want passed through", got["Content-Type"])
	}
	if got["Accept"] != "application/json, text/plain" {
		t.Errorf("Accept = %q, want joined values", got["Accept"])
	}
}

func TestRedactHeaders_Nil(t *testing.T) {
	if got := redactHeaders(nil); got != nil {
		t.Errorf("redactHeaders(nil) = %v, want nil", got)
	}
}
