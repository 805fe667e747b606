package httpc

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClientTimeout(t *testing.T) {
	c := NewClient(3 * time.Second)
	if c.Timeout != 3*time.Second {
		t.Errorf("timeout = %s", c.Timeout)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("unexpected transport %T", c.Transport)
	}
	if tr.TLSHandshakeTimeout == 0 || tr.IdleConnTimeout != DefaultIdleConnTimeout {
		t.Errorf("transport timeouts not set: %+v", tr)
	}
}

func TestSharedClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := Client.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if Client.Timeout != DefaultTimeout {
		t.Errorf("shared client timeout = %s", Client.Timeout)
	}
}
