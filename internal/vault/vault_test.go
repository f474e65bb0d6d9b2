package vault

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const kvBody = `{
  "request_id": "r1",
  "lease_id": "",
  "renewable": false,
  "lease_duration": 0,
  "data": {
    "data": {"dsn": "app:pw@tcp(db:3306)/vitrine", "port": 3306},
    "metadata": {
      "created_time": "2026-03-22T02:24:06.945319214Z",
      "custom_metadata": null,
      "deletion_time": "",
      "destroyed": false,
      "version": 2
    }
  }
}`

func testClient(t *testing.T, hits *int32) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Path != "/v1/secret/data/vitrine" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(kvBody))
	}))
	t.Cleanup(srv.Close)

	cfg := vault.DefaultConfig()
	cfg.Address = srv.URL
	cfg.MaxRetries = 0
	api, err := vault.NewClient(cfg)
	if err != nil {
		t.Fatal(err)
	}
	api.SetToken("t")
	return &Client{api: api, log: zap.NewNop(), cache: cache.New(cache.NoExpiration, time.Minute)}
}

func TestParseRef(t *testing.T) {
	p, k, err := ParseRef("vault:secret/vitrine#dsn")
	if err != nil || p != "secret/vitrine" || k != "dsn" {
		t.Fatalf("got %q %q %v", p, k, err)
	}
	for _, bad := range []string{"secret/vitrine#dsn", "vault:secret/vitrine", "vault:#dsn", "vault:secret#dsn", "vault:secret/x#"} {
		if _, _, err := ParseRef(bad); !errors.Is(err, ErrBadRef) {
			t.Errorf("%q: err = %v", bad, err)
		}
	}
}

func TestResolveCaches(t *testing.T) {
	var hits int32
	c := testClient(t, &hits)

	for i := 0; i < 3; i++ {
		v, err := c.Resolve(context.Background(), "vault:secret/vitrine#dsn")
		if err != nil || v != "app:pw@tcp(db:3306)/vitrine" {
			t.Fatalf("Resolve = %q, %v", v, err)
		}
	}
	if hits != 1 {
		t.Fatalf("server hits = %d, want 1", hits)
	}
}

func TestGetKVErrors(t *testing.T) {
	var hits int32
	c := testClient(t, &hits)
	ctx := context.Background()

	if _, err := c.GetKV(ctx, "secret/vitrine", "missing", 0); err == nil {
		t.Fatal("missing key succeeded")
	}
	if _, err := c.GetKV(ctx, "secret/vitrine", "port", 0); err == nil {
		t.Fatal("non-string value succeeded")
	}
	if _, err := c.GetKV(ctx, "secret/other", "dsn", 0); err == nil {
		t.Fatal("unknown secret succeeded")
	}
	if _, err := c.GetKV(ctx, "", "dsn", 0); err == nil {
		t.Fatal("empty path succeeded")
	}
}

func TestSplitMount(t *testing.T) {
	cases := map[string][2]string{
		"secret/vitrine/db": {"secret", "vitrine/db"},
		"kv":                {"kv", ""},
		"":                  {"", ""},
	}
	for in, want := range cases {
		m, r := splitMount(in)
		if m != want[0] || r != want[1] {
			t.Errorf("splitMount(%q) = %q, %q", in, m, r)
		}
	}
}
