package oracle

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

const solMint = "So11111111111111111111111111111111111111112"

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func priceServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return srv
}

func TestRefresh_StringPrice(t *testing.T) {
	srv := priceServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("mints"); got != solMint {
			t.Errorf("mints = %q, want %q", got, solMint)
		}
		fmt.Fprintf(w, `{"id":"x","success":true,"data":{"%s":"151.2345"}}`, solMint)
	})

	o := New(Options{URL: srv.URL, Logger: quietLogger()})
	if !o.SOLPriceUSD().IsZero() {
		t.Fatalf("price before refresh = %s, want 0", o.SOLPriceUSD())
	}

	if err := o.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if got := o.SOLPriceUSD().String(); got != "151.2345" {
		t.Errorf("price = %s, want 151.2345", got)
	}
	if o.UpdatedAt().IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestRefresh_NumericPrice(t *testing.T) {
	srv := priceServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"%s":150}}`, solMint)
	})

	o := New(Options{URL: srv.URL, Logger: quietLogger()})
	if err := o.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if got := o.SOLPriceUSD().String(); got != "150" {
		t.Errorf("price = %s, want 150", got)
	}
}

func TestRefresh_FailureKeepsPreviousPrice(t *testing.T) {
	var fail atomic.Bool
	srv := priceServer(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprintf(w, `{"data":{"%s":"140"}}`, solMint)
	})

	o := New(Options{URL: srv.URL, Logger: quietLogger()})
	if err := o.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	fail.Store(true)
	if err := o.Refresh(context.Background()); err == nil {
		t.Fatal("expected error on 502")
	}
	if got := o.SOLPriceUSD().String(); got != "140" {
		t.Errorf("price = %s, want previous 140", got)
	}
}

func TestRefresh_InvalidBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing mint", `{"data":{}}`},
		{"zero price", fmt.Sprintf(`{"data":{"%s":"0"}}`, solMint)},
		{"api failure", fmt.Sprintf(`{"success":false,"data":{"%s":"1"}}`, solMint)},
		{"not json", `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := priceServer(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			})
			o := New(Options{URL: srv.URL, Logger: quietLogger()})
			if err := o.Refresh(context.Background()); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
			if !o.SOLPriceUSD().IsZero() {
				t.Errorf("price = %s, want 0", o.SOLPriceUSD())
			}
		})
	}
}

func TestRun_RefreshesPeriodically(t *testing.T) {
	var calls atomic.Int32
	srv := priceServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		fmt.Fprintf(w, `{"data":{"%s":"%d"}}`, solMint, 100+n)
	})

	o := New(Options{URL: srv.URL, RefreshInterval: 10 * time.Millisecond, Logger: quietLogger()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d refreshes", calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
	if o.SOLPriceUSD().IsZero() {
		t.Error("price never set")
	}
}
