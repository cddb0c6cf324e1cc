package middleware

import (
	"context"
	"errors"
	"testing"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/splitledger/internal/metrics"
)

func TestMetricsInterceptor(t *testing.T) {
	reg := prometheus.NewRegistry()
	intercept := MetricsInterceptor(metrics.New(reg))

	ok := intercept(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return connect.NewResponse(&struct{}{}), nil
	})
	missing := intercept(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("gone"))
	})

	req := connect.NewRequest(&struct{}{})
	if _, err := ok(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := missing(context.Background(), req); connect.CodeOf(err) != connect.CodeNotFound {
		t.Fatalf("error = %v, want it passed through", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	codes := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "splitledger_rpc_requests_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "code" {
					codes[l.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	if codes["ok"] != 1 || codes["not_found"] != 1 {
		t.Errorf("codes = %v, want one ok and one not_found", codes)
	}
}

func TestLoggingInterceptor_PassesThrough(t *testing.T) {
	wantErr := connect.NewError(connect.CodeInternal, errors.New("boom"))
	call := LoggingInterceptor()(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if GetUserID(ctx) != "u1" {
			t.Errorf("user not visible to handler")
		}
		return nil, wantErr
	})

	ctx := WithUser(context.Background(), "u1", "u1@example.com")
	if _, err := call(ctx, connect.NewRequest(&struct{}{})); !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want %v", err, wantErr)
	}
}

func TestServerFault(t *testing.T) {
	tests := []struct {
		code connect.Code
		want bool
	}{
		{connect.CodeInternal, true},
		{connect.CodeUnavailable, true},
		{connect.CodeInvalidArgument, false},
		{connect.CodePermissionDenied, false},
		{connect.CodeNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			if got := serverFault(tt.code); got != tt.want {
				t.Errorf("serverFault(%v) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}
