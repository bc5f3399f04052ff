package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestProvider_ObserveCall(t *testing.T) {
	RegisterEmbeddingMetrics()
	p := Provider{Name: "observe", Model: "m"}

	p.ObserveCall(10*time.Millisecond, "")
	p.ObserveCall(20*time.Millisecond, "api_error")

	if v := testutil.ToFloat64(EmbeddingRequestsTotal.WithLabelValues("observe", "m", "success")); v != 1 {
		t.Errorf("success = %v", v)
	}
	if v := testutil.ToFloat64(EmbeddingRequestsTotal.WithLabelValues("observe", "m", "error")); v != 1 {
		t.Errorf("error = %v", v)
	}
	if v := testutil.ToFloat64(EmbeddingErrorsTotal.WithLabelValues("observe", "m", "api_error")); v != 1 {
		t.Errorf("api_error = %v", v)
	}
}

func TestProvider_AddTokens(t *testing.T) {
	p := Provider{Name: "tokens", Model: "m"}
	p.AddTokens(0, 0)
	p.AddTokens(7, 9)

	if v := testutil.ToFloat64(EmbeddingTokensTotal.WithLabelValues("tokens", "m", "prompt")); v != 7 {
		t.Errorf("prompt = %v", v)
	}
	if v := testutil.ToFloat64(EmbeddingTokensTotal.WithLabelValues("tokens", "m", "total")); v != 9 {
		t.Errorf("total = %v", v)
	}
}

func TestSetBudgetRemaining(t *testing.T) {
	SetBudgetRemaining("budget", 10, 300)
	if v := testutil.ToFloat64(EmbeddingBudgetTokensRemaining.WithLabelValues("budget", "daily")); v != 10 {
		t.Errorf("daily = %v", v)
	}
	if v := testutil.ToFloat64(EmbeddingBudgetTokensRemaining.WithLabelValues("budget", "monthly")); v != 300 {
		t.Errorf("monthly = %v", v)
	}
}
