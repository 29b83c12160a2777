package main

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	apphttp "bilancio/internal/http"
	"bilancio/internal/identity"
	"bilancio/internal/services"
	"bilancio/internal/store/memory"
)

func startAPI(t *testing.T) string {
	t.Helper()
	st := memory.New()
	reader := services.NewTransactionService(st, nil, nil)
	summaryCache := cache.NewLRUCache[[]core.Transaction](10, time.Minute)
	sums := services.NewSummaryService(reader, summaryCache, nil)

	srv, err := apphttp.NewServer(":0", apphttp.Dependencies{
		Transactions: services.NewTransactionService(st, sums, nil),
		Summaries:    sums,
		Identity:     identity.HeaderExtractor{Header: identity.DefaultHeader},
		Store:        st,
	}, apphttp.Options{RequestsPerMinute: 1000})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts.URL
}

type harness struct {
	api   string
	state string
}

func (h harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	full := append([]string{"bilancio-cli", "--api", h.api, "--state-file", h.state, "--no-color"}, args...)
	err := newApp(&out).Run(full)
	return out.String(), err
}

func TestCLI_Flow(t *testing.T) {
	h := harness{api: startAPI(t), state: filepath.Join(t.TempDir(), "state.json")}

	first, err := h.run(t, "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	second, _ := h.run(t, "whoami")
	if strings.TrimSpace(first) == "" || first != second {
		t.Fatalf("session id should be created once and reused: %q vs %q", first, second)
	}

	now := time.Now()
	date := now.Format(core.DateLayout)
	if _, err := h.run(t, "add", "--date", date, "--amount", "1000", "--category", "Salary", "--type", "income"); err != nil {
		t.Fatalf("add income: %v", err)
	}
	out, err := h.run(t, "add", "--date", date, "--amount", "12,345", "--category", "Food")
	if err != nil {
		t.Fatalf("add expense: %v", err)
	}
	id := strings.TrimSpace(strings.TrimPrefix(out, "Added "))

	out, err = h.run(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "-12.35") || !strings.Contains(out, "+1000.00") {
		t.Fatalf("list output:\n%s", out)
	}

	if _, err := h.run(t, "edit", "--note", "dinner", id); err != nil {
		t.Fatalf("edit: %v", err)
	}
	out, _ = h.run(t, "list")
	if !strings.Contains(out, "dinner") || !strings.Contains(out, "-12.35") {
		t.Fatalf("edit should keep unset fields:\n%s", out)
	}

	out, err = h.run(t, "summary")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !strings.Contains(out, monthLabel(now)) || !strings.Contains(out, "+987.65") {
		t.Fatalf("summary output:\n%s", out)
	}

	if _, err := h.run(t, "delete", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	out, _ = h.run(t, "list")
	if strings.Contains(out, "dinner") {
		t.Fatalf("deleted row still listed:\n%s", out)
	}
}

func monthLabel(now time.Time) string {
	return now.Month().String() + " " + now.Format("2006")
}

func TestCLI_Errors(t *testing.T) {
	h := harness{api: startAPI(t), state: filepath.Join(t.TempDir(), "state.json")}

	if _, err := h.run(t, "add", "--amount", "-5"); err == nil {
		t.Error("negative amount should be rejected")
	}
	if _, err := h.run(t, "delete"); err == nil {
		t.Error("delete without id should fail")
	}
	if _, err := h.run(t, "edit", "missing"); err == nil {
		t.Error("editing an unknown id should fail")
	}
	if _, err := h.run(t, "summary", "--year", "1990"); err == nil {
		t.Error("year outside the selector range should fail")
	}
}

func TestMonthQuery(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	q, err := monthQuery(0, 0, "", "", now)
	if err != nil {
		t.Fatal(err)
	}
	if q.Year != 2024 || q.Month != time.March || q.View != core.TypeExpense {
		t.Fatalf("unexpected defaults %+v", q)
	}

	tests := []struct {
		year, month int
		view        string
		ok          bool
	}{
		{2021, 1, "income", true},
		{2027, 12, "expense", true},
		{2020, 1, "", false},
		{2028, 1, "", false},
		{2024, 13, "", false},
		{2024, 1, "savings", false},
	}
	for _, tt := range tests {
		_, err := monthQuery(tt.year, tt.month, tt.view, "", now)
		if (err == nil) != tt.ok {
			t.Errorf("monthQuery(%d, %d, %q) err=%v, want ok=%v", tt.year, tt.month, tt.view, err, tt.ok)
		}
	}
}
