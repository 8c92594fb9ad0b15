//go:build integration

package acceptance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fintrack/internal/config"
	"fintrack/internal/logger"
	"fintrack/internal/money"
	"fintrack/internal/server"
	"fintrack/internal/services"
	"fintrack/internal/testutil"
)

// world holds the state of one scenario.
type world struct {
	db     *gorm.DB
	router *gin.Engine
	now    time.Time

	accessToken string
	categories  map[string]string

	status int
	body   []byte
	alerts []services.EnrichedBudget
	report *services.Report
}

type worldKey struct{}

func getWorld(ctx context.Context) *world {
	w, _ := ctx.Value(worldKey{}).(*world)
	return w
}

// InitializeTestSuite sets up resources before any scenarios run.
func InitializeTestSuite(ctx *godog.TestSuiteContext) {
	ctx.BeforeSuite(func() {
		gin.SetMode(gin.TestMode)
		logger.Init("test")
		config.Set(&config.Config{
			Env:                "test",
			JWTSecret:          "acceptance-secret",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: time.Hour,
		})
	})
}

// InitializeScenario registers all step definitions.
func InitializeScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		db, err := testutil.OpenMemoryDB()
		if err != nil {
			return ctx, err
		}
		w := &world{db: db, now: time.Now().UTC(), categories: make(map[string]string)}
		svc := server.NewServices(db, services.EvaluatorOptions{Batch: hasTag(sc, "@batch")})
		w.router = server.NewRouter(svc, server.Options{Now: func() time.Time { return w.now }})
		return context.WithValue(ctx, worldKey{}, w), nil
	})

	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if w := getWorld(ctx); w != nil {
			if sqlDB, dbErr := w.db.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
		}
		return ctx, nil
	})

	ctx.Step(`^today is "([^"]*)"$`, todayIs)
	ctx.Step(`^I am signed in as "([^"]*)"$`, iAmSignedInAs)
	ctx.Step(`^I have an? "(income|expense)" category "([^"]*)"$`, iHaveACategory)
	ctx.Step(`^I have a "(monthly|yearly)" budget of "([^"]*)" for "([^"]*)" from "([^"]*)" to "([^"]*)"$`, iHaveABudget)
	ctx.Step(`^I record an? "(income|expense)" of "([^"]*)" in "([^"]*)" on "([^"]*)"$`, iRecordATransaction)
	ctx.Step(`^I delete the category "([^"]*)"$`, iDeleteTheCategory)
	ctx.Step(`^I request the "(month|year)" report for (\d+)$`, iRequestTheReport)

	ctx.Step(`^the response status should be (\d+)$`, theResponseStatusShouldBe)
	ctx.Step(`^the error code should be "([^"]*)"$`, theErrorCodeShouldBe)
	ctx.Step(`^the last transaction raised (\d+) budget alerts?$`, theLastTransactionRaisedAlerts)
	ctx.Step(`^the budget for "([^"]*)" shows spent "([^"]*)" and remaining "([^"]*)"$`, theBudgetShows)
	ctx.Step(`^the budget for "([^"]*)" is (over|within) its limit$`, theBudgetIs)
	ctx.Step(`^the (income|expense) for "([^"]*)" is "([^"]*)"$`, theSeriesValueIs)
	ctx.Step(`^the category breakdown is "([^"]*)"$`, theCategoryBreakdownIs)
	ctx.Step(`^the month summary shows income "([^"]*)", expense "([^"]*)" and net "([^"]*)"$`, theMonthSummaryShows)
}

func hasTag(sc *godog.Scenario, tag string) bool {
	for _, t := range sc.Tags {
		if t.Name == tag {
			return true
		}
	}
	return false
}

func (w *world) send(method, path string, body interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if w.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+w.accessToken)
	}
	rec := httptest.NewRecorder()
	w.router.ServeHTTP(rec, req)
	w.status = rec.Code
	w.body = rec.Body.Bytes()
	return nil
}

func (w *world) expect(status int, dst interface{}) error {
	if w.status != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, w.status, w.body)
	}
	if dst == nil {
		return nil
	}
	return json.Unmarshal(w.body, dst)
}

func (w *world) categoryID(name string) (string, error) {
	id, ok := w.categories[name]
	if !ok {
		return "", fmt.Errorf("unknown category %q", name)
	}
	return id, nil
}

func todayIs(ctx context.Context, date string) error {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return err
	}
	getWorld(ctx).now = d.Add(12 * time.Hour)
	return nil
}

func iAmSignedInAs(ctx context.Context, email string) error {
	w := getWorld(ctx)
	if err := w.send("POST", "/api/v1/auth/register", map[string]string{
		"email":    email,
		"password": "password123",
	}); err != nil {
		return err
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := w.expect(http.StatusCreated, &resp); err != nil {
		return err
	}
	w.accessToken = resp.AccessToken

	if err := w.send("GET", "/api/v1/categories", nil); err != nil {
		return err
	}
	var list struct {
		Categories []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"categories"`
	}
	if err := w.expect(http.StatusOK, &list); err != nil {
		return err
	}
	for _, c := range list.Categories {
		w.categories[c.Name] = c.ID
	}
	return nil
}

func iHaveACategory(ctx context.Context, categoryType, name string) error {
	w := getWorld(ctx)
	if err := w.send("POST", "/api/v1/categories", map[string]string{"name": name, "type": categoryType}); err != nil {
		return err
	}
	var resp struct {
		Category struct {
			ID string `json:"id"`
		} `json:"category"`
	}
	if err := w.expect(http.StatusCreated, &resp); err != nil {
		return err
	}
	w.categories[name] = resp.Category.ID
	return nil
}

func iHaveABudget(ctx context.Context, period, limit, category, start, end string) error {
	w := getWorld(ctx)
	categoryID, err := w.categoryID(category)
	if err != nil {
		return err
	}
	if err := w.send("POST", "/api/v1/budgets", map[string]string{
		"category_id": categoryID,
		"limit":       limit,
		"period":      period,
		"start_date":  start,
		"end_date":    end,
	}); err != nil {
		return err
	}
	return w.expect(http.StatusCreated, nil)
}

func iRecordATransaction(ctx context.Context, txType, amount, category, date string) error {
	w := getWorld(ctx)
	categoryID, err := w.categoryID(category)
	if err != nil {
		return err
	}
	w.alerts = nil
	if err := w.send("POST", "/api/v1/transactions", map[string]string{
		"type":        txType,
		"amount":      amount,
		"category_id": categoryID,
		"date":        date,
	}); err != nil {
		return err
	}
	if w.status != http.StatusCreated {
		return nil
	}
	var resp struct {
		BudgetAlerts []services.EnrichedBudget `json:"budget_alerts"`
	}
	if err := json.Unmarshal(w.body, &resp); err != nil {
		return err
	}
	w.alerts = resp.BudgetAlerts
	return nil
}

func iDeleteTheCategory(ctx context.Context, name string) error {
	w := getWorld(ctx)
	categoryID, err := w.categoryID(name)
	if err != nil {
		return err
	}
	return w.send("DELETE", "/api/v1/categories/"+categoryID, nil)
}

func iRequestTheReport(ctx context.Context, mode string, year int) error {
	w := getWorld(ctx)
	w.report = nil
	if err := w.send("GET", fmt.Sprintf("/api/v1/reports?mode=%s&year=%d", mode, year), nil); err != nil {
		return err
	}
	if w.status != http.StatusOK {
		return nil
	}
	w.report = &services.Report{}
	return json.Unmarshal(w.body, w.report)
}

func theResponseStatusShouldBe(ctx context.Context, status int) error {
	return getWorld(ctx).expect(status, nil)
}

func theErrorCodeShouldBe(ctx context.Context, code string) error {
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(getWorld(ctx).body, &resp); err != nil {
		return err
	}
	if resp.Error.Code != code {
		return fmt.Errorf("expected error code %s, got %q", code, resp.Error.Code)
	}
	return nil
}

func theLastTransactionRaisedAlerts(ctx context.Context, n int) error {
	w := getWorld(ctx)
	if err := w.expect(http.StatusCreated, nil); err != nil {
		return err
	}
	if len(w.alerts) != n {
		return fmt.Errorf("expected %d budget alerts, got %d", n, len(w.alerts))
	}
	return nil
}

func (w *world) budgetFor(category string) (*services.EnrichedBudget, error) {
	if err := w.send("GET", "/api/v1/budgets", nil); err != nil {
		return nil, err
	}
	var resp struct {
		Budgets []services.EnrichedBudget `json:"budgets"`
	}
	if err := w.expect(http.StatusOK, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Budgets {
		if resp.Budgets[i].CategoryName == category {
			return &resp.Budgets[i], nil
		}
	}
	return nil, fmt.Errorf("no budget for category %q", category)
}

func expectAmount(field string, got money.Amount, want string) error {
	w, err := money.Parse(want)
	if err != nil {
		return err
	}
	if got != w {
		return fmt.Errorf("expected %s %s, got %s", field, w, got)
	}
	return nil
}

func theBudgetShows(ctx context.Context, category, spent, remaining string) error {
	b, err := getWorld(ctx).budgetFor(category)
	if err != nil {
		return err
	}
	if err := expectAmount("actual spent", b.ActualSpent, spent); err != nil {
		return err
	}
	return expectAmount("remaining", b.Remaining, remaining)
}

func theBudgetIs(ctx context.Context, category, state string) error {
	b, err := getWorld(ctx).budgetFor(category)
	if err != nil {
		return err
	}
	if want := state == "over"; b.IsOverBudget != want {
		return fmt.Errorf("expected is_over_budget=%v, got %v", want, b.IsOverBudget)
	}
	return nil
}

func theSeriesValueIs(ctx context.Context, series, label, amount string) error {
	r := getWorld(ctx).report
	if r == nil {
		return fmt.Errorf("no report was returned")
	}
	values := r.IncomeExpense.Expense
	if series == "income" {
		values = r.IncomeExpense.Income
	}
	for i, l := range r.IncomeExpense.Labels {
		if l == label {
			return expectAmount(series+" for "+label, values[i], amount)
		}
	}
	return fmt.Errorf("no bucket labelled %q in %v", label, r.IncomeExpense.Labels)
}

func theCategoryBreakdownIs(ctx context.Context, labels string) error {
	r := getWorld(ctx).report
	if r == nil {
		return fmt.Errorf("no report was returned")
	}
	var want []string
	if labels != "" {
		want = strings.Split(labels, ", ")
	}
	got := r.CategoryBreakdown.Labels
	if strings.Join(got, ", ") != strings.Join(want, ", ") {
		return fmt.Errorf("expected breakdown %q, got %q", want, got)
	}
	return nil
}

func theMonthSummaryShows(ctx context.Context, income, expense, net string) error {
	r := getWorld(ctx).report
	if r == nil {
		return fmt.Errorf("no report was returned")
	}
	if err := expectAmount("total income", r.Summary.TotalIncome, income); err != nil {
		return err
	}
	if err := expectAmount("total expense", r.Summary.TotalExpense, expense); err != nil {
		return err
	}
	return expectAmount("net savings", r.Summary.NetSavings, net)
}
