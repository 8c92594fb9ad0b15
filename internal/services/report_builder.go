package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/models"
	"fintrack/internal/money"
	"fintrack/internal/store"
)

// ReportMode selects the bucket grid of a report.
type ReportMode string

const (
	// ReportModeMonth buckets one calendar year by month.
	ReportModeMonth ReportMode = "month"
	// ReportModeYear buckets the trailing years ending at the current year.
	ReportModeYear ReportMode = "year"
)

const (
	minReportYear     = 2000
	maxYearsAhead     = 10
	trailingYearCount = 5
)

var monthLabels = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// ChartPalette holds the slice colors of the category breakdown.
var ChartPalette = []string{
	"rgba(255, 99, 132, 0.6)",
	"rgba(54, 162, 235, 0.6)",
	"rgba(255, 206, 86, 0.6)",
	"rgba(75, 192, 192, 0.6)",
	"rgba(153, 102, 255, 0.6)",
	"rgba(255, 159, 64, 0.6)",
	"rgba(199, 199, 199, 0.6)",
	"rgba(83, 109, 254, 0.6)",
	"rgba(231, 233, 237, 0.6)",
	"rgba(100, 250, 150, 0.6)",
	"rgba(200, 100, 50, 0.6)",
}

// IncomeExpenseSeries holds per-bucket income and expense totals.
type IncomeExpenseSeries struct {
	Labels  []string       `json:"labels"`
	Income  []money.Amount `json:"income"`
	Expense []money.Amount `json:"expense"`
}

// CategoryBreakdown holds current-month expense totals per category.
type CategoryBreakdown struct {
	Labels  []string       `json:"labels"`
	Amounts []money.Amount `json:"amounts"`
	Colors  []string       `json:"colors"`
}

// TrendSeries holds one amount per bucket.
type TrendSeries struct {
	Labels  []string       `json:"labels"`
	Amounts []money.Amount `json:"amounts"`
}

// MonthSummary totals the current calendar month.
type MonthSummary struct {
	TotalIncome  money.Amount `json:"total_income"`
	TotalExpense money.Amount `json:"total_expense"`
	NetSavings   money.Amount `json:"net_savings"`
	Month        int          `json:"month"`
	Year         int          `json:"year"`
}

// Report is the full chart payload for one user.
type Report struct {
	IncomeExpense     IncomeExpenseSeries `json:"income_expense"`
	CategoryBreakdown CategoryBreakdown   `json:"category_breakdown"`
	IncomeTrend       TrendSeries         `json:"income_trend"`
	Summary           MonthSummary        `json:"summary"`
}

// reportBuilder aggregates a user's transactions into chart series.
type reportBuilder struct {
	store store.RecordStore
}

// NewReportBuilder creates a new ReportBuilder.
func NewReportBuilder(rs store.RecordStore) ReportBuilder {
	return &reportBuilder{store: rs}
}

// ValidateReportRequest checks mode and year against now. In year mode the
// year argument is ignored.
func ValidateReportRequest(mode ReportMode, year int, now time.Time) error {
	switch mode {
	case ReportModeMonth:
		maxYear := now.UTC().Year() + maxYearsAhead
		if year < minReportYear || year > maxYear {
			return apperrors.WithMessage(apperrors.ErrInvalidInput,
				fmt.Sprintf("year must be between %d and %d", minReportYear, maxYear))
		}
	case ReportModeYear:
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "mode must be 'month' or 'year'")
	}
	return nil
}

// BuildReport validates the request, then reads the series, breakdown, trend
// and summary concurrently. The report is returned whole or not at all.
func (r *reportBuilder) BuildReport(ctx context.Context, ownerID string, mode ReportMode, year int, now time.Time) (*Report, error) {
	if err := ValidateReportRequest(mode, year, now); err != nil {
		return nil, err
	}

	now = now.UTC()
	grid := newBucketGrid(mode, year, now)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Nanosecond)

	report := &Report{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		series, err := r.incomeExpense(gctx, ownerID, grid)
		report.IncomeExpense = series
		return err
	})
	g.Go(func() error {
		breakdown, err := r.categoryBreakdown(gctx, ownerID, monthStart, monthEnd)
		report.CategoryBreakdown = breakdown
		return err
	})
	g.Go(func() error {
		trend, err := r.incomeTrend(gctx, ownerID, grid)
		report.IncomeTrend = trend
		return err
	})
	g.Go(func() error {
		summary, err := r.summary(gctx, ownerID, monthStart, monthEnd)
		report.Summary = summary
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}

	logger.FromContext(ctx).Debugw("report built",
		"user_id", ownerID,
		"mode", mode,
		"buckets", len(grid.labels),
		"categories", len(report.CategoryBreakdown.Labels),
	)
	return report, nil
}

// incomeExpense groups income and expense into buckets in a single pass.
func (r *reportBuilder) incomeExpense(ctx context.Context, ownerID string, grid bucketGrid) (IncomeExpenseSeries, error) {
	txs, err := r.store.FindTransactions(ctx, ownerID, store.TransactionFilter{From: &grid.from, To: &grid.to})
	if err != nil {
		return IncomeExpenseSeries{}, err
	}

	series := IncomeExpenseSeries{
		Labels:  grid.labels,
		Income:  make([]money.Amount, len(grid.labels)),
		Expense: make([]money.Amount, len(grid.labels)),
	}
	for _, tx := range txs {
		i, ok := grid.index(tx.Date)
		if !ok {
			continue
		}
		switch tx.Type {
		case models.TransactionTypeIncome:
			series.Income[i] += tx.Amount
		case models.TransactionTypeExpense:
			series.Expense[i] += tx.Amount
		}
	}
	return series, nil
}

func (r *reportBuilder) incomeTrend(ctx context.Context, ownerID string, grid bucketGrid) (TrendSeries, error) {
	income := models.TransactionTypeIncome
	txs, err := r.store.FindTransactions(ctx, ownerID, store.TransactionFilter{Type: &income, From: &grid.from, To: &grid.to})
	if err != nil {
		return TrendSeries{}, err
	}

	trend := TrendSeries{Labels: grid.labels, Amounts: make([]money.Amount, len(grid.labels))}
	for _, tx := range txs {
		if i, ok := grid.index(tx.Date); ok {
			trend.Amounts[i] += tx.Amount
		}
	}
	return trend, nil
}

type categorySlice struct {
	id     string
	label  string
	amount money.Amount
}

// categoryBreakdown sums the month's expenses per category. Transactions
// whose category does not resolve are left out.
func (r *reportBuilder) categoryBreakdown(ctx context.Context, ownerID string, from, to time.Time) (CategoryBreakdown, error) {
	expense := models.TransactionTypeExpense
	txs, err := r.store.FindTransactions(ctx, ownerID, store.TransactionFilter{Type: &expense, From: &from, To: &to})
	if err != nil {
		return CategoryBreakdown{}, err
	}

	totals := make(map[string]money.Amount)
	ids := make([]string, 0)
	for _, tx := range txs {
		if _, ok := totals[tx.CategoryID]; !ok {
			ids = append(ids, tx.CategoryID)
		}
		totals[tx.CategoryID] += tx.Amount
	}

	breakdown := CategoryBreakdown{Labels: []string{}, Amounts: []money.Amount{}, Colors: []string{}}
	if len(ids) == 0 {
		return breakdown, nil
	}

	categories, err := r.store.FindCategories(ctx, ownerID, store.CategoryFilter{IDs: ids})
	if err != nil {
		return CategoryBreakdown{}, err
	}

	slices := make([]categorySlice, 0, len(categories))
	for _, c := range categories {
		amount, ok := totals[c.ID]
		if !ok {
			continue
		}
		slices = append(slices, categorySlice{id: c.ID, label: c.Name, amount: amount})
	}
	sort.Slice(slices, func(i, j int) bool {
		if slices[i].amount != slices[j].amount {
			return slices[i].amount > slices[j].amount
		}
		return slices[i].label < slices[j].label
	})

	for _, s := range slices {
		breakdown.Labels = append(breakdown.Labels, s.label)
		breakdown.Amounts = append(breakdown.Amounts, s.amount)
		breakdown.Colors = append(breakdown.Colors, CategoryColor(s.id))
	}
	return breakdown, nil
}

func (r *reportBuilder) summary(ctx context.Context, ownerID string, from, to time.Time) (MonthSummary, error) {
	txs, err := r.store.FindTransactions(ctx, ownerID, store.TransactionFilter{From: &from, To: &to})
	if err != nil {
		return MonthSummary{}, err
	}

	summary := MonthSummary{Month: int(from.Month()), Year: from.Year()}
	for _, tx := range txs {
		switch tx.Type {
		case models.TransactionTypeIncome:
			summary.TotalIncome += tx.Amount
		case models.TransactionTypeExpense:
			summary.TotalExpense += tx.Amount
		}
	}
	summary.NetSavings = summary.TotalIncome - summary.TotalExpense
	return summary, nil
}

// CategoryColor maps a category id to a palette entry by FNV-1a hash.
func CategoryColor(categoryID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(categoryID))
	return ChartPalette[h.Sum32()%uint32(len(ChartPalette))]
}

// bucketGrid describes the report buckets and the instant range they cover.
type bucketGrid struct {
	labels    []string
	from, to  time.Time
	byMonth   bool
	firstYear int
}

func newBucketGrid(mode ReportMode, year int, now time.Time) bucketGrid {
	if mode == ReportModeMonth {
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return bucketGrid{
			labels:  append([]string(nil), monthLabels[:]...),
			from:    from,
			to:      from.AddDate(1, 0, 0).Add(-time.Nanosecond),
			byMonth: true,
		}
	}

	firstYear := now.Year() - trailingYearCount + 1
	labels := make([]string, trailingYearCount)
	for i := range labels {
		labels[i] = strconv.Itoa(firstYear + i)
	}
	return bucketGrid{
		labels:    labels,
		from:      time.Date(firstYear, time.January, 1, 0, 0, 0, 0, time.UTC),
		to:        time.Date(now.Year()+1, time.January, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond),
		firstYear: firstYear,
	}
}

func (g bucketGrid) index(date time.Time) (int, bool) {
	d := date.UTC()
	if d.Before(g.from) || d.After(g.to) {
		return 0, false
	}
	if g.byMonth {
		return int(d.Month()) - 1, true
	}
	return d.Year() - g.firstYear, true
}
