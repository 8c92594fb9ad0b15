package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/models"
	"fintrack/internal/money"
	"fintrack/internal/store"
)

const defaultEvalConcurrency = 4

// EvaluatorOptions tunes how budget spend is read from the store.
type EvaluatorOptions struct {
	// Batch reads all transactions for the involved categories over the
	// union of the budget windows in one query and attributes them in
	// memory. Results match the per-budget mode.
	Batch bool
	// Concurrency bounds in-flight per-budget queries. Zero means 4.
	Concurrency int
}

// budgetEvaluator enriches budgets with their actual spend.
type budgetEvaluator struct {
	store       store.RecordStore
	batch       bool
	concurrency int
}

// NewBudgetEvaluator creates a new BudgetEvaluator.
func NewBudgetEvaluator(rs store.RecordStore, opts EvaluatorOptions) BudgetEvaluator {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultEvalConcurrency
	}
	return &budgetEvaluator{store: rs, batch: opts.Batch, concurrency: concurrency}
}

// EvaluateBudgets returns budgets in input order with ActualSpent, Remaining
// and IsOverBudget filled in. A budget whose category does not resolve is
// logged and reported with nothing spent. Any store failure fails the call.
func (e *budgetEvaluator) EvaluateBudgets(ctx context.Context, ownerID string, budgets []models.Budget) ([]EnrichedBudget, error) {
	out := make([]EnrichedBudget, len(budgets))
	if len(budgets) == 0 {
		return out, nil
	}

	categories, err := e.resolveCategories(ctx, ownerID, budgets)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}

	log := logger.FromContext(ctx)
	resolved := make([]int, 0, len(budgets))
	for i := range budgets {
		out[i] = EnrichedBudget{Budget: budgets[i]}
		category, ok := categories[budgets[i].CategoryID]
		if !ok {
			log.Warnw("budget category unresolved",
				"user_id", ownerID,
				"budget_id", budgets[i].ID,
				"category_id", budgets[i].CategoryID,
			)
			out[i].settle(0)
			continue
		}
		out[i].CategoryName = category.Name
		resolved = append(resolved, i)
	}

	if e.batch {
		err = e.spendBatched(ctx, ownerID, out, resolved)
	} else {
		err = e.spendPerBudget(ctx, ownerID, out, resolved)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}
	return out, nil
}

func (e *budgetEvaluator) resolveCategories(ctx context.Context, ownerID string, budgets []models.Budget) (map[string]models.Category, error) {
	seen := make(map[string]struct{}, len(budgets))
	ids := make([]string, 0, len(budgets))
	for _, b := range budgets {
		if _, ok := seen[b.CategoryID]; ok {
			continue
		}
		seen[b.CategoryID] = struct{}{}
		ids = append(ids, b.CategoryID)
	}

	found, err := e.store.FindCategories(ctx, ownerID, store.CategoryFilter{IDs: ids})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Category, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	return byID, nil
}

// spendPerBudget issues one windowed query per budget, bounded by e.concurrency.
// Each goroutine writes only its own slot of out.
func (e *budgetEvaluator) spendPerBudget(ctx context.Context, ownerID string, out []EnrichedBudget, resolved []int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	expense := models.TransactionTypeExpense
	for _, idx := range resolved {
		b := &out[idx]
		g.Go(func() error {
			from, to := b.Window()
			categoryID := b.CategoryID
			txs, err := e.store.FindTransactions(gctx, ownerID, store.TransactionFilter{
				Type:       &expense,
				CategoryID: &categoryID,
				From:       &from,
				To:         &to,
			})
			if err != nil {
				return err
			}
			b.settle(sumAmounts(txs))
			return nil
		})
	}
	return g.Wait()
}

// spendBatched reads once over [min start, max end] and attributes each
// transaction to every budget of its category whose window contains it.
func (e *budgetEvaluator) spendBatched(ctx context.Context, ownerID string, out []EnrichedBudget, resolved []int) error {
	if len(resolved) == 0 {
		return nil
	}

	from, to := out[resolved[0]].Window()
	categoryIDs := make([]string, 0, len(resolved))
	seen := make(map[string]struct{}, len(resolved))
	for _, idx := range resolved {
		f, t := out[idx].Window()
		if f.Before(from) {
			from = f
		}
		if t.After(to) {
			to = t
		}
		if _, ok := seen[out[idx].CategoryID]; !ok {
			seen[out[idx].CategoryID] = struct{}{}
			categoryIDs = append(categoryIDs, out[idx].CategoryID)
		}
	}

	expense := models.TransactionTypeExpense
	txs, err := e.store.FindTransactions(ctx, ownerID, store.TransactionFilter{
		Type:        &expense,
		CategoryIDs: categoryIDs,
		From:        &from,
		To:          &to,
	})
	if err != nil {
		return err
	}

	byCategory := make(map[string][]models.Transaction, len(categoryIDs))
	for _, tx := range txs {
		byCategory[tx.CategoryID] = append(byCategory[tx.CategoryID], tx)
	}
	for _, idx := range resolved {
		b := &out[idx]
		var spent money.Amount
		for _, tx := range byCategory[b.CategoryID] {
			if b.Contains(tx.Date) {
				spent += tx.Amount
			}
		}
		b.settle(spent)
	}
	return nil
}

func (b *EnrichedBudget) settle(spent money.Amount) {
	b.ActualSpent = spent
	b.Remaining = b.Limit - spent
	b.IsOverBudget = b.Remaining < 0
}

func sumAmounts(txs []models.Transaction) money.Amount {
	var total money.Amount
	for _, tx := range txs {
		total += tx.Amount
	}
	return total
}
