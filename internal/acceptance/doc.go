// Package acceptance runs the Gherkin scenarios under features/ against the
// full HTTP stack backed by an in-memory database.
//
//	go test -tags integration ./internal/acceptance/...
//
// GODOG_TAGS narrows the run, e.g. GODOG_TAGS=@budgets.
package acceptance
