package validator

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type sample struct {
	Type   string `validate:"omitempty,transaction_type"`
	Cat    string `validate:"omitempty,category_type"`
	Period string `validate:"omitempty,budget_period"`
	Mode   string `validate:"omitempty,report_mode"`
	Order  string `validate:"omitempty,sort_order"`
	Date   string `validate:"omitempty,calendar_date"`
}

func TestRegisteredValidators(t *testing.T) {
	Register()
	Register()
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		t.Fatal("expected go-playground validator engine")
	}

	tests := []struct {
		name  string
		input sample
		valid bool
	}{
		{"all_valid", sample{"income", "expense", "weekly", "year", "asc", "2024-02-29"}, true},
		{"empty_is_ok", sample{}, true},
		{"transfer_rejected", sample{Type: "transfer"}, false},
		{"bad_category_type", sample{Cat: "asset"}, false},
		{"daily_period", sample{Period: "daily"}, false},
		{"bad_mode", sample{Mode: "week"}, false},
		{"bad_order", sample{Order: "up"}, false},
		{"not_a_leap_day", sample{Date: "2023-02-29"}, false},
		{"wrong_layout", sample{Date: "2024/01/01"}, false},
		{"timestamp", sample{Date: "2024-01-01T00:00:00Z"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-03-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected date %s", got)
	}
	if _, err := ParseDate("31-03-2024"); err == nil {
		t.Error("expected error for wrong layout")
	}
}
