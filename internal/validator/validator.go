// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// DateLayout is the calendar date format accepted on the wire.
const DateLayout = "2006-01-02"

var calendarDateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var registerOnce sync.Once

// Register registers all custom validators with the Gin binding engine.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("transaction_type", oneOf("income", "expense"))
			_ = v.RegisterValidation("category_type", oneOf("income", "expense"))
			_ = v.RegisterValidation("budget_period", oneOf("weekly", "monthly", "yearly"))
			_ = v.RegisterValidation("report_mode", oneOf("month", "year"))
			_ = v.RegisterValidation("sort_order", oneOf("asc", "desc"))
			_ = v.RegisterValidation("calendar_date", validateCalendarDate)
		}
	})
}

func oneOf(values ...string) validator.Func {
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	return func(fl validator.FieldLevel) bool {
		_, ok := allowed[fl.Field().String()]
		return ok
	}
}

// validateCalendarDate accepts YYYY-MM-DD strings naming a real date.
func validateCalendarDate(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if !calendarDateRegex.MatchString(s) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ParseDate parses a YYYY-MM-DD string as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
