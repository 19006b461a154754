package sequence

import (
	"fmt"
	"time"
)

// FiscalYearLabel returns the April–March fiscal year containing t,
// formatted like "2025-26". Branch sequences reset each fiscal year.
func FiscalYearLabel(t time.Time) string {
	year := t.Year()
	if t.Month() < time.April {
		year--
	}
	return fmt.Sprintf("%d-%02d", year, (year+1)%100)
}
