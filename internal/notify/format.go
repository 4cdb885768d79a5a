package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

// FormatAlert renders an alert as a plain-text title and body.
func FormatAlert(a domain.Alert) (title, message string) {
	m := a.Market
	title = fmt.Sprintf("[%s] %s: %s", strings.ToUpper(string(a.Severity)), a.Kind, m.Question)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", a.Analysis.Recommendation)
	fmt.Fprintf(&b, "Platform: %s\n", m.Platform)
	for _, o := range m.Outcomes {
		fmt.Fprintf(&b, "  %s: %.1f%%\n", o.Name, o.Probability)
	}
	fmt.Fprintf(&b, "Total: %.1f%%  Edge: %.2f\n", a.Analysis.TotalProbability, a.Analysis.Edge)
	if m.Volume24h > 0 {
		fmt.Fprintf(&b, "24h volume: $%.0f\n", m.Volume24h)
	}
	if m.EndDate != nil {
		fmt.Fprintf(&b, "Closes: %s\n", m.EndDate.UTC().Format(time.RFC3339))
	}
	if m.URL != "" {
		b.WriteString(m.URL)
	}
	return title, strings.TrimRight(b.String(), "\n")
}
