package alerter

import (
	"TraceSpectra/internal/config"
	"TraceSpectra/internal/model"
	"fmt"
	"html"
	"log"
	"strings"
)

// Alerter is responsible for evaluating run reports against predefined rules
// and triggering notifications if rules are violated.
type Alerter struct {
	rules    []config.AlerterRule
	notifier model.Notifier
}

// NewAlerter creates a new Alerter instance. Rules with an unknown metric,
// band or operator are rejected.
func NewAlerter(cfg config.AlerterConfig, notifier model.Notifier) (*Alerter, error) {
	for _, rule := range cfg.Rules {
		if !knownMetric(rule.Metric) {
			return nil, fmt.Errorf("alerter rule '%s': unknown metric '%s'", rule.Name, rule.Metric)
		}
		if !knownBand(rule.Band) {
			return nil, fmt.Errorf("alerter rule '%s': unknown band '%s'", rule.Name, rule.Band)
		}
		if !knownOperator(rule.Operator) {
			return nil, fmt.Errorf("alerter rule '%s': unknown operator '%s'", rule.Name, rule.Operator)
		}
	}
	return &Alerter{rules: cfg.Rules, notifier: notifier}, nil
}

// HandleReport evaluates a report and sends one consolidated notification
// when any rule triggered.
func (a *Alerter) HandleReport(report *model.RunReport) {
	messages := a.Evaluate(report)
	if len(messages) == 0 {
		return
	}

	log.Printf("Alerter evaluation of %s completed. %d alert(s) triggered.", report.Run.Name, len(messages))

	// Prepare the consolidated notification body
	body := "<h1>TraceSpectra Alert Summary</h1>" +
		fmt.Sprintf("<p>The following alerts were triggered by run <code>%s</code>:</p><hr>", html.EscapeString(report.Run.Name)) +
		strings.Join(messages, "<hr>")

	if a.notifier != nil {
		subject := fmt.Sprintf("TraceSpectra Alert Summary for %s (%d Triggered)", report.Run.Name, len(messages))
		if err := a.notifier.Send(subject, body); err != nil {
			log.Printf("ERROR: Failed to send consolidated alert notification: %v", err)
		} else {
			log.Printf("INFO: Consolidated alert notification sent successfully.")
		}
	}
}

// Evaluate returns one HTML fragment per triggered rule. Rules whose metric
// is undefined for the report are skipped.
func (a *Alerter) Evaluate(report *model.RunReport) []string {
	var triggered []string
	for _, rule := range a.rules {
		value, ok := metricValue(report, rule)
		if !ok || !check(value, rule.Threshold, rule.Operator) {
			continue
		}
		triggered = append(triggered, fmt.Sprintf("<h3>Alert: %s</h3>"+
			"<ul>"+
			"<li><b>Metric:</b> %s (%s flows)</li>"+
			"<li><b>Condition:</b> %s %s %g</li>"+
			"<li><b>Observed:</b> %.3f</li>"+
			"</ul>",
			html.EscapeString(rule.Name), rule.Metric, rule.Band,
			rule.Metric, html.EscapeString(rule.Operator), rule.Threshold, value))
	}
	return triggered
}

const fctPrefix = "fct_"

func knownMetric(name string) bool {
	switch name {
	case "completion_rate", "fallbacks", "iteration_ms", "utilization":
		return true
	}
	if strings.HasPrefix(name, fctPrefix) {
		_, err := model.ParseMetric(strings.TrimPrefix(name, fctPrefix))
		return err == nil
	}
	return false
}

func knownBand(name string) bool {
	for _, b := range model.Bands {
		if string(b) == name {
			return true
		}
	}
	return false
}

func knownOperator(op string) bool {
	switch op {
	case ">", "<", "=", ">=", "<=":
		return true
	}
	return false
}

// metricValue extracts the value a rule is evaluated on.
func metricValue(report *model.RunReport, rule config.AlerterRule) (float64, bool) {
	band := model.Band(rule.Band)
	switch rule.Metric {
	case "completion_rate":
		c, ok := report.Completion[band]
		if !ok || c.Total == 0 {
			return 0, false
		}
		return c.Rate() * 100, true
	case "fallbacks":
		total := 0
		for _, w := range report.Workers {
			total += w.Fallbacks
		}
		return float64(total), true
	case "iteration_ms":
		var sum int64
		n := 0
		for _, w := range report.Workers {
			for _, d := range w.IterationDurationsNs {
				sum += d
				n++
			}
		}
		if n == 0 {
			return 0, false
		}
		return float64(sum) / float64(n) / 1e6, true
	case "utilization":
		if report.UtilizationPct == nil {
			return 0, false
		}
		return *report.UtilizationPct, true
	}

	if report.FlowStats == nil {
		return 0, false
	}
	stats, err := report.FlowStats.Band(band)
	if err != nil {
		return 0, false
	}
	v, err := stats.Value(model.Metric(strings.TrimPrefix(rule.Metric, fctPrefix)))
	if err != nil {
		return 0, false
	}
	return v, true
}

func check(value, threshold float64, operator string) bool {
	switch operator {
	case ">":
		return value > threshold
	case "<":
		return value < threshold
	case "=":
		return value == threshold
	case ">=":
		return value >= threshold
	case "<=":
		return value <= threshold
	default:
		log.Printf("Warning: unknown operator '%s' in alerter rule", operator)
		return false
	}
}
