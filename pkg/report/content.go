package report

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/chart"
	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/dataset"
)

const (
	distributionTitle = "Equipment Distribution"
	averagesTitle     = "Performance Averages"
)

// TableRow is one line of the metrics table.
type TableRow struct {
	Label string
	Value string
}

// Content is the format-independent report for one dataset. Compose is
// deterministic, so two renders of the same dataset carry identical content.
type Content struct {
	Title        string
	UploadedAt   string
	Metrics      []TableRow
	Categories   []dataset.Category
	Distribution chart.Data
	Averages     chart.Data
}

// Compose validates the dataset summary and builds the report content.
// It returns a *dataset.RenderError when the summary violates its invariants.
func Compose(ds dataset.Dataset) (Content, error) {
	if err := validateSummary(ds.Summary); err != nil {
		return Content{}, &dataset.RenderError{DatasetID: ds.ID, Stage: "validate", Err: err}
	}

	s := ds.Summary
	flow, pressure, temp := round2(s.AvgFlowrate), round2(s.AvgPressure), round2(s.AvgTemperature)

	c := Content{
		Title:      ds.Name,
		UploadedAt: ds.UploadedAt.UTC().Format(time.RFC3339),
		Metrics: []TableRow{
			{Label: "Samples", Value: strconv.Itoa(s.Count)},
			{Label: "Avg Flowrate", Value: formatValue(flow)},
			{Label: "Avg Pressure", Value: formatValue(pressure)},
			{Label: "Avg Temperature", Value: formatValue(temp)},
		},
		Categories: s.Categories(),
		Averages: chart.Data{
			Title:       averagesTitle,
			Labels:      []string{"Flowrate", "Pressure", "Temperature"},
			Values:      []float64{flow, pressure, temp},
			ValueLabels: []string{formatValue(flow), formatValue(pressure), formatValue(temp)},
		},
	}
	if c.Title == "" {
		c.Title = ds.ID
	}

	c.Distribution = chart.Data{Title: distributionTitle}
	for _, cat := range c.Categories {
		pct := float64(cat.Count) / float64(s.Count) * 100
		c.Distribution.Labels = append(c.Distribution.Labels,
			fmt.Sprintf("%s (%s%%)", cat.Label, strconv.FormatFloat(pct, 'f', 1, 64)))
		c.Distribution.Values = append(c.Distribution.Values, float64(cat.Count))
	}

	return c, nil
}

var summaryValidator = newSummaryValidator()

func newSummaryValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("finite", isFinite)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func isFinite(fl validator.FieldLevel) bool {
	f := fl.Field().Float()
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// validateSummary checks the struct tags on dataset.Summary plus the
// cross-field rule that the distribution sums to Count.
func validateSummary(s dataset.Summary) error {
	if err := summaryValidator.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("invalid summary: %s", strings.Join(msgs, "; "))
		}
		return err
	}

	total := 0
	for _, n := range s.TypeDistribution {
		total += n
	}
	if total != s.Count {
		return fmt.Errorf("type distribution sums to %d, count is %d", total, s.Count)
	}
	return nil
}

// exponentFrom is the magnitude above which values have no cents to round
// and are printed in exponent notation.
const exponentFrom = 1e15

func round2(v float64) float64 {
	if math.Abs(v) >= exponentFrom {
		return v
	}
	return math.Round(v*100) / 100
}

func formatValue(v float64) string {
	if math.Abs(v) >= exponentFrom {
		return strconv.FormatFloat(v, 'e', 2, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
