package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/i474232898/harvest-advisor/internal/cropinfo"
	"github.com/i474232898/harvest-advisor/internal/csvimport"
	"github.com/i474232898/harvest-advisor/internal/harvest"
	"github.com/i474232898/harvest-advisor/internal/weather"
)

//go:embed templates/*.html
var templateFS embed.FS

var columnLabels = map[string]string{
	weather.ParamTemperature:   "Temperature (°C)",
	weather.ParamPrecipitation: "Precipitation (mm)",
	weather.ParamSolar:         "Solar radiation (kWh/m²/day)",
}

// Renderer produces the HTML fragments shown in the results panel and the page
// that hosts them. All values are escaped by html/template.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("render").Funcs(template.FuncMap{
		"num":  formatNumber,
		"cell": csvimport.FormatValue,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// PageData feeds the form page.
type PageData struct {
	Title      string
	MapsAPIKey string
	Crops      []cropinfo.CropGuide
	SessionID  string
	Panel      template.HTML
}

type climateRow struct {
	Date  string
	Cells []string
}

type climateView struct {
	Columns []string
	Rows    []climateRow
	Summary weather.SeriesSummary
}

// Climate renders the daily table, one row per day in series order, followed by
// the summary line. Days missing a parameter show a dash in that column.
func (r *Renderer) Climate(series *weather.ClimateSeries, summary weather.SeriesSummary) (string, error) {
	view := climateView{Summary: summary}
	var params []string
	if series != nil {
		params = series.Parameters
	}
	for _, p := range params {
		label, ok := columnLabels[p]
		if !ok {
			label = p
		}
		view.Columns = append(view.Columns, label)
	}

	for i := 0; i < series.Len(); i++ {
		day := series.Days[i]
		row := climateRow{Date: day.Date, Cells: make([]string, len(params))}
		for j, p := range params {
			if v, ok := day.Value(p); ok {
				row.Cells[j] = formatNumber(v)
			} else {
				row.Cells[j] = "-"
			}
		}
		view.Rows = append(view.Rows, row)
	}
	return r.execute("climate", view)
}

// Best renders the recommended day and its reason.
func (r *Renderer) Best(res harvest.ScoreResult) (string, error) {
	return r.execute("best", res)
}

// CropInfo renders search hits as linked titles with their snippets.
func (r *Renderer) CropInfo(items []cropinfo.SearchItem) (string, error) {
	return r.execute("cropinfo", items)
}

// CSVTable renders an imported CSV file.
func (r *Renderer) CSVTable(t *csvimport.Table) (string, error) {
	if t == nil {
		return "", nil
	}
	return r.execute("csv", t)
}

// Page writes the full form page.
func (r *Renderer) Page(w io.Writer, data PageData) error {
	return r.tmpl.ExecuteTemplate(w, "page", data)
}

func (r *Renderer) execute(name string, data any) (string, error) {
	var b strings.Builder
	if err := r.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return b.String(), nil
}

// ToMarkdown converts a rendered fragment for terminal display.
func ToMarkdown(html string) (string, error) {
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
