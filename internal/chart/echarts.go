package chart

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	echartsWidth  = "100%"
	echartsHeight = "280px"
)

type renderer interface {
	Render(w io.Writer) error
}

// RenderConfig writes cfg as a standalone go-echarts page. Panics inside the
// backend are returned as errors.
func RenderConfig(w io.Writer, cfg Config) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render %s chart: %v", cfg.Kind, r)
		}
	}()
	var chart renderer
	switch cfg.Kind {
	case KindPie:
		chart = pieChart(cfg)
	case KindLine:
		chart = lineChart(cfg)
	default:
		chart = barChart(cfg)
	}
	if err := chart.Render(w); err != nil {
		return fmt.Errorf("render %s chart: %w", cfg.Kind, err)
	}
	return nil
}

// Embed renders cfg into an isolated iframe. Configs without points become the
// no-data placeholder; backend failures become the render-error placeholder.
func Embed(cfg Config) template.HTML {
	if cfg.Points() == 0 {
		return HTML(Message(NoData))
	}
	var buf bytes.Buffer
	if err := RenderConfig(&buf, cfg); err != nil {
		return HTML(Message(RenderError))
	}
	return template.HTML(fmt.Sprintf( //nolint:gosec // srcdoc is attribute-escaped
		`<iframe class="chart-frame" title="%s" srcdoc="%s"></iframe>`,
		template.HTMLEscapeString(cfg.Title), template.HTMLEscapeString(buf.String()),
	))
}

func globalOpts(cfg Config) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{Width: echartsWidth, Height: echartsHeight}),
		charts.WithTitleOpts(opts.Title{Title: cfg.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
	}
}

func axisOpts(cfg Config) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithXAxisOpts(opts.XAxis{Name: cfg.XLabel, Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: cfg.YLabel, Type: "value"}),
	}
}

// aligned maps each dataset onto the shared category axis. The n-th point
// with a given x lands in the n-th slot for that x; unfilled slots are gaps.
func aligned(ds Dataset, categories []string) []any {
	slots := make(map[string][]int, len(categories))
	for i, x := range categories {
		slots[x] = append(slots[x], i)
	}
	out := make([]any, len(categories))
	used := make(map[string]int, len(ds.Points))
	for _, p := range ds.Points {
		n := used[p.X]
		if n >= len(slots[p.X]) {
			continue
		}
		out[slots[p.X][n]] = p.Y
		used[p.X] = n + 1
	}
	return out
}

func barChart(cfg Config) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(append(globalOpts(cfg), axisOpts(cfg)...)...)
	categories := cfg.Categories()
	bar.SetXAxis(categories)
	for _, ds := range cfg.Datasets {
		values := aligned(ds, categories)
		data := make([]opts.BarData, len(values))
		for i, v := range values {
			data[i] = opts.BarData{Value: v}
		}
		bar.AddSeries(ds.Label, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: ds.Color}))
	}
	return bar
}

func lineChart(cfg Config) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(append(globalOpts(cfg), axisOpts(cfg)...)...)
	categories := cfg.Categories()
	line.SetXAxis(categories)
	for _, ds := range cfg.Datasets {
		values := aligned(ds, categories)
		data := make([]opts.LineData, len(values))
		for i, v := range values {
			data[i] = opts.LineData{Value: v}
		}
		seriesOpts := []charts.SeriesOpts{
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: ds.Color}),
		}
		if ds.Fill {
			seriesOpts = append(seriesOpts, charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: 0.3}))
		}
		line.AddSeries(ds.Label, data, seriesOpts...)
	}
	return line
}

func pieChart(cfg Config) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(globalOpts(cfg)...)
	var ds Dataset
	if len(cfg.Datasets) > 0 {
		ds = cfg.Datasets[0]
	}
	data := make([]opts.PieData, 0, len(ds.Points))
	for i, p := range ds.Points {
		color := ColorAt(i)
		if i < len(ds.Colors) {
			color = ds.Colors[i]
		}
		data = append(data, opts.PieData{Name: p.X, Value: p.Y, ItemStyle: &opts.ItemStyle{Color: color}})
	}
	pie.AddSeries(ds.Label, data)
	return pie
}
