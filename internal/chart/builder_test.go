package chart

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeOne(t *testing.T, raw string) Descriptor {
	t.Helper()
	var d Descriptor
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	return d
}

func TestBuildCoercesPoints(t *testing.T) {
	t.Parallel()

	d := decodeOne(t, `{"type":"Bar","title":"Prices","series":[{"name":"2024","data":[
		{"x":"a","y":1},
		{"label":"b","y":"2.5"},
		{"year":2020,"y":"n/a"},
		{"category":"c","y":null},
		{"x":null,"year":2021,"y":3},
		{"y":true},
		{"y":""},
		7
	]}]}`)
	cfg := Build(d)

	assert.Equal(t, KindBar, cfg.Kind)
	require.Len(t, cfg.Datasets, 1)
	assert.Equal(t, []XY{{"a", 1}, {"b", 2.5}, {"c", 0}, {"2021", 3}, {"", 1}, {"", 0}}, cfg.Datasets[0].Points)
	assert.Equal(t, Palette[0], cfg.Datasets[0].Color)
}

func TestBuildPieUsesFirstSeries(t *testing.T) {
	t.Parallel()

	d := decodeOne(t, `{"type":"pie","series":[
		{"name":"s1","data":[{"x":"a","y":1},{"x":"b","y":2}]},
		{"name":"s2","data":[{"x":"z","y":9}]}
	]}`)
	cfg := Build(d)

	assert.Equal(t, KindPie, cfg.Kind)
	require.Len(t, cfg.Datasets, 1)
	assert.Len(t, cfg.Datasets[0].Points, 2)
	assert.Equal(t, []string{Palette[0], Palette[1]}, cfg.Datasets[0].Colors)
}

func TestBuildAreaIsFilledLine(t *testing.T) {
	t.Parallel()

	d := decodeOne(t, `{"type":"AREA","series":[{"data":[{"x":"a","y":1}]},{"name":"b","data":[]}]}`)
	cfg := Build(d)

	assert.Equal(t, KindLine, cfg.Kind)
	require.Len(t, cfg.Datasets, 2)
	assert.True(t, cfg.Datasets[0].Fill)
	assert.Equal(t, "Series 1", cfg.Datasets[0].Label)
	assert.Equal(t, Palette[1], cfg.Datasets[1].Color)
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindBar, ParseKind(""))
	assert.Equal(t, KindBar, ParseKind("scatter"))
	assert.Equal(t, KindLine, ParseKind(" Line "))
}

func TestDecodeDescriptorsSkipsGarbage(t *testing.T) {
	t.Parallel()

	ds := DecodeDescriptors(json.RawMessage(`[{"title":5,"series":"nope"}, "x", {"title":"ok","series":[1,{"data":{}}]}]`))
	require.Len(t, ds, 2)
	assert.Empty(t, ds[0].Title)
	assert.Empty(t, ds[0].Series)
	require.Len(t, ds[1].Series, 1)
	assert.Empty(t, ds[1].Series[0].Data)

	assert.Nil(t, DecodeDescriptors(json.RawMessage(`{"type":"bar"}`)))
}

func TestCategoriesUnion(t *testing.T) {
	t.Parallel()

	cfg := Config{Datasets: []Dataset{
		{Points: []XY{{"a", 1}, {"b", 2}}},
		{Points: []XY{{"b", 3}, {"c", 4}}},
	}}
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Categories())
	assert.Equal(t, []any{nil, 3.0, 4.0}, aligned(cfg.Datasets[1], cfg.Categories()))
}

func TestCoerceY(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{`4.5`, 4.5, true},
		{`" 12 "`, 12, true},
		{`null`, 0, true},
		{`false`, 0, true},
		{`true`, 1, true},
		{`""`, 0, true},
		{`"  "`, 0, true},
		{`"n/a"`, 0, false},
		{`"Infinity"`, 0, false},
		{`{"v":1}`, 0, false},
		{`[1]`, 0, false},
		{``, 0, false},
	}
	for _, tt := range tests {
		got, ok := coerceY(json.RawMessage(tt.raw))
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.InDelta(t, tt.want, got, 0, tt.raw)
	}
}

func TestRepeatedXKeepsEveryPoint(t *testing.T) {
	t.Parallel()

	cfg := Config{Datasets: []Dataset{
		{Points: []XY{{"a", 1}, {"b", 2}, {"a", 3}}},
		{Points: []XY{{"a", 5}, {"c", 6}}},
	}}
	cats := cfg.Categories()
	assert.Equal(t, []string{"a", "b", "a", "c"}, cats)
	assert.Equal(t, []any{1.0, 2.0, 3.0, nil}, aligned(cfg.Datasets[0], cats))
	assert.Equal(t, []any{5.0, nil, nil, 6.0}, aligned(cfg.Datasets[1], cats))
}

func TestEmbedFilledLine(t *testing.T) {
	t.Parallel()

	cfg := Config{Kind: KindLine, Datasets: []Dataset{{Label: "s", Points: []XY{{"a", 1}, {"b", 2}}, Fill: true}}}
	var sb strings.Builder
	require.NoError(t, RenderConfig(&sb, cfg))
	assert.Contains(t, sb.String(), "areaStyle")
}

func TestEmbed(t *testing.T) {
	t.Parallel()

	assert.Contains(t, string(Embed(Config{Kind: KindBar})), NoData)

	for _, kind := range []Kind{KindBar, KindLine, KindPie} {
		cfg := Config{Kind: kind, Title: "T <1>", Datasets: []Dataset{{Label: "s", Points: []XY{{"a", 1}}, Fill: true}}}
		var sb strings.Builder
		require.NoError(t, RenderConfig(&sb, cfg))
		assert.Contains(t, sb.String(), "echarts")

		html := string(Embed(cfg))
		assert.True(t, strings.HasPrefix(html, `<iframe class="chart-frame" title="T &lt;1&gt;"`))
	}
}
