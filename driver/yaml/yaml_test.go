package yaml_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v3"

	goshape "github.com/reoring/goshape"
	_ "github.com/reoring/goshape/codec"
	gsyaml "github.com/reoring/goshape/driver/yaml"
	"github.com/reoring/goshape/partial"
)

type listener struct {
	Host string `json:"host"`
	Port int    `goshape:"name=port,default=80"`
}

type config struct {
	Name     string            `json:"name"`
	Listen   listener          `json:"listen"`
	Admin    listener          `goshape:"name=admin,default"`
	Replicas []string          `goshape:"name=replicas,default"`
	Labels   map[string]string `goshape:"name=labels,default"`
	Ratio    float64           `goshape:"name=ratio,default"`
	Grace    time.Duration     `goshape:"name=grace,default,proxy=duration"`
	Parent   *config           `json:"parent"`
}

func issueOf(t *testing.T, err error) goshape.Issue {
	t.Helper()
	require.Error(t, err)
	iss, ok := goshape.AsIssues(err)
	require.True(t, ok, "not issues: %v", err)
	return iss[0]
}

func TestUnmarshal_Config(t *testing.T) {
	in := `
name: web
listen: &l
  host: 0.0.0.0
  port: 8080
admin: *l
replicas: [a, b]
labels:
  tier: front
ratio: .inf
grace: 30s
parent:
  name: root
  listen: {host: localhost}
`
	got, err := gsyaml.Unmarshal[config]([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, "web", got.Name)
	assert.Equal(t, listener{Host: "0.0.0.0", Port: 8080}, got.Listen)
	assert.Equal(t, got.Listen, got.Admin, "aliases decode like their anchor")
	assert.Equal(t, []string{"a", "b"}, got.Replicas)
	assert.Equal(t, map[string]string{"tier": "front"}, got.Labels)
	assert.True(t, math.IsInf(got.Ratio, 1))
	assert.Equal(t, 30*time.Second, got.Grace)
	require.NotNil(t, got.Parent)
	assert.Equal(t, listener{Host: "localhost", Port: 80}, got.Parent.Listen)
	assert.Nil(t, got.Parent.Parent)
}

func TestUnmarshal_DottedKeys(t *testing.T) {
	in := `
name: web
listen.host: example.com
admin.host: internal
listen.port: 9000
`
	got, err := gsyaml.Unmarshal[config]([]byte(in), gsyaml.Opt{DottedKeys: true})
	require.NoError(t, err)
	assert.Equal(t, listener{Host: "example.com", Port: 9000}, got.Listen)
	assert.Equal(t, listener{Host: "internal", Port: 80}, got.Admin)

	_, err = gsyaml.Unmarshal[config]([]byte(in))
	is := issueOf(t, err)
	assert.Equal(t, goshape.CodeUnknownKey, is.Code)
	assert.Equal(t, "/listen.host", is.Path)
}

func TestUnmarshal_DottedKeysMergeWithTable(t *testing.T) {
	in := `
name: web
listen:
  port: 1
listen.host: merged
`
	got, err := gsyaml.Unmarshal[config]([]byte(in), gsyaml.Opt{DottedKeys: true})
	require.NoError(t, err)
	assert.Equal(t, listener{Host: "merged", Port: 1}, got.Listen)
}

func TestUnmarshal_DottedKeysIncomplete(t *testing.T) {
	in := `
name: web
listen.port: 1
`
	_, err := gsyaml.Unmarshal[config]([]byte(in), gsyaml.Opt{DottedKeys: true})
	is := issueOf(t, err)
	assert.Equal(t, goshape.CodeRequired, is.Code)
	assert.Equal(t, "/listen/host", is.Path)
}

func TestUnmarshal_UnknownKeys(t *testing.T) {
	in := []byte("name: a\nlisten: {host: h}\nextra: [1, 2]\nlisten.bogus: 3\n")

	_, err := gsyaml.Unmarshal[config](in)
	is := issueOf(t, err)
	assert.Equal(t, goshape.CodeUnknownKey, is.Code)
	assert.Equal(t, "/extra", is.Path)
	assert.Equal(t, "line 3, column 1", is.Hint)

	got, err := gsyaml.Unmarshal[config](in, gsyaml.Opt{Unknown: goshape.UnknownStrip, DottedKeys: true})
	require.NoError(t, err)
	assert.Equal(t, "h", got.Listen.Host)
}

func TestUnmarshal_TypeErrors(t *testing.T) {
	_, err := gsyaml.Unmarshal[config]([]byte("name: a\nlisten: {host: h, port: eighty}\n"))
	is := issueOf(t, err)
	assert.Equal(t, goshape.CodeParseError, is.Code)
	assert.Equal(t, "/listen/port", is.Path)

	_, err = gsyaml.Unmarshal[config]([]byte("name: a\nlisten: [h]\n"))
	is = issueOf(t, err)
	assert.Equal(t, goshape.CodeInvalidType, is.Code)
	assert.Equal(t, "/listen", is.Path)

	_, err = gsyaml.Unmarshal[config]([]byte("name: [unclosed\n"))
	assert.Equal(t, goshape.CodeParseError, goshape.CodeOf(err))

	_, err = gsyaml.Unmarshal[config](nil)
	assert.Equal(t, goshape.CodeParseError, goshape.CodeOf(err))
}

func shapeWithUnion() *goshape.Shape {
	action := goshape.Union("Action").
		Unit("Stop").
		Newtype("Say", goshape.String).
		Variant("Move", &goshape.Field{Name: "x", Shape: goshape.Int}, &goshape.Field{Name: "y", Shape: goshape.Int}).
		MustBuild()
	return goshape.Struct("Script").
		Field("steps", goshape.ListOf(action)).
		Field("last", goshape.ResultOf(goshape.Int, goshape.String)).
		Field("weights", goshape.MapOf(goshape.Int64, goshape.Float64)).
		MustBuild()
}

func TestUnmarshalShape_Unions(t *testing.T) {
	in := `
steps:
  - Stop
  - Say: hi
  - !Move {x: 1, y: 2}
  - {Move: {x: 3, y: 4}}
last: {ok: 7}
weights: {1: 0.5, 2: .nan}
`
	v, err := gsyaml.UnmarshalShape(shapeWithUnion(), []byte(in))
	require.NoError(t, err)
	rec := v.Data.(*goshape.Record)

	steps, _ := rec.Get("steps")
	var names []string
	for _, s := range steps.([]any) {
		names = append(names, s.(*goshape.Tagged).VariantName())
	}
	assert.Equal(t, []string{"Stop", "Say", "Move", "Move"}, names)
	assert.Equal(t, []any{1, 2}, steps.([]any)[2].(*goshape.Tagged).Values)

	last, _ := rec.Get("last")
	assert.Equal(t, goshape.ResultValue{Value: 7}, last)

	weights, _ := rec.Get("weights")
	w, ok := weights.(*goshape.Map).Get(int64(1))
	require.True(t, ok)
	assert.Equal(t, 0.5, w)
	nan, _ := weights.(*goshape.Map).Get(int64(2))
	assert.True(t, math.IsNaN(nan.(float64)))
}

func TestDecode_NodeIntoOpenFrame(t *testing.T) {
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte("host: h\n"), &node))

	p, err := partial.AllocOf[config]()
	require.NoError(t, err)
	require.NoError(t, p.BeginField("listen"))
	require.NoError(t, gsyaml.Decode(p, &node))
	require.NoError(t, p.End())
	require.NoError(t, p.BeginField("name"))
	require.NoError(t, p.Set("n"))
	require.NoError(t, p.End())

	got, err := partial.Build[config](p)
	require.NoError(t, err)
	assert.Equal(t, listener{Host: "h", Port: 80}, got.Listen)
}
