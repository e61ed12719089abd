package json_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goshape "github.com/reoring/goshape"
	_ "github.com/reoring/goshape/codec"
	gsjson "github.com/reoring/goshape/driver/json"
	"github.com/reoring/goshape/partial"
)

type server struct {
	Name    string         `json:"name"`
	Port    int            `goshape:"name=port,default=8080"`
	Tags    []string       `goshape:"name=tags,default"`
	Limits  map[string]int `goshape:"name=limits,default"`
	Backup  *server        `json:"backup"`
	Timeout time.Duration  `goshape:"name=timeout,default,proxy=duration"`
}

func issueOf(t *testing.T, err error) goshape.Issue {
	t.Helper()
	require.Error(t, err)
	iss, ok := goshape.AsIssues(err)
	require.True(t, ok, "not issues: %v", err)
	return iss[0]
}

func TestUnmarshal_ReflectedStruct(t *testing.T) {
	in := `{
		"name": "a",
		"tags": ["x", "y"],
		"limits": {"cpu": 2},
		"backup": {"name": "b", "port": 1},
		"timeout": "2s"
	}`
	got, err := gsjson.Unmarshal[server]([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, server{
		Name:    "a",
		Port:    8080,
		Tags:    []string{"x", "y"},
		Limits:  map[string]int{"cpu": 2},
		Backup:  &server{Name: "b", Port: 1, Limits: map[string]int{}},
		Timeout: 2 * time.Second,
	}, got)
}

func TestUnmarshal_NullAndMissing(t *testing.T) {
	got, err := gsjson.Unmarshal[server]([]byte(`{"name":"a","backup":null}`))
	require.NoError(t, err)
	assert.Nil(t, got.Backup)

	_, err = gsjson.Unmarshal[server]([]byte(`{"port":1}`))
	is := issueOf(t, err)
	assert.Equal(t, goshape.CodeRequired, is.Code)
	assert.Equal(t, "/name", is.Path)

	_, err = gsjson.Unmarshal[server]([]byte(`{"name":null}`))
	is = issueOf(t, err)
	assert.Equal(t, goshape.CodeInvalidType, is.Code)
	assert.Equal(t, "/name", is.Path)
}

func TestUnmarshal_UnknownKeys(t *testing.T) {
	in := []byte(`{"bogus":{"x":[1,{"y":2}]},"name":"a"}`)

	_, err := gsjson.Unmarshal[server](in)
	is := issueOf(t, err)
	assert.Equal(t, goshape.CodeUnknownKey, is.Code)
	assert.Equal(t, "/bogus", is.Path)

	got, err := gsjson.Unmarshal[server](in, gsjson.Opt{Unknown: goshape.UnknownStrip})
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name)
}

func TestUnmarshal_DuplicateKeys(t *testing.T) {
	in := []byte(`{"name":"a","name":"b"}`)

	got, err := gsjson.Unmarshal[server](in)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Name, "last one wins when duplicates are ignored")

	_, err = gsjson.Unmarshal[server](in, gsjson.Opt{Strictness: goshape.Strictness{OnDuplicateKey: goshape.Error}})
	is := issueOf(t, err)
	assert.Equal(t, goshape.CodeDuplicateKey, is.Code)
	assert.Equal(t, "/name", is.Path)
}

func TestUnmarshal_SyntaxAndDepth(t *testing.T) {
	_, err := gsjson.Unmarshal[server]([]byte(`{"name":"a",`))
	assert.Equal(t, goshape.CodeParseError, goshape.CodeOf(err))

	_, err = gsjson.Unmarshal[server]([]byte(`{"name":"a"} {}`))
	is := issueOf(t, err)
	assert.Equal(t, goshape.CodeParseError, is.Code)
	assert.Equal(t, "trailing data", is.Params["reason"])

	_, err = gsjson.Unmarshal[server]([]byte(``))
	assert.Equal(t, goshape.CodeParseError, goshape.CodeOf(err))

	deep := `{"name":"a","backup":{"name":"b","backup":{"name":"c"}}}`
	_, err = gsjson.Unmarshal[server]([]byte(deep), gsjson.Opt{MaxDepth: 2})
	is = issueOf(t, err)
	assert.Equal(t, goshape.CodeMaxDepth, is.Code)
	assert.Equal(t, "/backup/backup", is.Path)

	_, err = gsjson.Unmarshal[server]([]byte(`{"name":"a","port":"80"}`))
	is = issueOf(t, err)
	assert.Equal(t, goshape.CodeInvalidType, is.Code)
	assert.Equal(t, "/port", is.Path)

	_, err = gsjson.Unmarshal[server]([]byte(`{"name":"a","port":1.5}`))
	is = issueOf(t, err)
	assert.Equal(t, goshape.CodeParseError, is.Code)
	assert.Equal(t, "/port", is.Path)
}

func messageShape() *goshape.Shape {
	kind := goshape.Union("Kind").
		Unit("Ping").
		Newtype("Text", goshape.String).
		Variant("Move", &goshape.Field{Name: "x", Shape: goshape.Int}, &goshape.Field{Name: "y", Shape: goshape.Int}).
		Variant("Pair", &goshape.Field{Name: "0", Shape: goshape.Int}, &goshape.Field{Name: "1", Shape: goshape.String}).
		MustBuild()
	return goshape.Struct("Message").
		Field("kind", kind).
		Field("res", goshape.ResultOf(goshape.Int, goshape.String)).
		Field("counts", goshape.MapOf(goshape.Int64, goshape.Bool)).
		Field("note", goshape.OptionalOf(goshape.String)).
		Field("ratio", goshape.Float64).DefaultFromType().
		MustBuild()
}

func TestUnmarshalShape_TaggedValues(t *testing.T) {
	s := messageShape()
	v, err := gsjson.UnmarshalShape(s, []byte(`{
		"kind": {"Move": {"x": 1, "y": 2}},
		"res": {"err": "boom"},
		"counts": {"1": true, "20": false},
		"note": "hi"
	}`))
	require.NoError(t, err)
	rec := v.Data.(*goshape.Record)

	kind, _ := rec.Get("kind")
	tg := kind.(*goshape.Tagged)
	assert.Equal(t, "Move", tg.VariantName())
	assert.Equal(t, []any{1, 2}, tg.Values)

	res, _ := rec.Get("res")
	assert.Equal(t, goshape.ResultValue{IsErr: true, Value: "boom"}, res)

	counts, _ := rec.Get("counts")
	b, ok := counts.(*goshape.Map).Get(int64(20))
	require.True(t, ok)
	assert.Equal(t, false, b)

	note, _ := rec.Get("note")
	assert.Equal(t, goshape.Some("hi"), note)
	ratio, _ := rec.Get("ratio")
	assert.Equal(t, 0.0, ratio)
}

func TestUnmarshalShape_VariantForms(t *testing.T) {
	s := messageShape()
	rest := `"res":{"ok":1},"counts":{}`
	cases := []struct {
		kind    string
		variant string
		values  []any
	}{
		{`"Ping"`, "Ping", []any{}},
		{`{"Ping":null}`, "Ping", []any{}},
		{`{"Text":"hello"}`, "Text", []any{"hello"}},
		{`{"Pair":[7,"seven"]}`, "Pair", []any{7, "seven"}},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			v, err := gsjson.UnmarshalShape(s, []byte(`{"kind":`+tc.kind+`,`+rest+`}`))
			require.NoError(t, err)
			kind, _ := v.Data.(*goshape.Record).Get("kind")
			tg := kind.(*goshape.Tagged)
			assert.Equal(t, tc.variant, tg.VariantName())
			if len(tc.values) > 0 {
				assert.Equal(t, tc.values, tg.Values)
			}
		})
	}

	_, err := gsjson.UnmarshalShape(s, []byte(`{"kind":{"Text":"a","Ping":null},`+rest+`}`))
	is := issueOf(t, err)
	assert.Equal(t, goshape.CodeInvalidType, is.Code)
	assert.Equal(t, "/kind", is.Path)

	_, err = gsjson.UnmarshalShape(s, []byte(`{"kind":"Fly",`+rest+`}`))
	is = issueOf(t, err)
	assert.Equal(t, goshape.CodeUnknownVariant, is.Code)

	_, err = gsjson.UnmarshalShape(s, []byte(`{"kind":"Ping","res":{"maybe":1},"counts":{}}`))
	is = issueOf(t, err)
	assert.Equal(t, goshape.CodeUnknownKey, is.Code)
	assert.Equal(t, "/res/maybe", is.Path)
}

func TestUnmarshal_NonFiniteFloats(t *testing.T) {
	s := goshape.Struct("F").Field("v", goshape.Float64).MustBuild()
	_, err := gsjson.UnmarshalShape(s, []byte(`{"v":"NaN"}`))
	assert.Equal(t, goshape.CodeInvalidType, goshape.CodeOf(err))

	v, err := gsjson.UnmarshalShape(s, []byte(`{"v":"-Infinity"}`), gsjson.Opt{Strictness: goshape.Strictness{AllowNaN: true}})
	require.NoError(t, err)
	f, _ := v.Data.(*goshape.Record).Get("v")
	assert.True(t, f.(float64) < 0)
}

func TestDecode_IntoOpenFrame(t *testing.T) {
	p, err := partial.AllocOf[server](partial.Opt{Presence: goshape.PresenceOpt{Collect: true}})
	require.NoError(t, err)
	require.NoError(t, p.BeginField("backup"))
	require.NoError(t, gsjson.Decode(p, strings.NewReader(`{"name":"inner"}`)))
	require.NoError(t, p.End())
	require.NoError(t, p.BeginField("name"))
	require.NoError(t, p.Set("outer"))
	require.NoError(t, p.End())

	d, err := partial.BuildWithMeta[server](p)
	require.NoError(t, err)
	assert.Equal(t, "inner", d.Value.Backup.Name)
	assert.True(t, d.Presence.Has("/backup/name", goshape.PresenceSeen))
	assert.True(t, d.Presence.Has("/port", goshape.PresenceDefaultApplied))
}

func TestDecode_DropsOnError(t *testing.T) {
	p, err := partial.AllocOf[server]()
	require.NoError(t, err)
	err = gsjson.Decode(p, strings.NewReader(`{"name":1}`))
	require.Error(t, err)
	assert.Equal(t, goshape.CodeInvalidState, goshape.CodeOf(p.BeginField("name")), "dropped builders reject further use")
}

func TestUnmarshal_OpaqueAny(t *testing.T) {
	type envelope struct {
		Kind    string `json:"kind"`
		Payload any    `json:"payload"`
	}
	got, err := gsjson.Unmarshal[envelope]([]byte(`{"kind":"k","payload":{"a":[1,"b",null]}}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": []any{1.0, "b", nil}}, got.Payload)
}
