package kgstore

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanderheijden86/herbgraph/pkg/graphstate"
)

const ns = "http://plants.example.org/kg#"

const sampleTSV = `# plant triples
s	p	o
http://plants.example.org/kg#人参	http://plants.example.org/kg#属于科	http://plants.example.org/kg#五加科
http://plants.example.org/kg#人参	http://plants.example.org/kg#属于属	http://plants.example.org/kg#人参属
http://plants.example.org/kg#人参	http://plants.example.org/kg#特征	多年生草本
http://plants.example.org/kg#人参	http://plants.example.org/kg#治疗	http://plants.example.org/kg#感冒
http://plants.example.org/kg#人参	http://plants.example.org/kg#治疗	http://plants.example.org/kg#乏力
http://plants.example.org/kg#人参	http://plants.example.org/kg#拉丁学名	Panax ginseng
http://plants.example.org/kg#三七	http://plants.example.org/kg#属于科	http://plants.example.org/kg#五加科
http://plants.example.org/kg#Panax	http://plants.example.org/kg#别名	http://plants.example.org/kg#人参
`

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "kg.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	n, err := s.ImportTSV(context.Background(), strings.NewReader(sampleTSV), ImportOptions{})
	require.NoError(t, err)
	require.Equal(t, 8, n)
	return s
}

func TestImportTSV(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, count)

	n, err := s.ImportTSV(ctx, strings.NewReader(ns+"当归\t"+ns+"属于科\t"+ns+"伞形科\n"), ImportOptions{Replace: true, BatchSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	count, _ = s.Count(ctx)
	assert.Equal(t, 1, count)
}

func TestImportTSVRejectsShortRows(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "kg.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ImportTSV(context.Background(), strings.NewReader("a\tb\n"), ImportOptions{})
	assert.ErrorContains(t, err, "want 3 fields")
}

func TestQuery(t *testing.T) {
	s := openTestStore(t)

	sg, err := s.Query(context.Background(), "  人参 ", DefaultLimits())
	require.NoError(t, err)

	// 特征 is hidden.
	require.Len(t, sg.Links, 5)
	assert.Equal(t, graphstate.Link{Source: ns + "人参", Target: ns + "五加科", Label: "属于科"}, sg.Links[0])

	require.Len(t, sg.Nodes, 6)
	assert.Equal(t, graphstate.Node{ID: ns + "人参", Type: "植物", Color: "#4CAF50"}, sg.Nodes[0])
	assert.Equal(t, graphstate.Node{ID: ns + "五加科", Type: "科", Color: "#2196F3"}, sg.Nodes[1])
	assert.Equal(t, graphstate.Node{ID: ns + "感冒", Type: "药用价值", Color: "#008B8B"}, sg.Nodes[3])
	assert.Equal(t, graphstate.Node{ID: "Panax ginseng", Type: "拉丁学名", Color: "#9E9E9E"}, sg.Nodes[5])
}

func TestQueryCaseInsensitiveAndLimited(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sg, err := s.Query(ctx, "PANAX", DefaultLimits())
	require.NoError(t, err)
	assert.Len(t, sg.Links, 1)

	lim := DefaultLimits()
	lim.MaxResults = 2
	sg, err = s.Query(ctx, "人参", lim)
	require.NoError(t, err)
	assert.Len(t, sg.Links, 2)
	assert.Len(t, sg.Nodes, 3)

	sg, err = s.Query(ctx, "   ", lim)
	require.NoError(t, err)
	assert.Empty(t, sg.Nodes)
	assert.NotNil(t, sg.Links)
}

func TestDetails(t *testing.T) {
	s := openTestStore(t)

	d, err := s.Details(context.Background(), ns+"人参", DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, ns+"人参", d.Entity)

	// Forward properties plus the reverse 别名 from Panax, 特征 hidden.
	require.Len(t, d.Properties, 6)
	assert.Equal(t, graphstate.Property{Predicate: "别名", Object: ns + "Panax"}, d.Properties[5])

	assert.Equal(t, graphstate.NodeMeta{Type: "科", Color: "#2196F3"}, d.NodeInfo[ns+"五加科"])
	assert.Equal(t, graphstate.NodeMeta{Type: "植物", Color: "#4CAF50"}, d.NodeInfo[ns+"Panax"])
	assert.Equal(t, graphstate.NodeMeta{Type: "药用价值", Color: "#008B8B"}, d.NodeInfo[ns+"乏力"])
}

func TestDetailsLimitKeepsNodeInfo(t *testing.T) {
	s := openTestStore(t)
	lim := DefaultLimits()
	lim.MaxProperties = 2

	d, err := s.Details(context.Background(), ns+"人参", lim)
	require.NoError(t, err)
	assert.Len(t, d.Properties, 2)
	assert.Len(t, d.NodeInfo, 6)
}

func TestDetailsUnknownEntity(t *testing.T) {
	s := openTestStore(t)
	d, err := s.Details(context.Background(), "不存在", DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, "不存在", d.Entity)
	assert.Empty(t, d.Properties)
	assert.NotNil(t, d.NodeInfo)
}

func TestStructuredInfo(t *testing.T) {
	s := openTestStore(t)

	info, err := s.StructuredInfo(context.Background(), "人参")
	require.NoError(t, err)
	assert.Equal(t, "五加科", info.Get("属于科", ""))
	assert.Equal(t, "感冒、乏力", info.Get("治疗", ""))
	assert.Equal(t, "多年生草本", info.Get("特征", ""))
	assert.Equal(t, "Panax ginseng", info.Get("拉丁学名", ""))
	assert.Equal(t, "未知", info.Get("生境", "未知"))
}

func TestExtractLabelAndTypeColor(t *testing.T) {
	assert.Equal(t, "人参", ExtractLabel(ns+"人参"))
	assert.Equal(t, "plant", ExtractLabel("http://x.org/a/plant"))
	assert.Equal(t, "literal", ExtractLabel("literal"))

	typ, color := TypeColor("花期")
	assert.Equal(t, "花期", typ)
	assert.Equal(t, "#FF69B4", color)
	typ, color = TypeColor("用途")
	assert.Equal(t, "未知", typ)
	assert.Equal(t, "#ccc", color)
}

func TestOpenInMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Insert(context.Background(), Triple{S: ns + "a", P: ns + "p", O: "b"}))
	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, s.Ping(context.Background()))
}
