package htmlutil

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetAnchors(t *testing.T) {
	doc, err := NewDocumentFromString(`<table><tr><td>
		<a href="event?e=15191&amp;f=MO">  MTGO   Competitive
		League </a>
		<a href="%zz">broken</a>
	</td></tr></table>`)
	require.NoError(t, err)

	base, err := url.Parse("http://mtgtop8.com/")
	require.NoError(t, err)

	anchors := GetAnchors(context.Background(), base, doc.Locate("a"))
	require.Len(t, anchors, 1)
	require.Equal(t, "MTGO Competitive League", anchors[0].Name)
	require.Equal(t, "event?e=15191&f=MO", anchors[0].Href)
	require.Equal(t, "http://mtgtop8.com/event?e=15191&f=MO", anchors[0].Url.String())
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "Sebastian Ziller", CleanText("\n\t Sebastian   Ziller \n"))
	require.Equal(t, "", CleanText(" \n "))
}
