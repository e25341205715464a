package getty

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithBaseURL(srv.URL), WithRateLimit(10000)}, opts...)
	return NewClient(opts...)
}

func listingRow(id int, name, placeType string) string {
	return fmt.Sprintf(`<TR><TD><INPUT TYPE=checkbox VALUE=%d></TD>
<TD><A HREF="TGNFullDisplay?subjectid=%d"><B>%s</B></A> (%s)</TD></TR>
<TR><TD>(World, North and Central America, United States, New Hampshire) [%d]</TD></TR>
`, id, id, name, placeType, id)
}

func fullRecord(lat, lng float64) string {
	return fmt.Sprintf(`<HTML><BODY>
<TR><TD>Lat: %.4f decimal degrees</TD></TR>
<TR><TD>Long: %.4f decimal degrees</TD></TR>
</BODY></HTML>`, lat, lng)
}

func TestSearch_TwoPhaseRetrieval(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/TGNServlet", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Nashua", r.URL.Query().Get("find"))
		_, _ = fmt.Fprint(w, "<TABLE>\n"+listingRow(7013503, "Nashua", "inhabited place")+"</TABLE>\n")
	})
	mux.HandleFunc("/TGNFullDisplay", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7013503", r.URL.Query().Get("subjectid"))
		_, _ = fmt.Fprint(w, fullRecord(42.75, -71.4667))
	})

	c := newTestClient(t, mux)
	result, err := c.Search(context.Background(), "Nashua")
	require.NoError(t, err)
	require.Len(t, result.Places, 1)

	place := result.Places[0]
	assert.True(t, place.HasCoords)
	assert.InDelta(t, 42.75, place.Latitude, 1e-4)
	assert.InDelta(t, -71.4667, place.Longitude, 1e-4)
}

func TestSearch_NoResults(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `<P>Your search has produced no results.</P>`)
	}))

	result, err := c.Search(context.Background(), "Xyzzy")
	require.NoError(t, err)
	assert.Empty(t, result.Places)
	assert.False(t, result.FailedSyntax)
}

func TestSearch_ServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `<H1>Server Error</H1>`)
	}))

	_, err := c.Search(context.Background(), "Nashua")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServerError)
}

func TestSearch_InvalidSyntaxIsNotAnError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `<P>Invalid search syntax.</P>`)
	}))

	result, err := c.Search(context.Background(), "((")
	require.NoError(t, err)
	assert.True(t, result.FailedSyntax)
	assert.Empty(t, result.Places)
}

func TestSearch_TooManyResults(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `<P>Your search has produced too many results.</P>`)
	}))

	result, err := c.Search(context.Background(), "San")
	require.NoError(t, err)
	assert.True(t, result.TooMany)
}

func TestSearch_PagingStopsAtSixPages(t *testing.T) {
	var pages []string
	mux := http.NewServeMux()
	mux.HandleFunc("/TGNServlet", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		n, _ := strconv.Atoi(page)

		// Every page is dense enough to keep paging and links onward.
		var sb strings.Builder
		sb.WriteString("<TABLE>\n")
		for i := 0; i < 12*n; i++ {
			sb.WriteString(listingRow(1000000+n*100+i, fmt.Sprintf("Springfield %d-%d", n, i), "inhabited place"))
		}
		sb.WriteString("</TABLE>\n")
		sb.WriteString(`<A HREF="TGNServlet?find=springfield&page=` + strconv.Itoa(n+1) + `">Next</A>`)
		_, _ = fmt.Fprint(w, sb.String())
	})
	mux.HandleFunc("/TGNFullDisplay", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, fullRecord(40, -90))
	})

	c := newTestClient(t, mux, WithRetrievalBudget(0))
	result, err := c.Search(context.Background(), "Springfield")
	require.NoError(t, err)

	// 12 matches on page 1 already, 50 total reached by page 3.
	assert.LessOrEqual(t, len(pages), maxPages)
	assert.LessOrEqual(t, len(result.Places), maxMatches)
}

func TestSearch_SparsePageStopsPaging(t *testing.T) {
	var pageCount int
	mux := http.NewServeMux()
	mux.HandleFunc("/TGNServlet", func(w http.ResponseWriter, r *http.Request) {
		pageCount++
		// Fewer than 12·n rows: the tail of the listing.
		_, _ = fmt.Fprint(w, "<TABLE>\n"+
			listingRow(1000001, "Rye", "inhabited place")+
			"</TABLE>\n"+
			`<A HREF="TGNServlet?find=rye&page=2">Next</A>`)
	})
	mux.HandleFunc("/TGNFullDisplay", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, fullRecord(43, -70.8))
	})

	c := newTestClient(t, mux)
	result, err := c.Search(context.Background(), "Rye")
	require.NoError(t, err)
	assert.Equal(t, 1, pageCount)
	assert.Len(t, result.Places, 1)
}

func TestSearch_RetrievalBudgetSkipsCoordinates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/TGNServlet", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, "<TABLE>\n"+listingRow(7013503, "Nashua", "inhabited place")+"</TABLE>\n")
	})
	mux.HandleFunc("/TGNFullDisplay", func(w http.ResponseWriter, _ *http.Request) {
		t.Error("secondary fetch should not run with an exhausted budget")
	})

	c := newTestClient(t, mux, WithRetrievalBudget(-time.Second))
	result, err := c.Search(context.Background(), "Nashua")
	require.NoError(t, err)
	require.Len(t, result.Places, 1)
	assert.False(t, result.Places[0].HasCoords)
}

func TestSearch_RetrievalBudgetExcludesListingTime(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/TGNServlet", func(w http.ResponseWriter, _ *http.Request) {
		// A slow preliminary phase must not eat the coordinate budget.
		time.Sleep(50 * time.Millisecond)
		_, _ = fmt.Fprint(w, "<TABLE>\n"+listingRow(7013503, "Nashua", "inhabited place")+"</TABLE>\n")
	})
	mux.HandleFunc("/TGNFullDisplay", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, fullRecord(42.75, -71.4667))
	})

	c := newTestClient(t, mux, WithRetrievalBudget(20*time.Millisecond))
	result, err := c.Search(context.Background(), "Nashua")
	require.NoError(t, err)
	require.Len(t, result.Places, 1)
	assert.True(t, result.Places[0].HasCoords,
		"budget starts with the coordinate loop, not the listing scrape")
}

func TestSearch_AlternateNamesMergedWhenPrimaryThin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/TGNServlet", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `<TABLE>
<TR><TD><INPUT TYPE=checkbox VALUE=9900001></TD>
<TD><A HREF="x"><B>Lutetia</B></A> (Paris) (inhabited place)</TD></TR>
<TR><TD>(World, Europe, France) [9900001]</TD></TR>
`+listingRow(9900002, "Paris", "inhabited place")+"</TABLE>\n")
	})
	mux.HandleFunc("/TGNFullDisplay", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, fullRecord(48.85, 2.35))
	})

	c := newTestClient(t, mux)
	result, err := c.Search(context.Background(), "Lutetia")
	require.NoError(t, err)
	require.Len(t, result.Places, 2)

	// Primary names come first; alternates are appended.
	assert.Equal(t, "Paris", result.Places[0].Name)
	assert.Equal(t, "Lutetia", result.Places[1].Name)
	assert.Equal(t, "Paris", result.Places[1].AltOf)
}

func TestSearch_HTTPFailureSurfaces(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.Search(context.Background(), "Nashua")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
