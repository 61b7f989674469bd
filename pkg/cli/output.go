package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"asyncq/internal/api"
	"asyncq/internal/domain"
)

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

// printQuery writes one record as a key/value table or as JSON.
func printQuery(w io.Writer, format string, q *domain.AsyncQuery) error {
	if format == "json" {
		return printJSON(w, api.QueryFromDomain(q))
	}
	tw := newTabWriter(w)
	_, _ = fmt.Fprintf(tw, "ID\t%s\n", q.ID)
	_, _ = fmt.Fprintf(tw, "STATUS\t%s\n", q.Status)
	_, _ = fmt.Fprintf(tw, "TYPE\t%s\n", q.QueryType)
	_, _ = fmt.Fprintf(tw, "PRINCIPAL\t%s\n", q.PrincipalName)
	_, _ = fmt.Fprintf(tw, "QUERY\t%s\n", q.Query)
	_, _ = fmt.Fprintf(tw, "CREATED\t%s\n", formatTime(q.CreatedOn))
	_, _ = fmt.Fprintf(tw, "UPDATED\t%s\n", formatTime(q.UpdatedOn))
	if q.Result != nil {
		_, _ = fmt.Fprintf(tw, "RESULT\t%s (http %d, %d bytes)\n", q.Result.ID, q.Result.HTTPStatus, q.Result.ContentLength)
	} else {
		_, _ = fmt.Fprintf(tw, "RESULT\t-\n")
	}
	return tw.Flush()
}

// printResult writes a result including its body.
func printResult(w io.Writer, format string, r *domain.AsyncQueryResult) error {
	if format == "json" {
		return printJSON(w, api.ResultFromDomain(r, true))
	}
	tw := newTabWriter(w)
	_, _ = fmt.Fprintf(tw, "ID\t%s\n", r.ID)
	_, _ = fmt.Fprintf(tw, "QUERY ID\t%s\n", r.QueryID)
	_, _ = fmt.Fprintf(tw, "HTTP STATUS\t%d\n", r.HTTPStatus)
	_, _ = fmt.Fprintf(tw, "CONTENT LENGTH\t%d\n", r.ContentLength)
	_, _ = fmt.Fprintf(tw, "CREATED\t%s\n", formatTime(r.CreatedOn))
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s\n", r.ResponseBody)
	return err
}

// printCount reports how many records a bulk command touched.
func printCount(w io.Writer, format, verb string, n int) error {
	if format == "json" {
		return printJSON(w, api.CountResponse{Count: n})
	}
	noun := "records"
	if n == 1 {
		noun = "record"
	}
	_, err := fmt.Fprintf(w, "%s %d %s\n", verb, n, noun)
	return err
}
