package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/hamed0406/tlscheck/internal/domain"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

// statusLabel is a short verdict plus the colour it is printed in.
func statusLabel(o domain.Outcome) (string, func(a ...interface{}) string) {
	switch {
	case o.Err != nil:
		return string(o.Err.Kind), colorError
	case o.Result.IsExpired:
		return "EXPIRED", colorError
	case !o.Result.Connection.ChainValidated:
		return "UNTRUSTED", colorWarn
	case o.Result.IsExpiringSoon:
		return "EXPIRING", colorWarn
	case !o.Result.IsValid:
		return "INVALID", colorError
	}
	return "OK", colorSuccess
}

func renderTable(w io.Writer, out domain.BatchResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HOST\tSTATUS\tDAYS\tEXPIRES\tPROTOCOL\tISSUER")
	for _, o := range out {
		label, paint := statusLabel(o)
		// pad before colouring so escape codes do not skew the columns
		status := paint(fmt.Sprintf("%-19s", label))
		if o.Err != nil {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t%s\n", o.Hostname(), status, o.Err.Message)
			continue
		}
		r := o.Result
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			o.Hostname(), status, r.DaysUntilExpiry,
			r.Certificate.NotAfter.Format("2006-01-02"),
			r.Connection.Protocol, r.Certificate.Issuer)
	}
	return tw.Flush()
}
