package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jward/trellis"
)

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

// outputResult writes a command result in the selected format.
func outputResult(command string, results any) error {
	if flagFormat == "json" {
		return outputJSON(CLIResult{Command: command, Results: results})
	}
	return outputResultText(results)
}

// outputError writes an error in the selected format and marks it handled so
// main() doesn't print it again.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "json" {
		_ = outputJSON(CLIResult{Command: command, Error: err.Error()})
		return err
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	return err
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. It writes to os.Stdout.
func outputResultText(results any) error {
	w := io.Writer(os.Stdout)

	switch v := results.(type) {
	case CLIElement:
		formatElementsText(w, []CLIElement{v})
	case []CLIElement:
		formatElementsText(w, v)
	case []CLIMember:
		formatMembersText(w, v)
	case []CLIDocument:
		formatDocumentsText(w, v)
	case []CLIDiagnostic:
		formatDiagnosticsText(w, v)
	case CLIBool:
		fmt.Fprintf(w, "%t\n", v.Value)
	case string:
		fmt.Fprintln(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// formatElementsText formats CLIElement results as aligned columns.
func formatElementsText(w io.Writer, elements []CLIElement) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "QUALIFIED NAME\tKIND\tVISIBILITY")
	for _, el := range elements {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", el.QualifiedName, el.Kind, el.Visibility)
	}
	tw.Flush()
}

// formatMembersText formats CLIMember results as aligned columns.
func formatMembersText(w io.Writer, members []CLIMember) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tVISIBILITY\tQUALIFIED NAME")
	for _, m := range members {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Name, m.Kind, m.Visibility, m.QualifiedName)
	}
	tw.Flush()
}

// formatDocumentsText formats CLIDocument results as aligned columns.
func formatDocumentsText(w io.Writer, docs []CLIDocument) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "URI\tLANGUAGE\tLIBRARY")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%t\n", d.URI, d.Language, d.Library)
	}
	tw.Flush()
}

// formatDiagnosticsText formats diagnostics as "element: message" lines.
func formatDiagnosticsText(w io.Writer, diags []CLIDiagnostic) {
	for _, d := range diags {
		if d.Element != "" {
			fmt.Fprintf(w, "%s: %s\n", d.Element, d.Message)
			continue
		}
		fmt.Fprintln(w, d.Message)
	}
}

// outputDiagnostics prints engine diagnostics in the selected format.
func outputDiagnostics(w io.Writer, diags []trellis.Diagnostic) {
	cli := make([]CLIDiagnostic, 0, len(diags))
	for _, d := range diags {
		var elemName string
		if d.Element != nil {
			elemName = d.Element.QualifiedName()
		}
		cli = append(cli, CLIDiagnostic{
			Message:  d.Message,
			Element:  elemName,
			Property: d.Property,
		})
	}
	if flagFormat == "json" {
		_ = outputJSON(CLIResult{Command: "check", Results: cli})
		return
	}
	formatDiagnosticsText(w, cli)
}

func cliElement(el trellis.Element) CLIElement {
	out := CLIElement{
		Name:          el.Name(),
		ShortName:     el.ShortName(),
		QualifiedName: el.QualifiedName(),
		Kind:          el.Kind().String(),
		Visibility:    el.Visibility().String(),
		Library:       el.IsLibrary(),
	}
	if doc := el.Document(); doc != nil {
		out.Document = doc.URI
	}
	return out
}
