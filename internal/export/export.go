// Package export renders a validated document as Markdown or HTML.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"draftguard/internal/logging"
	"draftguard/internal/types"
)

// RenderMarkdown renders the document as a Markdown report. Section order
// matches the document schema; empty sections are rendered with an explicit
// "none" marker so a reader can tell absence from omission.
func RenderMarkdown(doc *types.GeneratedDocument) string {
	var b strings.Builder

	title := doc.Title
	if title == "" {
		title = "Planning Document"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	if doc.Summary != "" {
		b.WriteString(doc.Summary)
		b.WriteString("\n\n")
	}

	b.WriteString("## Known constraints\n\n")
	if len(doc.KnownConstraints) == 0 {
		b.WriteString("_none_\n")
	}
	for _, entry := range doc.KnownConstraints {
		if entry.Pinned() {
			fmt.Fprintf(&b, "- **%s** _(bound)_\n", entry.Text)
		} else {
			fmt.Fprintf(&b, "- %s\n", entry.Text)
		}
	}
	b.WriteString("\n")

	writeList(&b, "Assumptions", doc.Assumptions)
	writeList(&b, "Recommendations", doc.Recommendations)
	writeList(&b, "Open questions", doc.Unknowns)
	writeList(&b, "Early decision points", doc.EarlyDecisionPoints)

	return b.String()
}

func writeList(b *strings.Builder, heading string, items []string) {
	fmt.Fprintf(b, "## %s\n\n", heading)
	if len(items) == 0 {
		b.WriteString("_none_\n")
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

// RenderHTML converts the Markdown report to HTML.
func RenderHTML(doc *types.GeneratedDocument) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var buf bytes.Buffer
	if err := md.Convert([]byte(RenderMarkdown(doc)), &buf); err != nil {
		return "", fmt.Errorf("failed to render HTML: %w", err)
	}
	logging.Get(logging.CategoryExport).Debug("rendered HTML report (%d bytes)", buf.Len())
	return buf.String(), nil
}
