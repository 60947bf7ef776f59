// Package render prints search responses for a terminal.
package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/cwoolley/metasearch/internal/providers"
	"github.com/cwoolley/metasearch/internal/search"
)

type styles struct {
	title    lipgloss.Style
	url      lipgloss.Style
	provider lipgloss.Style
	header   lipgloss.Style
	muted    lipgloss.Style
	err      lipgloss.Style
}

// newStyles binds the palette to w, so colour is only emitted when w is a
// terminal that supports it.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		url:      r.NewStyle().Foreground(lipgloss.Color("8")),
		provider: r.NewStyle().Foreground(lipgloss.Color("5")),
		header:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		muted:    r.NewStyle().Faint(true),
		err:      r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// Response writes the merged results, the summary and any provider errors.
func Response(w io.Writer, resp *search.Response) error {
	s := newStyles(w)
	var b strings.Builder

	if resp.Summary != nil {
		b.WriteString(s.header.Render("Summary"))
		b.WriteString("\n")
		b.WriteString(*resp.Summary)
		b.WriteString("\n\n")
	}

	if len(resp.Results) == 0 {
		b.WriteString("No results found.\n")
	} else {
		for _, r := range resp.Results {
			fmt.Fprintf(&b, "%d. %s\n", r.Rank, s.title.Render(r.Title))
			fmt.Fprintf(&b, "   %s\n", s.url.Render(r.Link))
			if r.Snippet != "" {
				fmt.Fprintf(&b, "   %s\n", r.Snippet)
			}
			fmt.Fprintf(&b, "   %s\n\n", s.provider.Render("["+string(r.Provider)+"]"))
		}
	}

	if len(resp.ProviderErrors) > 0 {
		ids := make([]string, 0, len(resp.ProviderErrors))
		for id := range resp.ProviderErrors {
			ids = append(ids, string(id))
		}
		sort.Strings(ids)
		b.WriteString(s.header.Render("Provider errors"))
		b.WriteString("\n")
		for _, id := range ids {
			pe := resp.ProviderErrors[providers.ID(id)]
			fmt.Fprintf(&b, "  %s %s\n", s.err.Render(id+":"), s.muted.Render(fmt.Sprintf("%s (%s)", pe.Message, pe.Kind)))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Providers writes one line per registered provider.
func Providers(w io.Writer, ds []providers.Descriptor) error {
	s := newStyles(w)
	var b strings.Builder
	for _, d := range ds {
		status := "configured"
		if !d.Configured {
			status = "missing " + strings.Join(d.Requires, ", ")
		}
		fmt.Fprintf(&b, "%-12s %s\n", s.title.Render(string(d.ID)), s.muted.Render(status))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
